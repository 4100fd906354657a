// dispatcher.go
// Fan-out of one inbound message to every open connection, the sender
// included. A failing target is logged and skipped; the rest still get it.

package relay

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"realtime-relay/internal/metrics"
)

// DefaultPrefix is prepended to every relayed message.
const DefaultPrefix = "Client sagt: "

// Dispatcher broadcasts inbound messages to all open peers in a Registry.
type Dispatcher struct {
	registry *Registry
	prefix   string
	log      logrus.FieldLogger
	metrics  *metrics.Relay
}

func NewDispatcher(registry *Registry, prefix string, log logrus.FieldLogger, m *metrics.Relay) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		prefix:   prefix,
		log:      log,
		metrics:  m,
	}
}

// OnMessage relays payload from source to every open peer and returns the
// number of peers the message was queued for.
func (d *Dispatcher) OnMessage(source Peer, payload []byte) int {
	d.metrics.MessagesReceived.Inc()
	// Frames go out as text, so invalid UTF-8 must not reach browsers.
	out := []byte(d.prefix + strings.ToValidUTF8(string(payload), "\uFFFD"))

	delivered := 0
	d.registry.ForEachOpen(func(p Peer) {
		if err := p.Send(out); err != nil {
			d.metrics.SendFailures.WithLabelValues(failureReason(err)).Inc()
			d.log.WithFields(logrus.Fields{
				"client_id": p.ID(),
				"source_id": source.ID(),
			}).WithError(err).Warn("Failed to relay message")
			return
		}
		delivered++
	})

	d.metrics.MessagesDelivered.Add(float64(delivered))
	return delivered
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotOpen):
		return metrics.ReasonNotOpen
	case errors.Is(err, ErrSendBufferFull):
		return metrics.ReasonBufferFull
	default:
		return metrics.ReasonOther
	}
}
