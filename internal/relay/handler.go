// handler.go
// Connection lifecycle: upgrade HTTP to WebSocket, create a client with a
// UUID, welcome it, register it, and run its read and write loops until the
// transport goes away. Errors on one connection never reach the others.

package relay

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"realtime-relay/internal/metrics"
)

// DefaultWelcome is sent once to every new connection.
const DefaultWelcome = "Willkommen beim WebSocket-Server! Du bist jetzt verbunden."

// Options configures per-connection behaviour.
type Options struct {
	WelcomeMessage string
	SendTimeout    time.Duration
	SendBuffer     int
	PingInterval   time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		WelcomeMessage: DefaultWelcome,
		SendTimeout:    5 * time.Second,
		SendBuffer:     64,
		PingInterval:   54 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// Handler accepts WebSocket connections and wires them to the registry and
// dispatcher.
type Handler struct {
	registry   *Registry
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
	log        logrus.FieldLogger
	metrics    *metrics.Relay
}

func NewHandler(registry *Registry, dispatcher *Dispatcher, opts Options, log logrus.FieldLogger, m *metrics.Relay) *Handler {
	return &Handler{
		registry:   registry,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(opts.AllowedOrigins, log),
		},
		opts:    opts,
		log:     log,
		metrics: m,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Upgrade replies with an HTTP error on failure.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithField("remote_addr", r.RemoteAddr).WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := newClient(conn, h.opts, h.log.WithField("remote_addr", r.RemoteAddr))
	h.establish(client)
	go client.write()

	err = client.read(func(message []byte) {
		client.log.WithField("bytes", len(message)).Infof("Message received: %s", message)
		h.dispatcher.OnMessage(client, message)
	})
	h.terminate(client, err)
}

// CloseAll closes every open connection. Used on shutdown.
func (h *Handler) CloseAll() {
	h.registry.ForEachOpen(func(p Peer) {
		p.Close()
	})
}

func (h *Handler) establish(c *Client) {
	c.advance(StateOpen)
	// Queue the welcome before registering so it precedes any broadcast.
	if err := c.Send([]byte(h.opts.WelcomeMessage)); err != nil {
		c.log.WithError(err).Warn("Failed to send welcome message")
	}
	if h.registry.Register(c) {
		h.metrics.ConnectionsTotal.Inc()
		h.metrics.ActiveConnections.Inc()
	}
	c.log.WithField("connections", h.registry.Len()).Info("Client connected")
}

func (h *Handler) terminate(c *Client, err error) {
	if isTransportError(err) {
		c.log.WithError(err).Error("WebSocket error")
	}

	c.advance(StateClosing)
	if h.registry.Unregister(c) {
		h.metrics.ActiveConnections.Dec()
	}
	c.Close()
	c.advance(StateClosed)
	c.log.WithField("connections", h.registry.Len()).Info("Client disconnected")
}
