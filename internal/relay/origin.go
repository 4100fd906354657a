package relay

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewCheckOrigin returns a CheckOrigin function for the WebSocket upgrader.
// With no allowed origins every request is accepted. Otherwise requests
// without an Origin header (non-browser clients) and exact matches pass.
func NewCheckOrigin(allowed []string, log logrus.FieldLogger) func(r *http.Request) bool {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins[o] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		if len(origins) == 0 {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := origins[origin]; ok {
			return true
		}

		log.WithFields(logrus.Fields{
			"origin":      origin,
			"remote_addr": r.RemoteAddr,
		}).Warn("WebSocket origin rejected")
		return false
	}
}
