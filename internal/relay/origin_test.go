package relay

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	allowed := []string{"https://chat.example.com", " http://localhost:3000/ ", ""}

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no list allows anything", nil, "https://evil.com", true},
		{"no list allows empty origin", nil, "", true},
		{"empty origin", allowed, "", true},
		{"exact match", allowed, "https://chat.example.com", true},
		{"trimmed entry", allowed, "http://localhost:3000", true},
		{"different host", allowed, "https://evil.com", false},
		{"different scheme", allowed, "http://chat.example.com", false},
		{"different port", allowed, "http://localhost:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewCheckOrigin(tt.allowed, testLogger())
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}
