package httputil

import (
	"net/http"
	"testing"
	"time"

	"listing_engine/config"
)

func TestNewClients(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.HTTPConfig
		want time.Duration
	}{
		{"default timeout", config.HTTPConfig{}, 30 * time.Second},
		{"configured timeout", config.HTTPConfig{UpstreamTimeout: 4 * time.Second}, 4 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClients(&tt.cfg)
			if c.API.Timeout != tt.want {
				t.Fatalf("expected timeout %s, got %s", tt.want, c.API.Timeout)
			}
			tr, ok := c.API.Transport.(*http.Transport)
			if !ok || tr.MaxIdleConnsPerHost != 32 {
				t.Fatalf("unexpected transport %#v", c.API.Transport)
			}
		})
	}
}
