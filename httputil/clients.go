package httputil

import (
	"net"
	"net/http"
	"time"

	"listing_engine/config"
)

type Clients struct {
	API *http.Client // upstream REST sources (Supabase)
}

func NewClients(cfg *config.HTTPConfig) *Clients {
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32, // enrichment fans out against a single host
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Clients{
		API: &http.Client{Timeout: timeout, Transport: transport},
	}
}
