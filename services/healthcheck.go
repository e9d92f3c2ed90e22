package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthReport is the outcome of probing every configured source.
type HealthReport struct {
	Status  string            `json:"status"`
	Sources map[string]string `json:"sources"`
}

// HealthcheckService probes the upstream sources concurrently.
type HealthcheckService struct {
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthcheckService(timeout time.Duration) *HealthcheckService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthcheckService{checks: make(map[string]Pinger), timeout: timeout}
}

// Register adds a named source. A nil pinger is reported as not configured.
func (s *HealthcheckService) Register(name string, p Pinger) {
	s.checks[name] = p
}

// Check pings every source. Status is "ok" only when all configured
// sources answer; unconfigured sources do not degrade it.
func (s *HealthcheckService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := HealthReport{Status: "ok", Sources: make(map[string]string, len(names))}
	var mu sync.Mutex
	var g errgroup.Group
	for _, name := range names {
		name := name
		p := s.checks[name]
		g.Go(func() error {
			result := "ok"
			if p == nil {
				result = "not configured"
			} else if err := p.Ping(ctx); err != nil {
				result = "error: " + err.Error()
			}
			mu.Lock()
			report.Sources[name] = result
			if p != nil && result != "ok" {
				report.Status = "degraded"
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return report
}
