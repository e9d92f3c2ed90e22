package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"listing_engine/logging"
)

// Triggerable allows workers to be triggered on a schedule or manually
type Triggerable interface {
	Trigger()
}

type job struct {
	name   string
	spec   string
	worker Triggerable
}

type Scheduler struct {
	cron *cron.Cron
	jobs []job
	log  *slog.Logger
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  logging.New("scheduler"),
	}
}

// Add registers worker under a cron spec. An empty spec leaves the worker
// manual-only.
func (s *Scheduler) Add(name, spec string, worker Triggerable) {
	s.jobs = append(s.jobs, job{name: name, spec: spec, worker: worker})
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduled := 0
	for _, j := range s.jobs {
		if j.spec == "" {
			s.log.Info("no schedule configured, job runs on demand only", "job", j.name)
			continue
		}
		j := j
		_, err := s.cron.AddFunc(j.spec, func() {
			if ctx.Err() != nil {
				return
			}
			s.log.Debug("triggering job", "job", j.name)
			j.worker.Trigger()
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression for %s: %w", j.name, err)
		}
		s.log.Info("job scheduled", "job", j.name, "cron", j.spec)
		scheduled++
	}
	if scheduled > 0 {
		s.cron.Start()
	}
	return nil
}

// TriggerNow runs the named job immediately.
func (s *Scheduler) TriggerNow(name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			j.worker.Trigger()
			return nil
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
