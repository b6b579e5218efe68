// Package reaper periodically removes expired short URLs from the registry.
package reaper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type urlRepository interface {
	Reap() int
}

// Reaper runs a registry sweep on a cron schedule.
type Reaper struct {
	cron    *cron.Cron
	urlRepo urlRepository
	logger  *slog.Logger
}

// New creates a Reaper for schedule, which accepts standard cron expressions
// and descriptors such as "@every 1m".
func New(urlRepo urlRepository, schedule string, logger *slog.Logger) (*Reaper, error) {
	const op = "reaper.New"

	r := &Reaper{
		cron:    cron.New(),
		urlRepo: urlRepo,
		logger:  logger,
	}

	if _, err := r.cron.AddFunc(schedule, r.reap); err != nil {
		return nil, fmt.Errorf("%s: invalid schedule %q: %w", op, schedule, err)
	}

	return r, nil
}

// Run starts the schedule and blocks until ctx is done and a running sweep has finished.
func (r *Reaper) Run(ctx context.Context) error {
	r.cron.Start()

	<-ctx.Done()
	<-r.cron.Stop().Done()

	return nil
}

func (r *Reaper) reap() {
	if n := r.urlRepo.Reap(); n > 0 {
		r.logger.Debug("expired short urls reaped", slog.Int("count", n))
	}
}
