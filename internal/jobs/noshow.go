// Package jobs schedules background maintenance work.
package jobs

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Sweeper is the no-show sweep entry point.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StartNoShowSweeper runs the sweeper on the given cron schedule and
// returns the started scheduler so the caller can Stop it on shutdown.
func StartNoShowSweeper(svc Sweeper, schedule string, logger *log.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = log.Default()
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		moved, err := svc.Sweep(context.Background())
		if err != nil {
			logger.Printf("no-show sweep failed: %v", err)
			return
		}
		if moved > 0 {
			logger.Printf("no-show sweep moved %d reservations", moved)
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
