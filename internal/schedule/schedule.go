// Package schedule triggers the nightly ETL batch while the server runs.
package schedule

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/pwalczak/meteolog/internal/etl"
)

// Nightly runs the ETL batch once a day at the given local time ("HH:MM").
type Nightly struct {
	scheduler *gocron.Scheduler
	runner    *etl.Runner
	at        string
}

func NewNightly(runner *etl.Runner, at string, loc *time.Location) *Nightly {
	return &Nightly{
		scheduler: gocron.NewScheduler(loc),
		runner:    runner,
		at:        at,
	}
}

// Start schedules the job. SingletonMode serializes runs: the encoder mapping
// store is shared mutable state, so two batches must never overlap.
func (n *Nightly) Start(ctx context.Context) error {
	_, err := n.scheduler.Every(1).Day().At(n.at).SingletonMode().Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()

		summary, err := n.runner.Run(runCtx)
		if err != nil {
			log.Printf("schedule: nightly etl failed: %v", err)
			return
		}
		log.Printf("schedule: nightly etl done: %d ok, %d partial, %d failed",
			summary.Succeeded, summary.Partial, summary.Failed)
	})
	if err != nil {
		return err
	}

	n.scheduler.StartAsync()
	return nil
}

func (n *Nightly) Stop() {
	n.scheduler.Stop()
}
