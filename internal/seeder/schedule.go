package seeder

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// RunScheduled executes run under a cron spec until ctx is canceled.
// Used for unattended catch-up crawls; each invocation opens its own
// ledger and resumes whatever the previous one left behind. Overlap is
// prevented by skipping a tick while the prior run is still going.
func RunScheduled(ctx context.Context, spec string, run func(context.Context) error) error {
	c := cron.New()

	running := make(chan struct{}, 1)
	_, err := c.AddFunc(spec, func() {
		select {
		case running <- struct{}{}:
		default:
			log.Printf("[seeder] previous scheduled run still active, skipping tick")
			return
		}
		defer func() { <-running }()

		if err := run(ctx); err != nil {
			log.Printf("[seeder] scheduled run: %v", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	return ctx.Err()
}
