package ambient

import (
	"context"
	"time"
)

// Sleep is the single cooperative-sleep abstraction used by every wait
// in this module — the Wait verdict dispatch and the obstacle
// pre/post-click delays. Routing every wait through here (instead of a
// bare time.Sleep) makes cancellation uniform: a canceled context, or
// one whose own deadline has passed, returns immediately instead of
// blocking for the full duration. The Run Executor does not attach the
// run's wall-clock deadline to the context it passes down, so a Wait
// verdict's sleep runs its full length even past that deadline; the
// step loop's next deadline check then fails the run.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
