package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/internal/service"
)

// ReconcileJob is the periodic sweep behind the lifecycle's two loose ends:
// editing locks whose holders walked away, and publish attempts that ended
// partial (remote job exists, local post does not reflect it).
type ReconcileJob struct {
	pr repository.PostRepository
	ps service.PublishService
}

func NewReconcileJob(pr repository.PostRepository, ps service.PublishService) *ReconcileJob {
	return &ReconcileJob{pr: pr, ps: ps}
}

func (c *ReconcileJob) Run() {
	ctx := context.Background()

	cutoff := time.Now().Add(-service.EditingLockTTL)
	cleared, err := c.pr.ClearExpiredLocks(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
	} else if cleared > 0 {
		slog.Info("cleared expired editing locks", "count", cleared)
	}

	if resumed := c.ps.ResumePartials(ctx); resumed > 0 {
		slog.Info("reconciled partial publish attempts", "count", resumed)
	}
}
