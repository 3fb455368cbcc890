package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SessionPurger deletes expired session rows.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// SessionPurgeJob runs the periodic database session cleanup.
type SessionPurgeJob struct {
	purger SessionPurger
	logger *slog.Logger
}

// NewSessionPurgeJob constructs the job.
func NewSessionPurgeJob(purger SessionPurger, logger *slog.Logger) *SessionPurgeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionPurgeJob{purger: purger, logger: logger}
}

// Handle processes TaskSessionPurge tasks.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	removed, err := j.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		j.logger.Error("purge sessions", slog.Any("error", err))
		return err
	}
	if removed > 0 {
		j.logger.Info("purged expired sessions", slog.Int64("removed", removed))
	}
	return nil
}
