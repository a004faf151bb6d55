package healthsync

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/yanqian/healthsync/pkg/errors"
)

// SyncJob asks a background worker to run one backfill.
type SyncJob struct {
	UserID        string    `json:"userId"`
	IntegrationID string    `json:"integrationId"`
	DaysToSync    int       `json:"daysToSync"`
	RequestedAt   time.Time `json:"requestedAt"`
}

// JobQueue hands sync jobs to background workers.
type JobQueue interface {
	Enqueue(ctx context.Context, job SyncJob) error
}

// NewJobHandler adapts the service to a queue consumer. Failures are logged
// and left for the scheduler to re-enqueue.
func NewJobHandler(svc Service, logger *slog.Logger) func(ctx context.Context, job SyncJob) {
	logger = logger.With("component", "healthsync.jobs")
	return func(ctx context.Context, job SyncJob) {
		report, err := svc.SyncWearablesData(ctx, job.UserID, job.IntegrationID, job.DaysToSync)
		if err != nil {
			level := slog.LevelError
			if apperrors.IsCode(err, apperrors.CodeSyncInProgress) {
				level = slog.LevelInfo
			}
			logger.Log(ctx, level, "sync job failed",
				"user_id", job.UserID,
				"integration_id", job.IntegrationID,
				"code", apperrors.Code(err),
				"error", err,
			)
			return
		}
		logger.Info("sync job finished",
			"run_id", report.RunID.String(),
			"records", report.RecordsWritten,
			"partial", report.Partial(),
		)
	}
}
