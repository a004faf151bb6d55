package events

import (
	"context"
	"log/slog"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

// LogPublisher records completions in the application log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs the fallback publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "events.log")}
}

// PublishSyncCompleted implements healthsync.EventPublisher.
func (p *LogPublisher) PublishSyncCompleted(_ context.Context, report healthsync.SyncReport) error {
	p.logger.Info("sync completed",
		"runId", report.RunID,
		"userId", report.UserID,
		"integrationId", report.IntegrationID,
		"recordsWritten", report.RecordsWritten,
		"partial", report.Partial(),
	)
	return nil
}

var _ healthsync.EventPublisher = (*LogPublisher)(nil)
