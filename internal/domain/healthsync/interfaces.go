package healthsync

import (
	"context"
	"time"
)

// Platform is a handle to one user's on-device health data store.
type Platform interface {
	Initialize(ctx context.Context) error
	SDKStatus(ctx context.Context) (SDKStatus, error)
	ReadRecords(ctx context.Context, metric MetricType, window TimeRange) ([]RawHealthSample, error)
}

// PlatformProvider opens a platform handle scoped to one integration connection.
type PlatformProvider interface {
	Open(ctx context.Context, userID, integrationID string) (Platform, error)
}

// RecordStore is the persistence gateway for canonical records.
type RecordStore interface {
	// Upsert writes the batch atomically and returns the number of rows written.
	Upsert(ctx context.Context, records []MetricRecord) (int, error)
	List(ctx context.Context, filter RecordFilter) ([]MetricRecord, error)
}

// RunLocker guarantees a single sync run per (user, integration).
type RunLocker interface {
	// Acquire returns ErrSyncInProgress when the key is already held.
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// RunObserver receives the outcome of every sync run, including rejected ones.
type RunObserver interface {
	ObserveSync(report SyncReport, elapsed time.Duration, err error)
}

// EventPublisher announces completed sync runs to downstream consumers.
type EventPublisher interface {
	PublishSyncCompleted(ctx context.Context, report SyncReport) error
}
