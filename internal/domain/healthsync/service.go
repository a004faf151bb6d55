package healthsync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/healthsync/pkg/errors"
)

// Service runs backfills from a user's health platform into the record store.
type Service interface {
	SyncWearablesData(ctx context.Context, userID, integrationID string, daysToSync int) (SyncReport, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]MetricRecord, error)
}

type service struct {
	cfg       Config
	platforms PlatformProvider
	store     RecordStore
	locker    RunLocker
	events    EventPublisher
	observer  RunObserver
	logger    *slog.Logger
	now       func() time.Time
	newRunID  func() uuid.UUID
}

// NewService wires the sync orchestrator. events and observer may be nil.
func NewService(
	cfg Config,
	platforms PlatformProvider,
	store RecordStore,
	locker RunLocker,
	events EventPublisher,
	observer RunObserver,
	logger *slog.Logger,
) Service {
	return &service{
		cfg:       cfg.withDefaults(),
		platforms: platforms,
		store:     store,
		locker:    locker,
		events:    events,
		observer:  observer,
		logger:    logger.With("component", "healthsync.service"),
		now:       time.Now,
		newRunID:  uuid.New,
	}
}

// LockKey scopes the run lock to one user connection.
func LockKey(userID, integrationID string) string {
	return userID + ":" + integrationID
}

func (s *service) SyncWearablesData(ctx context.Context, userID, integrationID string, daysToSync int) (SyncReport, error) {
	started := s.now()
	userID = strings.TrimSpace(userID)
	integrationID = strings.TrimSpace(integrationID)
	report := SyncReport{
		RunID:         s.newRunID(),
		UserID:        userID,
		IntegrationID: integrationID,
		Phase:         PhaseInitializing,
		StartedAt:     started.UTC(),
	}

	err := s.sync(ctx, &report, daysToSync)
	report.FinishedAt = s.now().UTC()
	elapsed := report.FinishedAt.Sub(report.StartedAt)
	if s.observer != nil {
		s.observer.ObserveSync(report, elapsed, err)
	}
	if err == nil && s.events != nil {
		if pubErr := s.events.PublishSyncCompleted(context.WithoutCancel(ctx), report); pubErr != nil {
			s.logger.Warn("publish sync completed failed", "run_id", report.RunID.String(), "error", pubErr)
		}
	}
	return report, err
}

func (s *service) sync(ctx context.Context, report *SyncReport, daysToSync int) error {
	if report.UserID == "" || report.IntegrationID == "" {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "userId and integrationId are required", nil)
	}
	if daysToSync <= 0 {
		daysToSync = s.cfg.DefaultDays
	}
	if daysToSync > s.cfg.MaxDays {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "daysToSync exceeds the allowed maximum", nil)
	}
	plan := newSyncPlan(report.StartedAt, daysToSync, s.cfg.Location)
	report.Window = plan.window

	logger := s.logger.With(
		"run_id", report.RunID.String(),
		"user_id", report.UserID,
		"integration_id", report.IntegrationID,
	)

	release, err := s.locker.Acquire(ctx, LockKey(report.UserID, report.IntegrationID))
	if err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			return apperrors.Wrap(apperrors.CodeSyncInProgress, "a sync is already running for this integration", err)
		}
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to acquire sync lock", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release sync lock failed", "error", err)
		}
	}()

	reader, err := s.openReader(ctx, logger, report)
	if err != nil {
		return err
	}

	report.Phase = PhaseReading
	results, records, err := s.syncCategories(ctx, logger, reader, plan, report)
	report.Categories = results
	if err != nil {
		logger.Warn("sync canceled", "phase", report.Phase, "error", err)
		return err
	}

	report.Phase = PhaseBatching
	acc := newAccumulator()
	acc.add(records...)
	report.RecordsAccumulated = acc.len()
	batches := acc.batches(s.cfg.BatchSize)

	report.Phase = PhasePersisting
	for i, batch := range batches {
		written, err := s.store.Upsert(ctx, batch)
		if err != nil {
			report.BatchesFailed++
			logger.Error("persist batch failed", "phase", report.Phase, "batch_index", i, "batch_size", len(batch), "error", err)
			continue
		}
		report.RecordsWritten += written
	}

	report.Phase = PhaseDone
	logger.Info("sync finished",
		"phase", report.Phase,
		"records", report.RecordsWritten,
		"batches_failed", report.BatchesFailed,
		"failed_categories", len(report.FailedCategories()),
	)
	return nil
}

func (s *service) openReader(ctx context.Context, logger *slog.Logger, report *SyncReport) (*RecordReader, error) {
	platform, err := s.platforms.Open(ctx, report.UserID, report.IntegrationID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePlatformInitFailed, "failed to open health platform", err)
	}
	if err := platform.Initialize(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.CodePlatformInitFailed, "failed to initialize health platform", err)
	}
	status, err := platform.SDKStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePlatformInitFailed, "failed to query health platform status", err)
	}
	report.PlatformStatus = status
	if status != SDKAvailable {
		logger.Warn("health platform unavailable, reads will be empty", "sdk_status", status)
	}
	return NewRecordReader(platform, status), nil
}

func (s *service) syncCategories(ctx context.Context, logger *slog.Logger, reader *RecordReader, plan syncPlan, report *SyncReport) ([]CategoryResult, []MetricRecord, error) {
	results := make([]CategoryResult, len(Categories))
	perCategory := make([][]MetricRecord, len(Categories))
	run := func(i int) {
		category := Categories[i]
		if ctx.Err() != nil {
			results[i] = CategoryResult{Category: category, Error: "canceled"}
			return
		}
		results[i], perCategory[i] = s.syncCategory(ctx, logger, reader, plan, category, report)
	}

	if s.cfg.ParallelCategories {
		var wg sync.WaitGroup
		for i := range Categories {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range Categories {
			run(i)
		}
	}

	if err := ctx.Err(); err != nil {
		return results, nil, apperrors.Wrap(apperrors.CodeCanceled, "sync canceled", err)
	}
	var records []MetricRecord
	for _, recs := range perCategory {
		records = append(records, recs...)
	}
	return results, records, nil
}

func (s *service) syncCategory(ctx context.Context, logger *slog.Logger, reader *RecordReader, plan syncPlan, category Category, report *SyncReport) (CategoryResult, []MetricRecord) {
	result := CategoryResult{Category: category}
	metrics := MetricsFor(category)
	var records []MetricRecord
	for _, metric := range metrics {
		outcome, err := aggregateMetric(ctx, reader, metric, plan)
		result.SkippedSamples += outcome.skipped
		if err != nil {
			result.FailedMetrics = append(result.FailedMetrics, metric)
			logger.Warn("metric read failed", "category", category, "metric_type", metric, "error", err)
			continue
		}
		for _, agg := range outcome.aggregates {
			records = append(records, agg.Record(report.UserID, report.IntegrationID, plan.loc))
		}
	}
	result.Records = len(records)

	switch {
	case ctx.Err() != nil:
		result.Error = "canceled"
	case len(metrics) > 0 && len(result.FailedMetrics) == len(metrics):
		result.Error = "all metric reads failed"
	}
	if !result.Succeeded() {
		logger.Error("category failed", "category", category, "error", result.Error)
	}
	return result, records
}

func (s *service) ListRecords(ctx context.Context, filter RecordFilter) ([]MetricRecord, error) {
	filter.UserID = strings.TrimSpace(filter.UserID)
	if filter.UserID == "" {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "userId is required", nil)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, ErrInvalidRange
	}
	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to list records", err)
	}
	return records, nil
}

// accumulator buffers one run's records, last write wins per conflict key.
type accumulator struct {
	index   map[RecordKey]int
	records []MetricRecord
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[RecordKey]int)}
}

func (a *accumulator) add(records ...MetricRecord) {
	for _, record := range records {
		key := record.Key()
		if i, ok := a.index[key]; ok {
			a.records[i] = record
			continue
		}
		a.index[key] = len(a.records)
		a.records = append(a.records, record)
	}
}

func (a *accumulator) len() int {
	return len(a.records)
}

func (a *accumulator) batches(size int) [][]MetricRecord {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]MetricRecord
	for start := 0; start < len(a.records); start += size {
		end := min(start+size, len(a.records))
		out = append(out, a.records[start:end])
	}
	return out
}
