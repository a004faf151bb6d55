package healthstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
	"github.com/yanqian/healthsync/internal/infra/metricrepo"
	"github.com/yanqian/healthsync/internal/infra/runlock"
)

func TestMemoryPlatformFiltersWindow(t *testing.T) {
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	platform := NewMemoryPlatform()
	platform.Add(
		healthsync.RawHealthSample{MetricType: healthsync.MetricWeight, StartTime: day.Add(-time.Minute)},
		healthsync.RawHealthSample{MetricType: healthsync.MetricWeight, StartTime: day},
		healthsync.RawHealthSample{MetricType: healthsync.MetricWeight, StartTime: day.AddDate(0, 0, 1)},
		healthsync.RawHealthSample{MetricType: healthsync.MetricSleepSession, StartTime: day.Add(-time.Hour), EndTime: day.Add(6 * time.Hour)},
	)
	window := healthsync.TimeRange{Start: day, End: day.AddDate(0, 0, 1)}

	weights, err := platform.ReadRecords(context.Background(), healthsync.MetricWeight, window)
	require.NoError(t, err)
	require.Len(t, weights, 1)

	sleep, err := platform.ReadRecords(context.Background(), healthsync.MetricSleepSession, window)
	require.NoError(t, err)
	require.Len(t, sleep, 1)

	boom := errors.New("boom")
	platform.FailReads(healthsync.MetricWeight, boom)
	_, err = platform.ReadRecords(context.Background(), healthsync.MetricWeight, window)
	require.ErrorIs(t, err, boom)
	platform.FailReads(healthsync.MetricWeight, nil)
	_, err = platform.ReadRecords(context.Background(), healthsync.MetricWeight, window)
	require.NoError(t, err)
}

func TestParseSDKStatus(t *testing.T) {
	require.Equal(t, healthsync.SDKAvailable, ParseSDKStatus("available"))
	require.Equal(t, healthsync.SDKNeedsUpdate, ParseSDKStatus("needs_update"))
	require.Equal(t, healthsync.SDKUnavailable, ParseSDKStatus("provider_missing"))
}

func TestSyncAgainstMemoryAdapters(t *testing.T) {
	today := time.Now().UTC()
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	provider := NewMemoryProvider()
	platform := provider.Platform("user-1", "hc")
	platform.Add(
		healthsync.RawHealthSample{MetricType: healthsync.MetricSteps, StartTime: day.Add(time.Hour), EndTime: day.Add(2 * time.Hour), Payload: map[string]any{"count": 800}},
		healthsync.RawHealthSample{MetricType: healthsync.MetricDistance, StartTime: day.Add(time.Hour), EndTime: day.Add(2 * time.Hour), Payload: map[string]any{"distance": map[string]any{"inKilometers": 0.6}}},
	)
	for _, metric := range healthsync.MetricsFor(healthsync.CategoryVitals) {
		platform.FailReads(metric, errors.New("vitals provider crashed"))
	}

	repo := metricrepo.NewMemoryRepository()
	svc := healthsync.NewService(
		healthsync.Config{},
		provider,
		repo,
		runlock.NewMemoryLocker(),
		nil,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	report, err := svc.SyncWearablesData(context.Background(), "user-1", "hc", 1)
	require.NoError(t, err)
	require.Equal(t, []healthsync.Category{healthsync.CategoryVitals}, report.FailedCategories())
	require.Equal(t, 2, repo.Len())

	_, err = svc.SyncWearablesData(context.Background(), "user-1", "hc", 1)
	require.NoError(t, err)
	require.Equal(t, 2, repo.Len())
}
