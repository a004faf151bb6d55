package metricrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

func record(metric healthsync.CanonicalMetric, ts time.Time, value map[string]any) healthsync.MetricRecord {
	return healthsync.MetricRecord{
		UserID:        "user-1",
		IntegrationID: "health-connect",
		MetricType:    metric,
		Value:         value,
		RecordedAt:    ts,
	}
}

// exerciseRecordStore runs the behaviour every RecordStore must share.
func exerciseRecordStore(t *testing.T, store healthsync.RecordStore) {
	t.Helper()
	ctx := context.Background()
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	written, err := store.Upsert(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, written)

	written, err = store.Upsert(ctx, []healthsync.MetricRecord{
		record(healthsync.CanonicalSteps, day.AddDate(0, 0, 1), map[string]any{"count": 900.0}),
		record(healthsync.CanonicalSteps, day, map[string]any{"count": 1200.0}),
		record(healthsync.CanonicalHeartRate, day.Add(8*time.Hour), map[string]any{"bpm": 72.33, "source": "com.google.android.apps.healthdata"}),
	})
	require.NoError(t, err)
	require.Equal(t, 3, written)

	all, err := store.List(ctx, healthsync.RecordFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, day.Equal(all[0].RecordedAt))
	require.Equal(t, healthsync.CanonicalHeartRate, all[1].MetricType)
	require.Equal(t, 72.33, all[1].Value["bpm"])

	// same conflict key in another zone updates in place
	_, err = store.Upsert(ctx, []healthsync.MetricRecord{
		record(healthsync.CanonicalSteps, day.In(time.FixedZone("SGT", 8*60*60)), map[string]any{"count": 1500.0}),
	})
	require.NoError(t, err)

	steps, err := store.List(ctx, healthsync.RecordFilter{UserID: "user-1", MetricType: healthsync.CanonicalSteps})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Equal(t, 1500.0, steps[0].Value["count"])

	windowed, err := store.List(ctx, healthsync.RecordFilter{
		UserID:        "user-1",
		IntegrationID: "health-connect",
		From:          day.Add(time.Hour),
		To:            day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	require.Equal(t, healthsync.CanonicalHeartRate, windowed[0].MetricType)

	limited, err := store.List(ctx, healthsync.RecordFilter{UserID: "user-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	other, err := store.List(ctx, healthsync.RecordFilter{UserID: "user-2"})
	require.NoError(t, err)
	require.Empty(t, other)
}
