package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
	apperrors "github.com/yanqian/healthsync/pkg/errors"
)

func TestRunStatus(t *testing.T) {
	ok := healthsync.SyncReport{PlatformStatus: healthsync.SDKAvailable}
	partial := healthsync.SyncReport{PlatformStatus: healthsync.SDKAvailable, BatchesFailed: 1}

	require.Equal(t, StatusSucceeded, RunStatus(ok, nil))
	require.Equal(t, StatusPartial, RunStatus(partial, nil))
	require.Equal(t, StatusRejected, RunStatus(ok, apperrors.Wrap(apperrors.CodeSyncInProgress, "busy", nil)))
	require.Equal(t, StatusCanceled, RunStatus(ok, apperrors.Wrap(apperrors.CodeCanceled, "canceled", nil)))
	require.Equal(t, StatusFailed, RunStatus(ok, apperrors.Wrap(apperrors.CodePlatformInitFailed, "init", nil)))
	require.Equal(t, StatusFailed, RunStatus(ok, errors.New("plain")))
}

func TestSyncObserverCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	observer, err := NewSyncObserver(reg)
	require.NoError(t, err)

	report := healthsync.SyncReport{
		PlatformStatus: healthsync.SDKAvailable,
		Categories: []healthsync.CategoryResult{
			{Category: healthsync.CategoryActivity, Records: 2},
			{Category: healthsync.CategoryVitals, Error: "all metric reads failed"},
		},
		RecordsWritten: 2,
	}
	observer.ObserveSync(report, 250*time.Millisecond, nil)
	observer.ObserveSync(healthsync.SyncReport{}, time.Millisecond, apperrors.Wrap(apperrors.CodeSyncInProgress, "busy", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(observer.runs.WithLabelValues(StatusPartial)))
	require.Equal(t, 1.0, testutil.ToFloat64(observer.runs.WithLabelValues(StatusRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(observer.categories.WithLabelValues("vitals", StatusFailed)))
	require.Equal(t, 1.0, testutil.ToFloat64(observer.categories.WithLabelValues("activity", StatusSucceeded)))
	require.Equal(t, 2.0, testutil.ToFloat64(observer.records))

	_, err = NewSyncObserver(reg)
	require.Error(t, err)
}
