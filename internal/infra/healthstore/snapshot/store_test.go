package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

type fakeObjects struct {
	objects map[string]string
	gets    map[string]int
	err     error
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	if f.gets == nil {
		f.gets = map[string]int{}
	}
	f.gets[key]++
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return []byte(body), nil
}

func day() healthsync.TimeRange {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	return healthsync.TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

func TestSnapshotReadsExportedMetric(t *testing.T) {
	objects := &fakeObjects{objects: map[string]string{
		"exports/user-1/hc/manifest.json": `{"sdkStatus":"available"}`,
		"exports/user-1/hc/Weight.json": `[
			{"startTime":"2024-06-30T07:00:00Z","originId":"scale","payload":{"weight":{"inKilograms":70.1}}},
			{"startTime":"2024-07-01T07:00:00Z","originId":"scale","payload":{"weight":{"inKilograms":69.8}}}
		]`,
	}}
	provider := NewProvider(objects, "/exports/")
	platform, err := provider.Open(context.Background(), "user-1", "hc")
	require.NoError(t, err)
	require.NoError(t, platform.Initialize(context.Background()))

	status, err := platform.SDKStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, healthsync.SDKAvailable, status)

	samples, err := platform.ReadRecords(context.Background(), healthsync.MetricWeight, day())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, healthsync.MetricWeight, samples[0].MetricType)
	value, ok := healthsync.ExtractFirst(samples[0])
	require.True(t, ok)
	require.InDelta(t, 69.8, value, 1e-9)

	_, err = platform.ReadRecords(context.Background(), healthsync.MetricWeight, day())
	require.NoError(t, err)
	require.Equal(t, 1, objects.gets["exports/user-1/hc/Weight.json"])
}

func TestSnapshotMissingExportIsEmpty(t *testing.T) {
	objects := &fakeObjects{objects: map[string]string{
		"user-1/hc/manifest.json": `{"sdkStatus":"needs_update"}`,
	}}
	platform, err := NewProvider(objects, "").Open(context.Background(), "user-1", "hc")
	require.NoError(t, err)
	require.NoError(t, platform.Initialize(context.Background()))

	status, _ := platform.SDKStatus(context.Background())
	require.Equal(t, healthsync.SDKNeedsUpdate, status)

	samples, err := platform.ReadRecords(context.Background(), healthsync.MetricSteps, day())
	require.NoError(t, err)
	require.Empty(t, samples)
}

func TestSnapshotInitializeWithoutManifestFails(t *testing.T) {
	platform, err := NewProvider(&fakeObjects{}, "").Open(context.Background(), "user-1", "hc")
	require.NoError(t, err)
	err = platform.Initialize(context.Background())
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestSnapshotPropagatesStorageErrors(t *testing.T) {
	boom := errors.New("bucket offline")
	platform, err := NewProvider(&fakeObjects{err: boom}, "").Open(context.Background(), "user-1", "hc")
	require.NoError(t, err)
	_, err = platform.ReadRecords(context.Background(), healthsync.MetricSteps, day())
	require.ErrorIs(t, err, boom)
}

func TestSnapshotRejectsPathIDs(t *testing.T) {
	_, err := NewProvider(&fakeObjects{}, "").Open(context.Background(), "../other", "hc")
	require.Error(t, err)
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "account.r2.cloudflarestorage.com", sanitizeEndpoint("https://account.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
}
