package healthsync

import (
	"context"
	"fmt"
)

// RecordReader queries one platform handle and returns prioritized samples.
type RecordReader struct {
	platform  Platform
	available bool
}

// NewRecordReader binds a reader to an initialized platform. When the SDK is
// not available every read yields an empty result without calling the platform.
func NewRecordReader(platform Platform, status SDKStatus) *RecordReader {
	return &RecordReader{platform: platform, available: status == SDKAvailable}
}

// Read returns the samples of metric inside window, ordered by origin
// priority and recency.
func (r *RecordReader) Read(ctx context.Context, metric MetricType, window TimeRange) ([]RawHealthSample, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if !r.available {
		return nil, nil
	}
	samples, err := r.platform.ReadRecords(ctx, metric, window)
	if err != nil {
		if degradesToEmpty(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", metric, err)
	}
	return Prioritize(samples), nil
}
