package healthstore

import (
	"time"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

// Sample is the JSON shape of a raw record exchanged with bridges and exports.
type Sample struct {
	MetricType string         `json:"metricType"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    *time.Time     `json:"endTime,omitempty"`
	OriginID   string         `json:"originId"`
	Payload    map[string]any `json:"payload"`
}

// Raw converts the wire shape into a domain sample. metric overrides an empty
// MetricType field.
func (s Sample) Raw(metric healthsync.MetricType) healthsync.RawHealthSample {
	if s.MetricType != "" {
		metric = healthsync.MetricType(s.MetricType)
	}
	raw := healthsync.RawHealthSample{
		MetricType: metric,
		StartTime:  s.StartTime,
		OriginID:   s.OriginID,
		Payload:    s.Payload,
	}
	if s.EndTime != nil {
		raw.EndTime = *s.EndTime
	}
	if raw.Payload == nil {
		raw.Payload = map[string]any{}
	}
	return raw
}

// InWindow reports whether a sample overlaps the half-open window.
func InWindow(sample healthsync.RawHealthSample, window healthsync.TimeRange) bool {
	return sample.StartTime.Before(window.End) && !sample.Timestamp().Before(window.Start)
}

// ParseSDKStatus maps a reported status string, treating unknown values as unavailable.
func ParseSDKStatus(value string) healthsync.SDKStatus {
	switch status := healthsync.SDKStatus(value); status {
	case healthsync.SDKAvailable, healthsync.SDKNeedsUpdate, healthsync.SDKUnavailable:
		return status
	default:
		return healthsync.SDKUnavailable
	}
}
