package healthsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	originNative   = "com.google.android.apps.healthdata"
	originFit      = "com.google.android.apps.fitness"
	originLowTrust = "com.xiaomi.wearable"
)

func TestOriginPriority(t *testing.T) {
	cases := []struct {
		origin string
		want   int
	}{
		{originNative, PriorityNative},
		{originFit, PriorityVendorCompanion},
		{"com.google.android.wearable", PriorityVendorApp},
		{originLowTrust, PriorityLowTrust},
		{"com.samsung.health", PriorityOther},
		{"", PriorityOther},
		{"  COM.GOOGLE.ANDROID.APPS.FITNESS ", PriorityVendorCompanion},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, OriginPriority(tc.origin), tc.origin)
	}
}

func TestPrioritizeOrdersByPriorityThenRecency(t *testing.T) {
	base := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		{OriginID: originLowTrust, StartTime: base.Add(50 * time.Minute)},
		{OriginID: "com.samsung.health", StartTime: base.Add(10 * time.Minute)},
		{OriginID: originNative, StartTime: base.Add(5 * time.Minute)},
		{OriginID: originNative, StartTime: base.Add(40 * time.Minute)},
	}

	got := Prioritize(samples)

	require.Len(t, got, 4)
	require.Equal(t, originNative, got[0].OriginID)
	require.Equal(t, base.Add(40*time.Minute), got[0].StartTime)
	require.Equal(t, originNative, got[1].OriginID)
	require.Equal(t, "com.samsung.health", got[2].OriginID)
	require.Equal(t, originLowTrust, got[3].OriginID)
	// input untouched
	require.Equal(t, originLowTrust, samples[0].OriginID)
}

func TestPrioritizeIsIndependentOfInputOrder(t *testing.T) {
	ts := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	a := RawHealthSample{OriginID: "com.garmin.connect", StartTime: ts}
	b := RawHealthSample{OriginID: "com.fitbit.app", StartTime: ts}

	first := Prioritize([]RawHealthSample{a, b})
	second := Prioritize([]RawHealthSample{b, a})
	require.Equal(t, first, second)
	require.Equal(t, "com.fitbit.app", first[0].OriginID)
}
