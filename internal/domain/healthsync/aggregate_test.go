package healthsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeAllPrioritized(t *testing.T, samples []RawHealthSample) []Reading {
	t.Helper()
	readings, skipped := DecodeAll(Prioritize(samples))
	require.Zero(t, skipped)
	return readings
}

func heartRate(ts time.Time, origin string, bpm float64) RawHealthSample {
	return RawHealthSample{
		MetricType: MetricHeartRate,
		StartTime:  ts,
		OriginID:   origin,
		Payload:    map[string]any{"samples": []any{map[string]any{"beatsPerMinute": bpm}}},
	}
}

func TestHourlyHeartRateAveragesAllOrigins(t *testing.T) {
	hour := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		heartRate(hour.Add(50*time.Minute), originLowTrust, 70),
		heartRate(hour.Add(5*time.Minute), originNative, 72),
		heartRate(hour.Add(40*time.Minute), originNative, 75),
	}

	aggs := HourlyHeartRate(decodeAllPrioritized(t, samples), time.UTC)
	require.Len(t, aggs, 1)
	agg := aggs[0]
	require.Equal(t, CanonicalHeartRate, agg.Metric)
	require.True(t, hour.Equal(agg.RecordedAt))
	require.Equal(t, 72.33, agg.Value["bpm"])
	require.Equal(t, 70.0, agg.Value["min_bpm"])
	require.Equal(t, 75.0, agg.Value["max_bpm"])
	require.Equal(t, 3, agg.Value["sample_count"])
	require.Equal(t, originNative, agg.Value["source"])
}

func TestHourlyHeartRateSourceIgnoresInputOrder(t *testing.T) {
	hour := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	a := heartRate(hour.Add(10*time.Minute), originNative, 64)
	b := heartRate(hour.Add(20*time.Minute), originLowTrust, 90)

	for _, order := range [][]RawHealthSample{{a, b}, {b, a}} {
		aggs := HourlyHeartRate(decodeAllPrioritized(t, order), time.UTC)
		require.Len(t, aggs, 1)
		require.Equal(t, originNative, aggs[0].Value["source"])
	}
}

func TestHourlyHeartRateSplitsHours(t *testing.T) {
	base := time.Date(2024, 7, 1, 8, 59, 0, 0, time.UTC)
	samples := []RawHealthSample{
		heartRate(base, originNative, 60),
		heartRate(base.Add(2*time.Minute), originNative, 80),
	}
	aggs := HourlyHeartRate(decodeAllPrioritized(t, samples), time.UTC)
	require.Len(t, aggs, 2)
	require.Equal(t, 8, aggs[0].RecordedAt.Hour())
	require.Equal(t, 9, aggs[1].RecordedAt.Hour())
}

func TestDailySumIsSparse(t *testing.T) {
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		{MetricType: MetricSteps, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour), OriginID: originFit, Payload: map[string]any{"count": 1200}},
		{MetricType: MetricSteps, StartTime: day.Add(18 * time.Hour), EndTime: day.Add(19 * time.Hour), OriginID: originNative, Payload: map[string]any{"count": 800}},
		{MetricType: MetricSteps, StartTime: day.Add(36 * time.Hour), EndTime: day.Add(37 * time.Hour), OriginID: originNative, Payload: map[string]any{"count": 0}},
	}
	aggs := DailySum(MetricSteps, decodeAllPrioritized(t, samples), time.UTC)
	require.Len(t, aggs, 1)
	require.True(t, day.Equal(aggs[0].RecordedAt))
	require.Equal(t, 2000.0, aggs[0].Value["count"])
	require.Equal(t, originNative, aggs[0].Value["source"])
	require.Equal(t, "count", aggs[0].Value["unit"])
}

func TestDailySumUsesLocalCalendarDay(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*60*60)
	// 17:00 UTC is 01:00 the next day in SGT
	late := time.Date(2024, 7, 1, 17, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		{MetricType: MetricHydration, StartTime: late, Payload: map[string]any{"volume": map[string]any{"inLiters": 0.5}}},
	}
	aggs := DailySum(MetricHydration, decodeAllPrioritized(t, samples), sgt)
	require.Len(t, aggs, 1)
	require.Equal(t, "2024-07-02", aggs[0].Value["date"])
	require.Equal(t, 500.0, aggs[0].Value["ml"])
}

func TestDailySumNutritionMacros(t *testing.T) {
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		{MetricType: MetricNutrition, StartTime: day.Add(8 * time.Hour), Payload: map[string]any{"energy": map[string]any{"inJoules": 4184000.0}, "protein": 20}},
		{MetricType: MetricNutrition, StartTime: day.Add(13 * time.Hour), Payload: map[string]any{"energy": 15000, "protein": 10}},
	}
	aggs := DailySum(MetricNutrition, decodeAllPrioritized(t, samples), time.UTC)
	require.Len(t, aggs, 1)
	require.Equal(t, 1015.0, aggs[0].Value["kcal"])
	require.Equal(t, 30.0, aggs[0].Value["protein_g"])
}

func TestMostRecentPicksLatestSample(t *testing.T) {
	base := time.Date(2024, 7, 1, 7, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		{MetricType: MetricWeight, StartTime: base, OriginID: originNative, Payload: map[string]any{"weight": map[string]any{"inKilograms": 71.0}}},
		{MetricType: MetricWeight, StartTime: base.Add(48 * time.Hour), OriginID: originLowTrust, Payload: map[string]any{"weight": map[string]any{"inKilograms": 70.2}}},
	}
	agg, ok := MostRecent(MetricWeight, decodeAllPrioritized(t, samples))
	require.True(t, ok)
	require.Equal(t, CanonicalWeight, agg.Metric)
	require.Equal(t, 70.2, agg.Value["kg"])
	require.True(t, base.Add(48*time.Hour).Equal(agg.RecordedAt))

	_, ok = MostRecent(MetricWeight, nil)
	require.False(t, ok)
}

func TestMostRecentBloodPressure(t *testing.T) {
	ts := time.Date(2024, 7, 1, 7, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{{
		MetricType: MetricBloodPressure,
		StartTime:  ts,
		Payload:    map[string]any{"systolic": 118, "diastolic": 76},
	}}
	agg, ok := MostRecent(MetricBloodPressure, decodeAllPrioritized(t, samples))
	require.True(t, ok)
	require.Equal(t, CanonicalBloodPressure, agg.Metric)
	require.Equal(t, 118.0, agg.Value["systolic"])
	require.Equal(t, 76.0, agg.Value["diastolic"])
}

func TestExerciseDailySumsMinutes(t *testing.T) {
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		{MetricType: MetricExerciseSession, StartTime: day.Add(7 * time.Hour), EndTime: day.Add(7*time.Hour + 30*time.Minute), OriginID: originNative},
		{MetricType: MetricExerciseSession, StartTime: day.Add(18 * time.Hour), EndTime: day.Add(18*time.Hour + 45*time.Minute), OriginID: originNative},
	}
	aggs := ExerciseDaily(decodeAllPrioritized(t, samples), time.UTC)
	require.Len(t, aggs, 1)
	require.Equal(t, 75.0, aggs[0].Value["minutes"])
	require.Equal(t, 2, aggs[0].Value["sessions"])
}

func TestSleepSessionSpanningMidnight(t *testing.T) {
	day := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	session := RawHealthSample{
		MetricType: MetricSleepSession,
		StartTime:  day.Add(-30 * time.Minute),
		EndTime:    day.Add(7 * time.Hour),
		OriginID:   originNative,
		Payload:    map[string]any{"title": "night"},
	}
	target := TimeRange{Start: day, End: day.AddDate(0, 0, 1)}
	require.True(t, sleepReadWindow(target).Contains(session.StartTime))

	aggs := SleepSessions(decodeAllPrioritized(t, []RawHealthSample{session, session}), target)
	require.Len(t, aggs, 1)
	require.True(t, session.EndTime.Equal(aggs[0].RecordedAt))
	require.InDelta(t, 7.5, aggs[0].Value["hours"], 1e-9)
	require.Equal(t, "night", aggs[0].Value["title"])

	previous := TimeRange{Start: day.AddDate(0, 0, -1), End: day}
	require.Empty(t, SleepSessions(decodeAllPrioritized(t, []RawHealthSample{session}), previous))
}

func TestLatestAggregate(t *testing.T) {
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	_, ok := Latest(nil)
	require.False(t, ok)

	latest, ok := Latest([]Aggregate{{RecordedAt: base}, {RecordedAt: base.Add(time.Hour)}, {RecordedAt: base.Add(-time.Hour)}})
	require.True(t, ok)
	require.True(t, base.Add(time.Hour).Equal(latest.RecordedAt))
}
