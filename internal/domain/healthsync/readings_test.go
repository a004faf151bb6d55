package healthsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeTypedReadings(t *testing.T) {
	start := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	reading, ok := Decode(RawHealthSample{
		MetricType: MetricBloodPressure,
		StartTime:  start,
		OriginID:   originNative,
		Payload: map[string]any{
			"systolic":  map[string]any{"inMillimetersOfMercury": 120.0},
			"diastolic": map[string]any{"inMillimetersOfMercury": 80.0},
		},
	})
	require.True(t, ok)
	bp, isBP := reading.(BloodPressure)
	require.True(t, isBP)
	require.Equal(t, 120.0, bp.Systolic)
	require.Equal(t, 80.0, bp.Diastolic)
	require.Equal(t, PriorityNative, bp.Priority)

	reading, ok = Decode(RawHealthSample{
		MetricType: MetricNutrition,
		StartTime:  start,
		Payload: map[string]any{
			"energy":  map[string]any{"inKilocalories": 650.0},
			"protein": map[string]any{"inGrams": 30.0},
			"fat":     12,
		},
	})
	require.True(t, ok)
	meal := reading.(Nutrition)
	require.Equal(t, 650.0, meal.EnergyKcal)
	require.InDelta(t, 30, meal.ProteinG, 1e-9)
	require.Equal(t, 12.0, meal.FatG)
	require.Zero(t, meal.CarbsG)

	reading, ok = Decode(RawHealthSample{MetricType: MetricMenstruationFlow, StartTime: start, Payload: map[string]any{"flow": 2}})
	require.True(t, ok)
	require.Equal(t, "medium", reading.(Flow).Level)

	reading, ok = Decode(RawHealthSample{MetricType: MetricWeight, StartTime: start, Payload: map[string]any{"weight": map[string]any{"inKilograms": 70.0}}})
	require.True(t, ok)
	require.Equal(t, Quantity{
		SampleMeta: SampleMeta{Metric: MetricWeight, Start: start, Priority: PriorityOther},
		Value:      70,
		Unit:       UnitKilograms,
	}, reading)
}

func TestDecodeRejectsUnusableSamples(t *testing.T) {
	start := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	samples := []RawHealthSample{
		{MetricType: MetricSleepSession, StartTime: start},
		{MetricType: MetricExerciseSession, StartTime: start, EndTime: start.Add(-time.Minute)},
		{MetricType: MetricBloodPressure, StartTime: start, Payload: map[string]any{"systolic": 120}},
		{MetricType: MetricMenstruationFlow, StartTime: start, Payload: map[string]any{"flow": 0}},
		{MetricType: MetricSteps, StartTime: start, Payload: map[string]any{"unknown": 10}},
		{MetricType: MetricSteps, StartTime: start, Payload: map[string]any{"count": 10}},
	}
	readings, skipped := DecodeAll(samples)
	require.Len(t, readings, 1)
	require.Equal(t, 5, skipped)
}
