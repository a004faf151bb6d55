package healthsync

import (
	"strings"
	"time"
)

// Reading is a decoded sample. The set of implementations is closed.
type Reading interface {
	Meta() SampleMeta
	isReading()
}

// SampleMeta carries the provenance shared by every reading.
type SampleMeta struct {
	Metric   MetricType
	Start    time.Time
	End      time.Time
	Origin   string
	Priority int
}

func (m SampleMeta) Meta() SampleMeta { return m }

func (SampleMeta) isReading() {}

// Timestamp is the end of an interval sample, or the instant of a point sample.
func (m SampleMeta) Timestamp() time.Time {
	if m.End.IsZero() {
		return m.Start
	}
	return m.End
}

// Duration is zero for point samples.
func (m SampleMeta) Duration() time.Duration {
	if m.End.IsZero() || !m.End.After(m.Start) {
		return 0
	}
	return m.End.Sub(m.Start)
}

// Quantity is a scalar already normalized to Unit.
type Quantity struct {
	SampleMeta
	Value float64
	Unit  Unit
}

// BloodPressure is a paired reading in mmHg.
type BloodPressure struct {
	SampleMeta
	Systolic  float64
	Diastolic float64
}

// Nutrition is one logged meal or snack.
type Nutrition struct {
	SampleMeta
	EnergyKcal float64
	ProteinG   float64
	CarbsG     float64
	FatG       float64
}

// Session is an exercise or sleep interval.
type Session struct {
	SampleMeta
	Title string
}

// Flow is a menstruation flow observation.
type Flow struct {
	SampleMeta
	Level string
}

var flowLevels = map[int]string{1: "light", 2: "medium", 3: "heavy"}

// Decode converts a raw sample into its typed reading. It reports false when
// the payload has no usable value.
func Decode(sample RawHealthSample) (Reading, bool) {
	meta := SampleMeta{
		Metric:   sample.MetricType,
		Start:    sample.StartTime,
		End:      sample.EndTime,
		Origin:   sample.OriginID,
		Priority: OriginPriority(sample.OriginID),
	}
	switch sample.MetricType {
	case MetricExerciseSession, MetricSleepSession:
		if meta.Duration() <= 0 {
			return nil, false
		}
		title, _ := sample.Payload["title"].(string)
		return Session{SampleMeta: meta, Title: title}, true
	case MetricBloodPressure:
		systolic, okS := ExtractValue(sample, "systolic")
		diastolic, okD := ExtractValue(sample, "diastolic")
		if !okS || !okD || systolic <= 0 || diastolic <= 0 {
			return nil, false
		}
		return BloodPressure{SampleMeta: meta, Systolic: systolic, Diastolic: diastolic}, true
	case MetricNutrition:
		energy, ok := ExtractFirst(sample)
		if !ok {
			return nil, false
		}
		return Nutrition{
			SampleMeta: meta,
			EnergyKcal: energy,
			ProteinG:   extractGrams(sample.Payload, "protein"),
			CarbsG:     extractGrams(sample.Payload, "totalCarbohydrate", "carbs"),
			FatG:       extractGrams(sample.Payload, "totalFat", "fat"),
		}, true
	case MetricMenstruationFlow:
		level, ok := decodeFlow(sample.Payload["flow"])
		if !ok {
			return nil, false
		}
		return Flow{SampleMeta: meta, Level: level}, true
	default:
		unit := CanonicalUnit(sample.MetricType)
		if unit == "" {
			return nil, false
		}
		value, ok := ExtractFirst(sample)
		if !ok {
			return nil, false
		}
		return Quantity{SampleMeta: meta, Value: value, Unit: unit}, true
	}
}

// DecodeAll decodes samples in order and returns the number skipped.
func DecodeAll(samples []RawHealthSample) ([]Reading, int) {
	out := make([]Reading, 0, len(samples))
	skipped := 0
	for _, sample := range samples {
		reading, ok := Decode(sample)
		if !ok {
			skipped++
			continue
		}
		out = append(out, reading)
	}
	return out, skipped
}

func extractGrams(payload map[string]any, fields ...string) float64 {
	for _, field := range fields {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		if v, ok := toFloat(raw); ok {
			return v
		}
		if kg, ok := normalize(raw, UnitKilograms); ok {
			return kg * 1000
		}
	}
	return 0
}

func decodeFlow(raw any) (string, bool) {
	if level, ok := raw.(string); ok {
		level = strings.ToLower(strings.TrimSpace(level))
		for _, known := range flowLevels {
			if level == known {
				return level, true
			}
		}
		return "", false
	}
	if v, ok := toFloat(raw); ok {
		level, known := flowLevels[int(v)]
		return level, known
	}
	return "", false
}
