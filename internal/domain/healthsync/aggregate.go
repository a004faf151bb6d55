package healthsync

import (
	"math"
	"sort"
	"time"

	"github.com/yanqian/healthsync/pkg/util"
)

// Aggregate is one bucketed value before it is stamped with user and integration.
type Aggregate struct {
	Metric     CanonicalMetric
	RecordedAt time.Time
	Value      map[string]any
}

// Record converts the aggregate into a persistable record. RecordedAt is
// expressed in loc so the derived sync date follows the sync timezone rather
// than whatever zone the platform reported.
func (a Aggregate) Record(userID, integrationID string, loc *time.Location) MetricRecord {
	return MetricRecord{
		UserID:        userID,
		IntegrationID: integrationID,
		MetricType:    a.Metric,
		Value:         a.Value,
		RecordedAt:    a.RecordedAt.In(location(loc)),
	}
}

// valueKeys names the numeric field of single-value records.
var valueKeys = map[MetricType]string{
	MetricHeartRate:          "bpm",
	MetricRestingHeartRate:   "bpm",
	MetricSteps:              "count",
	MetricDistance:           "meters",
	MetricActiveCalories:     "kcal",
	MetricHydration:          "ml",
	MetricWeight:             "kg",
	MetricHeight:             "meters",
	MetricBodyFat:            "percentage",
	MetricOxygenSaturation:   "percentage",
	MetricBloodGlucose:       "mmol_l",
	MetricBasalMetabolicRate: "kcal_per_day",
	MetricBodyTemperature:    "celsius",
	MetricRespiratoryRate:    "breaths_per_minute",
}

type hourBucket struct {
	start  time.Time
	sum    float64
	min    float64
	max    float64
	count  int
	source string
}

// HourlyHeartRate emits one record per non-empty clock hour. The mean covers
// every origin in the bucket; source is the highest-priority origin, so
// readings must already be prioritized.
func HourlyHeartRate(readings []Reading, loc *time.Location) []Aggregate {
	buckets := make(map[int64]*hourBucket)
	for _, r := range readings {
		q, ok := r.(Quantity)
		if !ok || q.Value <= 0 {
			continue
		}
		start := util.StartOfHour(q.Start.In(location(loc)))
		b, ok := buckets[start.Unix()]
		if !ok {
			b = &hourBucket{start: start, min: q.Value, max: q.Value, source: q.Origin}
			buckets[start.Unix()] = b
		}
		b.sum += q.Value
		b.count++
		b.min = math.Min(b.min, q.Value)
		b.max = math.Max(b.max, q.Value)
	}

	out := make([]Aggregate, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Aggregate{
			Metric:     CanonicalHeartRate,
			RecordedAt: b.start,
			Value: map[string]any{
				"bpm":          round2(b.sum / float64(b.count)),
				"min_bpm":      b.min,
				"max_bpm":      b.max,
				"sample_count": b.count,
				"source":       b.source,
				"timestamp":    formatTime(b.start),
			},
		})
	}
	sortAggregates(out)
	return out
}

type dayBucket struct {
	start   time.Time
	total   float64
	protein float64
	carbs   float64
	fat     float64
	count   int
	source  string
}

// DailySum totals quantities (or meal energy) per local calendar day. Days
// that sum to zero produce nothing.
func DailySum(metric MetricType, readings []Reading, loc *time.Location) []Aggregate {
	buckets := make(map[int64]*dayBucket)
	add := func(meta SampleMeta) *dayBucket {
		day := util.StartOfDay(meta.Start, location(loc))
		b, ok := buckets[day.Unix()]
		if !ok {
			b = &dayBucket{start: day, source: meta.Origin}
			buckets[day.Unix()] = b
		}
		b.count++
		return b
	}
	for _, r := range readings {
		switch v := r.(type) {
		case Quantity:
			if v.Value > 0 {
				add(v.SampleMeta).total += v.Value
			}
		case Nutrition:
			if v.EnergyKcal > 0 {
				b := add(v.SampleMeta)
				b.total += v.EnergyKcal
				b.protein += v.ProteinG
				b.carbs += v.CarbsG
				b.fat += v.FatG
			}
		}
	}

	out := make([]Aggregate, 0, len(buckets))
	for _, b := range buckets {
		if b.total <= 0 {
			continue
		}
		value := map[string]any{
			"sample_count": b.count,
			"source":       b.source,
			"date":         b.start.Format(time.DateOnly),
		}
		if metric == MetricNutrition {
			value["kcal"] = round2(b.total)
			value["protein_g"] = round2(b.protein)
			value["carbs_g"] = round2(b.carbs)
			value["fat_g"] = round2(b.fat)
		} else {
			value[valueKeys[metric]] = round2(b.total)
			value["unit"] = string(CanonicalUnit(metric))
		}
		out = append(out, Aggregate{Metric: metric.Canonical(), RecordedAt: b.start, Value: value})
	}
	sortAggregates(out)
	return out
}

// MostRecent picks the latest valid reading of the window. Equal timestamps
// keep the prioritized order.
func MostRecent(metric MetricType, readings []Reading) (Aggregate, bool) {
	ordered := make([]Reading, len(readings))
	copy(ordered, readings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Meta().Timestamp().After(ordered[j].Meta().Timestamp())
	})
	for _, r := range ordered {
		meta := r.Meta()
		ts := meta.Timestamp()
		value := map[string]any{
			"source":    meta.Origin,
			"timestamp": formatTime(ts),
		}
		switch v := r.(type) {
		case Quantity:
			if v.Value <= 0 {
				continue
			}
			value[valueKeys[metric]] = round2(v.Value)
			value["unit"] = string(v.Unit)
		case BloodPressure:
			value["systolic"] = round2(v.Systolic)
			value["diastolic"] = round2(v.Diastolic)
			value["unit"] = string(UnitMmHg)
		case Flow:
			value["flow"] = v.Level
		default:
			continue
		}
		return Aggregate{Metric: metric.Canonical(), RecordedAt: ts, Value: value}, true
	}
	return Aggregate{}, false
}

// ExerciseDaily sums session minutes per local calendar day.
func ExerciseDaily(readings []Reading, loc *time.Location) []Aggregate {
	type exerciseDay struct {
		start    time.Time
		minutes  float64
		sessions int
		source   string
	}
	days := make(map[int64]*exerciseDay)
	for _, r := range readings {
		s, ok := r.(Session)
		if !ok || s.Duration() <= 0 {
			continue
		}
		day := util.StartOfDay(s.Start, location(loc))
		d, ok := days[day.Unix()]
		if !ok {
			d = &exerciseDay{start: day, source: s.Origin}
			days[day.Unix()] = d
		}
		d.minutes += s.Duration().Minutes()
		d.sessions++
	}

	out := make([]Aggregate, 0, len(days))
	for _, d := range days {
		out = append(out, Aggregate{
			Metric:     CanonicalExercise,
			RecordedAt: d.start,
			Value: map[string]any{
				"minutes":  round2(d.minutes),
				"sessions": d.sessions,
				"source":   d.source,
				"date":     d.start.Format(time.DateOnly),
			},
		})
	}
	sortAggregates(out)
	return out
}

// SleepSessions emits one record per session ending inside target, keyed by
// its end time. Duplicate sessions with the same end keep the first, highest
// priority, reading.
func SleepSessions(readings []Reading, target TimeRange) []Aggregate {
	seen := make(map[int64]struct{})
	var out []Aggregate
	for _, r := range readings {
		s, ok := r.(Session)
		if !ok || s.Duration() <= 0 || !target.Contains(s.End) {
			continue
		}
		if _, dup := seen[s.End.Unix()]; dup {
			continue
		}
		seen[s.End.Unix()] = struct{}{}
		value := map[string]any{
			"hours":   round2(s.Duration().Hours()),
			"minutes": math.Round(s.Duration().Minutes()),
			"start":   formatTime(s.Start),
			"end":     formatTime(s.End),
			"source":  s.Origin,
		}
		if s.Title != "" {
			value["title"] = s.Title
		}
		out = append(out, Aggregate{Metric: CanonicalSleep, RecordedAt: s.End, Value: value})
	}
	sortAggregates(out)
	return out
}

// Latest returns the aggregate with the greatest RecordedAt.
func Latest(aggs []Aggregate) (Aggregate, bool) {
	if len(aggs) == 0 {
		return Aggregate{}, false
	}
	latest := aggs[0]
	for _, a := range aggs[1:] {
		if a.RecordedAt.After(latest.RecordedAt) {
			latest = a
		}
	}
	return latest, true
}

func sortAggregates(aggs []Aggregate) {
	sort.Slice(aggs, func(i, j int) bool {
		return aggs[i].RecordedAt.Before(aggs[j].RecordedAt)
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
