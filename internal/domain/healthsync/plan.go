package healthsync

import (
	"context"
	"time"

	"github.com/yanqian/healthsync/pkg/util"
)

type strategy int

const (
	strategyHourly strategy = iota + 1
	strategyDailySum
	strategyMostRecent
	strategyExercise
	strategySleep
)

var metricStrategies = map[MetricType]strategy{
	MetricHeartRate:          strategyHourly,
	MetricSteps:              strategyDailySum,
	MetricDistance:           strategyDailySum,
	MetricActiveCalories:     strategyDailySum,
	MetricNutrition:          strategyDailySum,
	MetricHydration:          strategyDailySum,
	MetricExerciseSession:    strategyExercise,
	MetricSleepSession:       strategySleep,
	MetricWeight:             strategyMostRecent,
	MetricHeight:             strategyMostRecent,
	MetricBodyFat:            strategyMostRecent,
	MetricBloodGlucose:       strategyMostRecent,
	MetricBasalMetabolicRate: strategyMostRecent,
	MetricMenstruationFlow:   strategyMostRecent,
	MetricBloodPressure:      strategyMostRecent,
	MetricOxygenSaturation:   strategyMostRecent,
	MetricRespiratoryRate:    strategyMostRecent,
	MetricBodyTemperature:    strategyMostRecent,
	MetricRestingHeartRate:   strategyMostRecent,
}

var categoryMetrics = map[Category][]MetricType{
	CategoryHeartRate: {MetricHeartRate},
	CategoryActivity:  {MetricSteps, MetricDistance, MetricActiveCalories, MetricExerciseSession},
	CategorySleep:     {MetricSleepSession},
	CategoryBody:      {MetricWeight, MetricHeight, MetricBodyFat, MetricBasalMetabolicRate, MetricMenstruationFlow},
	CategoryNutrition: {MetricNutrition, MetricHydration},
	CategoryVitals: {
		MetricBloodPressure, MetricBloodGlucose, MetricOxygenSaturation,
		MetricRespiratoryRate, MetricBodyTemperature, MetricRestingHeartRate,
	},
}

// fallbackDays is the extended look-back used when the primary window is empty.
var fallbackDays = map[MetricType]int{
	MetricSteps:           7,
	MetricDistance:        7,
	MetricActiveCalories:  7,
	MetricExerciseSession: 14,
	MetricSleepSession:    7,
	MetricBloodGlucose:    30,
}

// MetricsFor returns the metric types synced under category.
func MetricsFor(category Category) []MetricType {
	return categoryMetrics[category]
}

// syncPlan is the set of day windows covered by one run, oldest first.
type syncPlan struct {
	days   []TimeRange
	window TimeRange
	loc    *time.Location
}

func newSyncPlan(now time.Time, days int, loc *time.Location) syncPlan {
	loc = location(loc)
	today := util.StartOfDay(now, loc)
	plan := syncPlan{days: make([]TimeRange, 0, days), loc: loc}
	for i := days - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		plan.days = append(plan.days, TimeRange{Start: start, End: start.AddDate(0, 0, 1)})
	}
	plan.window = TimeRange{Start: plan.days[0].Start, End: plan.days[len(plan.days)-1].End}
	return plan
}

// lookback is the window of n days ending with the run's last day.
func (p syncPlan) lookback(days int) TimeRange {
	return TimeRange{Start: p.window.End.AddDate(0, 0, -days), End: p.window.End}
}

// sleepReadWindow widens a target window one day backward for sessions
// spanning midnight.
func sleepReadWindow(target TimeRange) TimeRange {
	return TimeRange{Start: target.Start.AddDate(0, 0, -1), End: target.End}
}

type metricOutcome struct {
	aggregates []Aggregate
	skipped    int
}

// aggregateMetric reads and buckets one metric over the plan. Any read error
// discards the metric's aggregates for the whole window.
func aggregateMetric(ctx context.Context, reader *RecordReader, metric MetricType, plan syncPlan) (metricOutcome, error) {
	var out metricOutcome
	read := func(window TimeRange) ([]Reading, error) {
		samples, err := reader.Read(ctx, metric, window)
		if err != nil {
			return nil, err
		}
		readings, skipped := DecodeAll(samples)
		out.skipped += skipped
		return readings, nil
	}

	kind := metricStrategies[metric]
	if kind == strategyMostRecent {
		readings, err := read(plan.window)
		if err != nil {
			return metricOutcome{}, err
		}
		agg, ok := MostRecent(metric, readings)
		if !ok && fallbackDays[metric] > 0 {
			if readings, err = read(plan.lookback(fallbackDays[metric])); err != nil {
				return metricOutcome{}, err
			}
			agg, ok = MostRecent(metric, readings)
		}
		if ok {
			out.aggregates = append(out.aggregates, agg)
		}
		return out, nil
	}

	bucket := func(readings []Reading, target TimeRange) []Aggregate {
		var aggs []Aggregate
		switch kind {
		case strategyHourly:
			aggs = HourlyHeartRate(readings, plan.loc)
		case strategyDailySum:
			aggs = DailySum(metric, readings, plan.loc)
		case strategyExercise:
			aggs = ExerciseDaily(readings, plan.loc)
		case strategySleep:
			return SleepSessions(readings, target)
		}
		// samples overlapping the window edge must not emit partial neighbour buckets
		kept := aggs[:0]
		for _, agg := range aggs {
			if target.Contains(agg.RecordedAt) {
				kept = append(kept, agg)
			}
		}
		return kept
	}
	readFor := func(target TimeRange) TimeRange {
		if kind == strategySleep {
			return sleepReadWindow(target)
		}
		return target
	}

	lastDayEmpty := true
	for i, day := range plan.days {
		readings, err := read(readFor(day))
		if err != nil {
			return metricOutcome{}, err
		}
		aggs := bucket(readings, day)
		out.aggregates = append(out.aggregates, aggs...)
		if i == len(plan.days)-1 {
			lastDayEmpty = len(aggs) == 0
		}
	}

	if n := fallbackDays[metric]; lastDayEmpty && n > 0 {
		extended := plan.lookback(n)
		readings, err := read(readFor(extended))
		if err != nil {
			return metricOutcome{}, err
		}
		if latest, ok := Latest(bucket(readings, extended)); ok && !containsAt(out.aggregates, latest.RecordedAt) {
			out.aggregates = append(out.aggregates, latest)
		}
	}
	return out, nil
}

func containsAt(aggs []Aggregate, ts time.Time) bool {
	for _, a := range aggs {
		if a.RecordedAt.Equal(ts) {
			return true
		}
	}
	return false
}
