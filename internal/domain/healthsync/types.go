package healthsync

import (
	"time"

	"github.com/google/uuid"
)

// MetricType identifies a raw record type reported by the health platform.
type MetricType string

const (
	MetricHeartRate          MetricType = "HeartRate"
	MetricSteps              MetricType = "Steps"
	MetricDistance           MetricType = "Distance"
	MetricActiveCalories     MetricType = "ActiveCaloriesBurned"
	MetricExerciseSession    MetricType = "ExerciseSession"
	MetricSleepSession       MetricType = "SleepSession"
	MetricWeight             MetricType = "Weight"
	MetricHeight             MetricType = "Height"
	MetricBodyFat            MetricType = "BodyFat"
	MetricNutrition          MetricType = "Nutrition"
	MetricHydration          MetricType = "Hydration"
	MetricBloodPressure      MetricType = "BloodPressure"
	MetricBloodGlucose       MetricType = "BloodGlucose"
	MetricOxygenSaturation   MetricType = "OxygenSaturation"
	MetricRespiratoryRate    MetricType = "RespiratoryRate"
	MetricBodyTemperature    MetricType = "BodyTemperature"
	MetricBasalMetabolicRate MetricType = "BasalMetabolicRate"
	MetricRestingHeartRate   MetricType = "RestingHeartRate"
	MetricMenstruationFlow   MetricType = "MenstruationFlow"
)

// AllMetricTypes lists every platform record type the engine understands.
var AllMetricTypes = []MetricType{
	MetricHeartRate, MetricSteps, MetricDistance, MetricActiveCalories,
	MetricExerciseSession, MetricSleepSession, MetricWeight, MetricHeight,
	MetricBodyFat, MetricNutrition, MetricHydration, MetricBloodPressure,
	MetricBloodGlucose, MetricOxygenSaturation, MetricRespiratoryRate,
	MetricBodyTemperature, MetricBasalMetabolicRate, MetricRestingHeartRate,
	MetricMenstruationFlow,
}

// CanonicalMetric is the metric_type label persisted in the remote store.
type CanonicalMetric string

const (
	CanonicalHeartRate          CanonicalMetric = "heart_rate"
	CanonicalSteps              CanonicalMetric = "steps"
	CanonicalDistance           CanonicalMetric = "distance"
	CanonicalActiveCalories     CanonicalMetric = "active_calories"
	CanonicalExercise           CanonicalMetric = "exercise"
	CanonicalSleep              CanonicalMetric = "sleep"
	CanonicalWeight             CanonicalMetric = "weight"
	CanonicalHeight             CanonicalMetric = "height"
	CanonicalBodyFat            CanonicalMetric = "body_fat"
	CanonicalBasalMetabolicRate CanonicalMetric = "basal_metabolic_rate"
	CanonicalMenstruation       CanonicalMetric = "menstruation"
	CanonicalNutrition          CanonicalMetric = "nutrition"
	CanonicalHydration          CanonicalMetric = "hydration"
	CanonicalBloodPressure      CanonicalMetric = "blood_pressure"
	CanonicalBloodGlucose       CanonicalMetric = "blood_glucose"
	CanonicalOxygenSaturation   CanonicalMetric = "oxygen_saturation"
	CanonicalRespiratoryRate    CanonicalMetric = "respiratory_rate"
	CanonicalBodyTemperature    CanonicalMetric = "body_temperature"
	CanonicalRestingHeartRate   CanonicalMetric = "resting_heart_rate"
)

var canonicalByMetric = map[MetricType]CanonicalMetric{
	MetricHeartRate:          CanonicalHeartRate,
	MetricSteps:              CanonicalSteps,
	MetricDistance:           CanonicalDistance,
	MetricActiveCalories:     CanonicalActiveCalories,
	MetricExerciseSession:    CanonicalExercise,
	MetricSleepSession:       CanonicalSleep,
	MetricWeight:             CanonicalWeight,
	MetricHeight:             CanonicalHeight,
	MetricBodyFat:            CanonicalBodyFat,
	MetricNutrition:          CanonicalNutrition,
	MetricHydration:          CanonicalHydration,
	MetricBloodPressure:      CanonicalBloodPressure,
	MetricBloodGlucose:       CanonicalBloodGlucose,
	MetricOxygenSaturation:   CanonicalOxygenSaturation,
	MetricRespiratoryRate:    CanonicalRespiratoryRate,
	MetricBodyTemperature:    CanonicalBodyTemperature,
	MetricBasalMetabolicRate: CanonicalBasalMetabolicRate,
	MetricRestingHeartRate:   CanonicalRestingHeartRate,
	MetricMenstruationFlow:   CanonicalMenstruation,
}

// Canonical maps a platform record type to its persisted label.
func (m MetricType) Canonical() CanonicalMetric {
	return canonicalByMetric[m]
}

// Category groups metric types that are synced together.
type Category string

const (
	CategoryHeartRate Category = "heart_rate"
	CategoryActivity  Category = "activity"
	CategorySleep     Category = "sleep"
	CategoryBody      Category = "body"
	CategoryNutrition Category = "nutrition"
	CategoryVitals    Category = "vitals"
)

// Categories is the fixed order in which a sync walks the platform.
var Categories = []Category{
	CategoryHeartRate,
	CategoryActivity,
	CategorySleep,
	CategoryBody,
	CategoryNutrition,
	CategoryVitals,
}

// SDKStatus reports whether the platform can serve reads.
type SDKStatus string

const (
	SDKAvailable   SDKStatus = "available"
	SDKNeedsUpdate SDKStatus = "needs_update"
	SDKUnavailable SDKStatus = "unavailable"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects empty, inverted and unbounded windows.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !r.Start.Before(r.End) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether ts falls inside the interval.
func (r TimeRange) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && ts.Before(r.End)
}

// RawHealthSample is one platform-reported measurement or session.
type RawHealthSample struct {
	MetricType MetricType
	StartTime  time.Time
	EndTime    time.Time
	OriginID   string
	Payload    map[string]any
}

// HasEnd reports whether the sample spans an interval.
func (s RawHealthSample) HasEnd() bool {
	return !s.EndTime.IsZero()
}

// Timestamp is the instant used for recency ordering.
func (s RawHealthSample) Timestamp() time.Time {
	if s.HasEnd() {
		return s.EndTime
	}
	return s.StartTime
}

// MetricRecord is the canonical, persisted unit of the time-series table.
type MetricRecord struct {
	UserID        string          `json:"userId"`
	IntegrationID string          `json:"integrationId"`
	MetricType    CanonicalMetric `json:"metricType"`
	Value         map[string]any  `json:"metricValue"`
	RecordedAt    time.Time       `json:"recordedAt"`
}

// SyncDate is the calendar date of RecordedAt in the zone it carries.
func (r MetricRecord) SyncDate() time.Time {
	y, m, d := r.RecordedAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key returns the conflict key of the record.
func (r MetricRecord) Key() RecordKey {
	return RecordKey{
		UserID:        r.UserID,
		IntegrationID: r.IntegrationID,
		MetricType:    r.MetricType,
		RecordedAt:    r.RecordedAt.UTC(),
	}
}

// RecordKey is the natural key enforced by the remote store.
type RecordKey struct {
	UserID        string
	IntegrationID string
	MetricType    CanonicalMetric
	RecordedAt    time.Time
}

// RecordFilter narrows List queries on the store.
type RecordFilter struct {
	UserID        string
	IntegrationID string
	MetricType    CanonicalMetric
	From          time.Time
	To            time.Time
	Limit         int
}

// Phase tracks the orchestrator state machine.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseReading      Phase = "reading"
	PhaseAggregating  Phase = "aggregating"
	PhaseBatching     Phase = "batching"
	PhasePersisting   Phase = "persisting"
	PhaseDone         Phase = "done"
)

// CategoryResult summarizes one category of a sync run.
type CategoryResult struct {
	Category       Category     `json:"category"`
	Records        int          `json:"records"`
	SkippedSamples int          `json:"skippedSamples"`
	FailedMetrics  []MetricType `json:"failedMetrics,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Succeeded reports whether the category completed.
func (r CategoryResult) Succeeded() bool {
	return r.Error == ""
}

// SyncReport is returned by a sync run and published once it completes.
type SyncReport struct {
	RunID              uuid.UUID        `json:"runId"`
	UserID             string           `json:"userId"`
	IntegrationID      string           `json:"integrationId"`
	Window             TimeRange        `json:"window"`
	PlatformStatus     SDKStatus        `json:"platformStatus"`
	Phase              Phase            `json:"phase"`
	Categories         []CategoryResult `json:"categories"`
	RecordsAccumulated int              `json:"recordsAccumulated"`
	RecordsWritten     int              `json:"recordsWritten"`
	BatchesFailed      int              `json:"batchesFailed"`
	StartedAt          time.Time        `json:"startedAt"`
	FinishedAt         time.Time        `json:"finishedAt"`
}

// SucceededCategories lists the categories that completed without error.
func (r SyncReport) SucceededCategories() []Category {
	out := make([]Category, 0, len(r.Categories))
	for _, c := range r.Categories {
		if c.Succeeded() {
			out = append(out, c.Category)
		}
	}
	return out
}

// FailedCategories lists the categories that did not complete.
func (r SyncReport) FailedCategories() []Category {
	var out []Category
	for _, c := range r.Categories {
		if !c.Succeeded() {
			out = append(out, c.Category)
		}
	}
	return out
}

// Partial reports whether any part of the run degraded.
func (r SyncReport) Partial() bool {
	if r.BatchesFailed > 0 || r.PlatformStatus != SDKAvailable {
		return true
	}
	for _, c := range r.Categories {
		if !c.Succeeded() || len(c.FailedMetrics) > 0 {
			return true
		}
	}
	return false
}
