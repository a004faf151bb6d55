package healthsync

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Unit is a canonical unit every extracted value is normalized to.
type Unit string

const (
	UnitBPM             Unit = "bpm"
	UnitCount           Unit = "count"
	UnitMeters          Unit = "m"
	UnitKilocalories    Unit = "kcal"
	UnitKcalPerDay      Unit = "kcal/day"
	UnitKilograms       Unit = "kg"
	UnitGrams           Unit = "g"
	UnitMilliliters     Unit = "ml"
	UnitPercent         Unit = "%"
	UnitMmHg            Unit = "mmHg"
	UnitMmolPerL        Unit = "mmol/L"
	UnitCelsius         Unit = "degC"
	UnitBreathsPerMin   Unit = "breaths/min"
	UnitFlowLevel       Unit = "level"
)

// canonicalUnits fixes the unit each metric is normalized to.
var canonicalUnits = map[MetricType]Unit{
	MetricHeartRate:          UnitBPM,
	MetricRestingHeartRate:   UnitBPM,
	MetricSteps:              UnitCount,
	MetricDistance:           UnitMeters,
	MetricHeight:             UnitMeters,
	MetricActiveCalories:     UnitKilocalories,
	MetricNutrition:          UnitKilocalories,
	MetricBasalMetabolicRate: UnitKcalPerDay,
	MetricWeight:             UnitKilograms,
	MetricHydration:          UnitMilliliters,
	MetricBodyFat:            UnitPercent,
	MetricOxygenSaturation:   UnitPercent,
	MetricBloodPressure:      UnitMmHg,
	MetricBloodGlucose:       UnitMmolPerL,
	MetricBodyTemperature:    UnitCelsius,
	MetricRespiratoryRate:    UnitBreathsPerMin,
	MetricMenstruationFlow:   UnitFlowLevel,
}

// CanonicalUnit returns the unit values of metric are normalized to.
func CanonicalUnit(metric MetricType) Unit {
	return canonicalUnits[metric]
}

type conversion struct {
	unit    Unit
	convert func(float64) float64
}

func scale(factor float64) func(float64) float64 {
	return func(v float64) float64 { return v * factor }
}

type accessor struct {
	key string
	conversion
}

// wrappedUnits covers the inXxx accessors of unit objects. Within a unit the
// exact canonical accessor comes first so a payload carrying several
// accessors always resolves the same way.
var wrappedUnits = []accessor{
	{"inKilograms", conversion{UnitKilograms, scale(1)}},
	{"inGrams", conversion{UnitKilograms, scale(0.001)}},
	{"inPounds", conversion{UnitKilograms, scale(0.45359237)}},
	{"inOunces", conversion{UnitKilograms, scale(0.028349523125)}},
	{"inMeters", conversion{UnitMeters, scale(1)}},
	{"inKilometers", conversion{UnitMeters, scale(1000)}},
	{"inCentimeters", conversion{UnitMeters, scale(0.01)}},
	{"inMiles", conversion{UnitMeters, scale(1609.344)}},
	{"inFeet", conversion{UnitMeters, scale(0.3048)}},
	{"inInches", conversion{UnitMeters, scale(0.0254)}},
	{"inKilocalories", conversion{UnitKilocalories, scale(1)}},
	{"inCalories", conversion{UnitKilocalories, scale(0.001)}},
	{"inKilojoules", conversion{UnitKilocalories, scale(1 / 4.184)}},
	{"inJoules", conversion{UnitKilocalories, scale(1 / 4184.0)}},
	{"inKilocaloriesPerDay", conversion{UnitKcalPerDay, scale(1)}},
	{"inWatts", conversion{UnitKcalPerDay, scale(20.6362855)}},
	{"inMilliliters", conversion{UnitMilliliters, scale(1)}},
	{"inLiters", conversion{UnitMilliliters, scale(1000)}},
	{"inFluidOuncesUs", conversion{UnitMilliliters, scale(29.5735295625)}},
	{"inPercent", conversion{UnitPercent, scale(1)}},
	{"inMillimetersOfMercury", conversion{UnitMmHg, scale(1)}},
	{"inMillimolesPerLiter", conversion{UnitMmolPerL, scale(1)}},
	{"inMilligramsPerDeciliter", conversion{UnitMmolPerL, scale(1 / 18.0)}},
	{"inCelsius", conversion{UnitCelsius, scale(1)}},
	{"inFahrenheit", conversion{UnitCelsius, func(v float64) float64 { return (v - 32) * 5 / 9 }}},
	{"inKelvin", conversion{UnitCelsius, func(v float64) float64 { return v - 273.15 }}},
	{"inBeatsPerMinute", conversion{UnitBPM, scale(1)}},
	{"inBreathsPerMinute", conversion{UnitBreathsPerMin, scale(1)}},
}

// labelledUnits covers {value, unit} objects.
var labelledUnits = map[string]conversion{
	"kg":     {UnitKilograms, scale(1)},
	"g":      {UnitKilograms, scale(0.001)},
	"lb":     {UnitKilograms, scale(0.45359237)},
	"m":      {UnitMeters, scale(1)},
	"km":     {UnitMeters, scale(1000)},
	"cm":     {UnitMeters, scale(0.01)},
	"mi":     {UnitMeters, scale(1609.344)},
	"kcal":   {UnitKilocalories, scale(1)},
	"cal":    {UnitKilocalories, scale(0.001)},
	"kj":     {UnitKilocalories, scale(1 / 4.184)},
	"j":      {UnitKilocalories, scale(1 / 4184.0)},
	"l":      {UnitMilliliters, scale(1000)},
	"ml":     {UnitMilliliters, scale(1)},
	"%":      {UnitPercent, scale(1)},
	"mmhg":   {UnitMmHg, scale(1)},
	"mmol/l": {UnitMmolPerL, scale(1)},
	"mg/dl":  {UnitMmolPerL, scale(1 / 18.0)},
	"degc":   {UnitCelsius, scale(1)},
	"degf":   {UnitCelsius, func(v float64) float64 { return (v - 32) * 5 / 9 }},
	"bpm":    {UnitBPM, scale(1)},
}

// valueFields lists the field aliases tried for each metric, in order.
var valueFields = map[MetricType][]string{
	MetricHeartRate:          {"beatsPerMinute", "bpm", "heartRate"},
	MetricRestingHeartRate:   {"beatsPerMinute", "bpm", "restingHeartRate"},
	MetricSteps:              {"count", "steps", "value"},
	MetricDistance:           {"distance", "value"},
	MetricActiveCalories:     {"energy", "calories", "activeCalories", "value"},
	MetricNutrition:          {"energy", "calories", "totalCalories", "energyKcal"},
	MetricHydration:          {"volume", "value"},
	MetricWeight:             {"weight", "mass", "value"},
	MetricHeight:             {"height", "value"},
	MetricBodyFat:            {"percentage", "bodyFat", "value"},
	MetricOxygenSaturation:   {"percentage", "spo2", "value"},
	MetricBloodGlucose:       {"level", "bloodGlucose", "value"},
	MetricBasalMetabolicRate: {"basalMetabolicRate", "bmr", "value"},
	MetricBodyTemperature:    {"temperature", "value"},
	MetricRespiratoryRate:    {"rate", "respiratoryRate", "value"},
	MetricMenstruationFlow:   {"flow", "value"},
}

const sampleArrayField = "samples"

// ExtractValue returns field from the sample payload normalized to the
// metric's canonical unit. It accepts a direct scalar, a wrapped unit object
// and an embedded sample array whose last element is representative.
func ExtractValue(sample RawHealthSample, field string) (float64, bool) {
	target := CanonicalUnit(sample.MetricType)
	raw, ok := sample.Payload[field]
	if !ok {
		raw, ok = lastArrayValue(sample.Payload, field)
		if !ok {
			return 0, false
		}
	}
	value, ok := normalize(raw, target)
	if !ok {
		return 0, false
	}
	if isEnergyMetric(sample.MetricType) && value > calorieSanityCutoff {
		// single record above the cutoff is almost always calories reported as kcal
		value /= 1000
	}
	return value, true
}

// ExtractFirst tries every known alias for the sample's metric.
func ExtractFirst(sample RawHealthSample) (float64, bool) {
	for _, field := range valueFields[sample.MetricType] {
		if v, ok := ExtractValue(sample, field); ok {
			return v, true
		}
	}
	return 0, false
}

// calorieSanityCutoff is the largest plausible single energy record in kcal.
const calorieSanityCutoff = 10000.0

func isEnergyMetric(metric MetricType) bool {
	return metric == MetricNutrition || metric == MetricActiveCalories
}

func lastArrayValue(payload map[string]any, field string) (any, bool) {
	items, ok := payload[sampleArrayField].([]any)
	if !ok {
		if typed, isMaps := payload[sampleArrayField].([]map[string]any); isMaps {
			items = make([]any, len(typed))
			for i := range typed {
				items[i] = typed[i]
			}
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	last, ok := items[len(items)-1].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := last[field]
	return v, ok
}

func normalize(raw any, target Unit) (float64, bool) {
	if v, ok := toFloat(raw); ok {
		return v, true
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return 0, false
	}
	for _, acc := range wrappedUnits {
		if acc.unit != target {
			continue
		}
		if v, ok := toFloat(obj[acc.key]); ok {
			return acc.convert(v), true
		}
	}
	if v, ok := toFloat(obj["value"]); ok {
		label, _ := obj["unit"].(string)
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			return v, true
		}
		if conv, known := labelledUnits[label]; known && conv.unit == target {
			return conv.convert(v), true
		}
	}
	return 0, false
}

// toFloat rejects NaN and infinities; neither survives JSON encoding.
func toFloat(raw any) (float64, bool) {
	v, ok := scalar(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func scalar(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
