package healthsync

import (
	"sort"
	"strings"
)

// Origin priorities, lower wins.
const (
	PriorityNative          = 1
	PriorityVendorCompanion = 2
	PriorityVendorApp       = 3
	PriorityOther           = 4
	PriorityLowTrust        = 5
)

// originPriorities is matched by longest prefix; it is not user configurable.
var originPriorities = []struct {
	prefix   string
	priority int
}{
	{prefix: "com.google.android.apps.healthdata", priority: PriorityNative},
	{prefix: "com.google.android.apps.fitness", priority: PriorityVendorCompanion},
	{prefix: "com.google.", priority: PriorityVendorApp},
	{prefix: "com.xiaomi.", priority: PriorityLowTrust},
}

func init() {
	sort.SliceStable(originPriorities, func(i, j int) bool {
		return len(originPriorities[i].prefix) > len(originPriorities[j].prefix)
	})
}

// OriginPriority ranks a data origin for conflict resolution.
func OriginPriority(originID string) int {
	origin := strings.ToLower(strings.TrimSpace(originID))
	for _, entry := range originPriorities {
		if strings.HasPrefix(origin, entry.prefix) {
			return entry.priority
		}
	}
	return PriorityOther
}

// Prioritize returns a copy ordered by origin priority, then most recent first.
func Prioritize(samples []RawHealthSample) []RawHealthSample {
	out := make([]RawHealthSample, len(samples))
	copy(out, samples)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := OriginPriority(out[i].OriginID), OriginPriority(out[j].OriginID)
		if pi != pj {
			return pi < pj
		}
		ti, tj := out[i].Timestamp(), out[j].Timestamp()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].OriginID < out[j].OriginID
	})
	return out
}
