package healthsync

import "time"

const (
	defaultDaysToSync = 7
	defaultMaxDays    = 90
	defaultBatchSize  = 100
)

// Config holds runtime knobs for the sync orchestrator.
type Config struct {
	DefaultDays        int
	MaxDays            int
	BatchSize          int
	Location           *time.Location
	ParallelCategories bool
}

func (c Config) withDefaults() Config {
	if c.DefaultDays <= 0 {
		c.DefaultDays = defaultDaysToSync
	}
	if c.MaxDays <= 0 {
		c.MaxDays = defaultMaxDays
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}
