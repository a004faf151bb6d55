package healthstore

import (
	"context"
	"sync"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

// MemoryProvider serves platforms backed by in-process samples. Useful for
// tests and local dev.
type MemoryProvider struct {
	mu        sync.RWMutex
	platforms map[string]*MemoryPlatform
}

// NewMemoryProvider constructs an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{platforms: make(map[string]*MemoryPlatform)}
}

// Platform returns the handle for a connection, creating it when missing.
func (p *MemoryProvider) Platform(userID, integrationID string) *MemoryPlatform {
	key := userID + ":" + integrationID
	p.mu.Lock()
	defer p.mu.Unlock()
	platform, ok := p.platforms[key]
	if !ok {
		platform = NewMemoryPlatform()
		p.platforms[key] = platform
	}
	return platform
}

// Open implements healthsync.PlatformProvider.
func (p *MemoryProvider) Open(_ context.Context, userID, integrationID string) (healthsync.Platform, error) {
	return p.Platform(userID, integrationID), nil
}

// MemoryPlatform is a healthsync.Platform over a fixed sample set.
type MemoryPlatform struct {
	mu       sync.RWMutex
	status   healthsync.SDKStatus
	samples  map[healthsync.MetricType][]healthsync.RawHealthSample
	failures map[healthsync.MetricType]error
}

// NewMemoryPlatform constructs an available, empty platform.
func NewMemoryPlatform() *MemoryPlatform {
	return &MemoryPlatform{
		status:   healthsync.SDKAvailable,
		samples:  make(map[healthsync.MetricType][]healthsync.RawHealthSample),
		failures: make(map[healthsync.MetricType]error),
	}
}

// Add stores samples under their metric type.
func (p *MemoryPlatform) Add(samples ...healthsync.RawHealthSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range samples {
		p.samples[s.MetricType] = append(p.samples[s.MetricType], s)
	}
}

// SetStatus overrides the reported SDK status.
func (p *MemoryPlatform) SetStatus(status healthsync.SDKStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// FailReads makes every read of metric return err; nil clears it.
func (p *MemoryPlatform) FailReads(metric healthsync.MetricType, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, metric)
		return
	}
	p.failures[metric] = err
}

// Initialize implements healthsync.Platform.
func (p *MemoryPlatform) Initialize(context.Context) error {
	return nil
}

// SDKStatus implements healthsync.Platform.
func (p *MemoryPlatform) SDKStatus(context.Context) (healthsync.SDKStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, nil
}

// ReadRecords implements healthsync.Platform.
func (p *MemoryPlatform) ReadRecords(_ context.Context, metric healthsync.MetricType, window healthsync.TimeRange) ([]healthsync.RawHealthSample, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.failures[metric]; err != nil {
		return nil, err
	}
	var out []healthsync.RawHealthSample
	for _, s := range p.samples[metric] {
		if InWindow(s, window) {
			out = append(out, s)
		}
	}
	return out, nil
}

var (
	_ healthsync.PlatformProvider = (*MemoryProvider)(nil)
	_ healthsync.Platform         = (*MemoryPlatform)(nil)
)
