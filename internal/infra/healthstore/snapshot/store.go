package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
	"github.com/yanqian/healthsync/internal/infra/healthstore"
)

// Provider opens platforms over device exports uploaded to object storage.
//
// Layout per connection:
//
//	{prefix}/{user}/{integration}/manifest.json   {"sdkStatus": "available"}
//	{prefix}/{user}/{integration}/{MetricType}.json   [Sample, ...]
type Provider struct {
	objects ObjectReader
	prefix  string
}

// NewProvider wraps an object reader. prefix may be empty.
func NewProvider(objects ObjectReader, prefix string) *Provider {
	return &Provider{objects: objects, prefix: strings.Trim(prefix, "/")}
}

// Open implements healthsync.PlatformProvider.
func (p *Provider) Open(_ context.Context, userID, integrationID string) (healthsync.Platform, error) {
	if strings.ContainsAny(userID+integrationID, "/") {
		return nil, fmt.Errorf("snapshot ids must not contain '/'")
	}
	return &platform{
		objects: p.objects,
		root:    path.Join(p.prefix, userID, integrationID),
		cache:   make(map[healthsync.MetricType][]healthsync.RawHealthSample),
	}, nil
}

type manifest struct {
	SDKStatus string `json:"sdkStatus"`
}

type platform struct {
	objects ObjectReader
	root    string

	mu     sync.Mutex
	status healthsync.SDKStatus
	cache  map[healthsync.MetricType][]healthsync.RawHealthSample
}

// Initialize loads the manifest. A connection without one was never exported.
func (p *platform) Initialize(ctx context.Context) error {
	data, err := p.objects.Get(ctx, path.Join(p.root, "manifest.json"))
	if err != nil {
		return fmt.Errorf("load snapshot manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode snapshot manifest: %w", err)
	}
	p.mu.Lock()
	p.status = healthstore.ParseSDKStatus(m.SDKStatus)
	p.mu.Unlock()
	return nil
}

func (p *platform) SDKStatus(context.Context) (healthsync.SDKStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == "" {
		return healthsync.SDKUnavailable, nil
	}
	return p.status, nil
}

// ReadRecords loads the metric export once per platform and filters it by window.
func (p *platform) ReadRecords(ctx context.Context, metric healthsync.MetricType, window healthsync.TimeRange) ([]healthsync.RawHealthSample, error) {
	samples, err := p.load(ctx, metric)
	if err != nil {
		return nil, err
	}
	var out []healthsync.RawHealthSample
	for _, s := range samples {
		if healthstore.InWindow(s, window) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *platform) load(ctx context.Context, metric healthsync.MetricType) ([]healthsync.RawHealthSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[metric]; ok {
		return cached, nil
	}

	data, err := p.objects.Get(ctx, path.Join(p.root, string(metric)+".json"))
	switch {
	case errors.Is(err, ErrObjectNotFound):
		p.cache[metric] = nil
		return nil, nil
	case err != nil:
		return nil, err
	}

	var exported []healthstore.Sample
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&exported); err != nil {
		return nil, fmt.Errorf("decode %s export: %w", metric, err)
	}
	samples := make([]healthsync.RawHealthSample, 0, len(exported))
	for _, s := range exported {
		samples = append(samples, s.Raw(metric))
	}
	p.cache[metric] = samples
	return samples, nil
}

var (
	_ healthsync.PlatformProvider = (*Provider)(nil)
	_ healthsync.Platform         = (*platform)(nil)
)
