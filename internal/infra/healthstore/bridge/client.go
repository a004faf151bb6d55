package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
	"github.com/yanqian/healthsync/internal/infra/healthstore"
)

const maxPages = 200

// Config describes the companion bridge endpoint and its OAuth2 client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	Timeout      time.Duration
	PageSize     int
}

// Client talks to the device companion bridge that fronts the on-device
// health store.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

// NewClient builds a bridge client. Without ClientID requests are sent
// unauthenticated.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("bridge base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient = cc.Client(ctx)
		httpClient.Timeout = timeout
	}
	return &Client{baseURL: base, pageSize: pageSize, httpClient: httpClient}, nil
}

// Open implements healthsync.PlatformProvider.
func (c *Client) Open(_ context.Context, userID, integrationID string) (healthsync.Platform, error) {
	return &platform{client: c, userID: userID, integrationID: integrationID}, nil
}

type platform struct {
	client        *Client
	userID        string
	integrationID string

	mu     sync.RWMutex
	status healthsync.SDKStatus
}

type statusResponse struct {
	SDKStatus string `json:"sdkStatus"`
}

type recordsResponse struct {
	Records       []healthstore.Sample `json:"records"`
	NextPageToken string               `json:"nextPageToken"`
}

func (p *platform) connectionPath() string {
	return fmt.Sprintf("%s/v1/users/%s/integrations/%s",
		p.client.baseURL, url.PathEscape(p.userID), url.PathEscape(p.integrationID))
}

// Initialize fetches the SDK status. An unreachable bridge reports the SDK as
// unavailable; unknown connections and refused permissions fail.
func (p *platform) Initialize(ctx context.Context) error {
	var resp statusResponse
	err := p.client.getJSON(ctx, p.connectionPath()+"/status", &resp)
	switch {
	case errors.Is(err, healthsync.ErrPlatformUnavailable):
		resp.SDKStatus = string(healthsync.SDKUnavailable)
	case err != nil:
		return fmt.Errorf("bridge status: %w", err)
	}
	p.mu.Lock()
	p.status = healthstore.ParseSDKStatus(resp.SDKStatus)
	p.mu.Unlock()
	return nil
}

func (p *platform) SDKStatus(context.Context) (healthsync.SDKStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.status == "" {
		return healthsync.SDKUnavailable, nil
	}
	return p.status, nil
}

// ReadRecords follows pageToken until the bridge reports no further pages.
func (p *platform) ReadRecords(ctx context.Context, metric healthsync.MetricType, window healthsync.TimeRange) ([]healthsync.RawHealthSample, error) {
	var (
		out   []healthsync.RawHealthSample
		token string
	)
	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("metricType", string(metric))
		query.Set("start", window.Start.UTC().Format(time.RFC3339Nano))
		query.Set("end", window.End.UTC().Format(time.RFC3339Nano))
		query.Set("pageSize", fmt.Sprint(p.client.pageSize))
		if token != "" {
			query.Set("pageToken", token)
		}

		var resp recordsResponse
		if err := p.client.getJSON(ctx, p.connectionPath()+"/records?"+query.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, sample := range resp.Records {
			out = append(out, sample.Raw(metric))
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
	return nil, fmt.Errorf("bridge records for %s exceeded %d pages", metric, maxPages)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build bridge request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return healthsync.ErrNotAuthorized
	case resp.StatusCode == http.StatusServiceUnavailable:
		return healthsync.ErrPlatformUnavailable
	case resp.StatusCode >= 300:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("bridge request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read bridge response: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode bridge response: %w", err)
	}
	return nil
}

var (
	_ healthsync.PlatformProvider = (*Client)(nil)
	_ healthsync.Platform         = (*platform)(nil)
)
