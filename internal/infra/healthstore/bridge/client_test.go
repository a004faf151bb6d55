package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

func window() healthsync.TimeRange {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	return healthsync.TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

func TestClientReadsAllPagesWithToken(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"bridge-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/users/user-1/integrations/hc/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bridge-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"sdkStatus":"available"}`))
	})
	mux.HandleFunc("/v1/users/user-1/integrations/hc/records", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if r.Header.Get("Authorization") != "Bearer bridge-token" ||
			query.Get("metricType") != "HeartRate" ||
			query.Get("start") != "2024-07-01T00:00:00Z" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		switch query.Get("pageToken") {
		case "":
			_, _ = w.Write([]byte(`{"records":[{"startTime":"2024-07-01T08:05:00Z","originId":"com.google.android.apps.healthdata","payload":{"samples":[{"beatsPerMinute":72}]}}],"nextPageToken":"p2"}`))
		case "p2":
			_, _ = w.Write([]byte(`{"records":[{"metricType":"HeartRate","startTime":"2024-07-01T08:50:00Z","endTime":"2024-07-01T08:51:00Z","originId":"com.xiaomi.wearable","payload":{"bpm":70}}]}`))
		default:
			http.Error(w, "bad token", http.StatusBadRequest)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:      server.URL + "/",
		ClientID:     "sync-engine",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/oauth/token",
	})
	require.NoError(t, err)

	platform, err := client.Open(context.Background(), "user-1", "hc")
	require.NoError(t, err)
	require.NoError(t, platform.Initialize(context.Background()))
	status, err := platform.SDKStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, healthsync.SDKAvailable, status)

	samples, err := platform.ReadRecords(context.Background(), healthsync.MetricHeartRate, window())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, healthsync.MetricHeartRate, samples[0].MetricType)
	require.False(t, samples[0].HasEnd())
	require.True(t, samples[1].HasEnd())

	bpm, ok := healthsync.ExtractFirst(samples[0])
	require.True(t, ok)
	require.Equal(t, 72.0, bpm)
	require.Equal(t, int32(1), tokenCalls.Load())
}

func TestClientMapsPlatformStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, healthsync.ErrNotAuthorized},
		{http.StatusServiceUnavailable, healthsync.ErrPlatformUnavailable},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client, err := NewClient(Config{BaseURL: server.URL})
		require.NoError(t, err)
		platform, _ := client.Open(context.Background(), "user-1", "hc")

		_, err = platform.ReadRecords(context.Background(), healthsync.MetricSteps, window())
		require.ErrorIs(t, err, tc.want)
		server.Close()
	}
}

func TestClientInitializeFailsForUnknownConnection(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)
	platform, _ := client.Open(context.Background(), "user-1", "missing")
	require.Error(t, platform.Initialize(context.Background()))

	status, err := platform.SDKStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, healthsync.SDKUnavailable, status)
}

func TestReaderDegradesBridgeOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/users/user-1/integrations/hc/status" {
			_ = json.NewEncoder(w).Encode(map[string]string{"sdkStatus": "available"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)
	platform, _ := client.Open(context.Background(), "user-1", "hc")
	require.NoError(t, platform.Initialize(context.Background()))

	reader := healthsync.NewRecordReader(platform, healthsync.SDKAvailable)
	samples, err := reader.Read(context.Background(), healthsync.MetricSteps, window())
	require.NoError(t, err)
	require.Empty(t, samples)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestClientInitializeTreatsOutageAsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)
	platform, _ := client.Open(context.Background(), "user-1", "hc")
	require.NoError(t, platform.Initialize(context.Background()))

	status, err := platform.SDKStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, healthsync.SDKUnavailable, status)
}
