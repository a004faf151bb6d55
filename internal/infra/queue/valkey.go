package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

const jobName = "sync_wearables"

type jobEnvelope struct {
	Name string             `json:"name"`
	Job  healthsync.SyncJob `json:"job"`
}

// ValkeyQueue persists jobs in Valkey and delivers them to a handler.
type ValkeyQueue struct {
	client      valkey.Client
	queueKey    string
	handler     Handler
	logger      *slog.Logger
	stop        chan struct{}
	stopOnce    sync.Once
	pollTimeout time.Duration
}

// NewValkeyQueue constructs a Valkey-backed queue.
func NewValkeyQueue(client valkey.Client, queueKey string, logger *slog.Logger) *ValkeyQueue {
	if queueKey == "" {
		queueKey = "healthsync:jobs"
	}
	return &ValkeyQueue{
		client:      client,
		queueKey:    queueKey,
		logger:      logger.With("component", "queue.valkey"),
		stop:        make(chan struct{}),
		pollTimeout: 5 * time.Second,
	}
}

// SetHandler starts the worker loop that pops jobs and invokes the handler.
func (q *ValkeyQueue) SetHandler(handler Handler) {
	q.handler = handler
	if handler == nil {
		return
	}
	go q.consume()
}

// Enqueue pushes a job onto the queue.
func (q *ValkeyQueue) Enqueue(ctx context.Context, job healthsync.SyncJob) error {
	encoded, err := json.Marshal(jobEnvelope{Name: jobName, Job: job})
	if err != nil {
		return err
	}
	cmd := q.client.B().Lpush().Key(q.queueKey).Element(string(encoded)).Build()
	return q.client.Do(ctx, cmd).Error()
}

// Close stops the worker loop after the current poll.
func (q *ValkeyQueue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
}

func (q *ValkeyQueue) consume() {
	ctx := context.Background()
	for {
		select {
		case <-q.stop:
			return
		default:
		}
		resp := q.client.Do(ctx, q.client.B().Brpop().Key(q.queueKey).Timeout(q.pollTimeout.Seconds()).Build())
		values, err := resp.ToArray()
		if err != nil {
			if !valkey.IsValkeyNil(err) {
				q.logger.Warn("valkey queue pop failed", "error", err)
			}
			continue
		}
		if len(values) < 2 || q.handler == nil {
			continue
		}
		raw, err := values[1].ToString()
		if err != nil {
			q.logger.Warn("valkey queue payload decode failed", "error", err)
			continue
		}
		job, ok := decodeJob(raw)
		if !ok {
			q.logger.Warn("valkey queue dropped malformed job", "payload_bytes", len(raw))
			continue
		}
		q.handler(ctx, job)
	}
}

func decodeJob(raw string) (healthsync.SyncJob, bool) {
	var envelope jobEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return healthsync.SyncJob{}, false
	}
	if envelope.Name != jobName || envelope.Job.UserID == "" || envelope.Job.IntegrationID == "" {
		return healthsync.SyncJob{}, false
	}
	return envelope.Job, true
}

var _ HandlerQueue = (*ValkeyQueue)(nil)
