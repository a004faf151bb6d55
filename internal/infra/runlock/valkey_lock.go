package runlock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

const defaultLockTTL = 15 * time.Minute

// releaseScript deletes the key only while it still holds our token.
var releaseScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ValkeyLocker is a RunLocker shared by every replica through Valkey.
type ValkeyLocker struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyLocker constructs a locker. The ttl bounds how long a crashed run
// can block the key.
func NewValkeyLocker(client valkey.Client, prefix string, ttl time.Duration) *ValkeyLocker {
	if prefix == "" {
		prefix = "healthsync:lock"
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &ValkeyLocker{client: client, prefix: prefix, ttl: ttl}
}

// Acquire implements healthsync.RunLocker.
func (l *ValkeyLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	lockKey := l.prefix + ":" + key
	token := uuid.NewString()
	cmd := l.client.B().Set().Key(lockKey).Value(token).Nx().PxMilliseconds(l.ttl.Milliseconds()).Build()
	if err := l.client.Do(ctx, cmd).Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, healthsync.ErrSyncInProgress
		}
		return nil, err
	}
	return func(ctx context.Context) error {
		return releaseScript.Exec(ctx, l.client, []string{lockKey}, []string{token}).Error()
	}, nil
}

var _ healthsync.RunLocker = (*ValkeyLocker)(nil)
