package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another holder owns the key.
var ErrLocked = errors.New("cache: lock is held")

// Locker grants exclusive, expiring ownership of a key.
type Locker interface {
	// Acquire returns a release func, or ErrLocked if the key is taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// releaseScript deletes the key only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisLocker(client *redis.Client, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	k := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{k}, token).Err()
	}, nil
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	now   func() time.Time
	nonce uint64
	owner map[string]uint64
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]time.Time),
		owner: make(map[string]uint64),
		now:   time.Now,
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.held[key]; ok && l.now().Before(exp) {
		return nil, ErrLocked
	}
	l.nonce++
	id := l.nonce
	l.held[key] = l.now().Add(ttl)
	l.owner[key] = id

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.owner[key] == id {
			delete(l.held, key)
			delete(l.owner, key)
		}
	}, nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*MemoryLocker)(nil)
)
