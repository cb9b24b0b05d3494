package repo

//go:generate mockgen -source=lock.go -destination=mocks/locker.go -package=mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker serializes work on a key. Acquire waits a bounded time and returns
// appErr.ErrResourceBusy when the key stays held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

const lockRetryInterval = 20 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds keys with SETNX so several service instances share them.
type RedisLocker struct {
	rdb  *redis.Client
	wait time.Duration
}

func NewRedisLocker(rdb *redis.Client, wait time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, wait: wait}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		gotLock, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if gotLock {
			return func() {
				if err := releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil {
					logger.Log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", appErr.ErrResourceBusy, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// LocalLocker is the single-process Locker. ttl is ignored: a holder keeps
// the key until it calls release. A key is forgotten once nobody holds or
// waits for it.
type LocalLocker struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{wait: wait, slots: make(map[string]*localSlot)}
}

func (l *LocalLocker) join(key string) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) leave(key string, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	s := l.join(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.leave(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.leave(key, s)
		return nil, ctx.Err()
	case <-timer.C:
		l.leave(key, s)
		return nil, fmt.Errorf("%w: %s", appErr.ErrResourceBusy, key)
	}
}

// NewLocker picks RedisLocker when a client is configured.
func NewLocker(rdb *redis.Client, wait time.Duration) Locker {
	if rdb != nil {
		return NewRedisLocker(rdb, wait)
	}
	return NewLocalLocker(wait)
}
