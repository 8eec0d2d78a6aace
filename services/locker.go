package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"greencloud/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// UserLocker serializes mutations of one user's storage counter and deletion flags.
// Different users never contend.
type UserLocker interface {
	Lock(ctx context.Context, userID uint) (unlock func(), err error)
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

type localUserLocker struct {
	mu    sync.Mutex
	slots map[uint]*lockSlot
}

// NewLocalUserLocker returns an in-process keyed mutex.
func NewLocalUserLocker() UserLocker {
	return &localUserLocker{slots: make(map[uint]*lockSlot)}
}

func (l *localUserLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	l.mu.Lock()
	slot := l.slots[userID]
	if slot == nil {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[userID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(userID, slot)
		})
	}, nil
}

func (l *localUserLocker) release(userID uint, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, userID)
	}
	l.mu.Unlock()
}

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisUserLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisUserLocker serializes users across processes with SET NX PX. The lock
// expires after ttl if the holder dies without releasing it.
func NewRedisUserLocker(client redis.UniversalClient, ttl time.Duration) UserLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisUserLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

func userLockKey(userID uint) string {
	return fmt.Sprintf("greencloud:lock:user:%d", userID)
}

func (l *redisUserLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	key := userLockKey(userID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseLockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				log.Warn().Err(err).Uint("user_id", userID).Msg("failed to release user lock")
			}
		})
	}, nil
}

// lockUser acquires the per-user lock within wait and maps failures to AppErrors.
func lockUser(ctx context.Context, locker UserLocker, m *metrics.StorageMetrics, wait time.Duration, userID uint) (func(), error) {
	lockCtx := ctx
	if wait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	start := time.Now()
	unlock, err := locker.Lock(lockCtx, userID)
	m.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, newAppError(KindConflict, "another operation for this user is in progress", err)
		}
		return nil, newAppError(KindInternal, "failed to acquire user lock", err)
	}
	return unlock, nil
}
