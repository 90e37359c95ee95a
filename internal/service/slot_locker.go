package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hospital-appointment-service/internal/scheduling"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when the doctor-day lock could not be acquired
// within the configured wait.
var ErrLockTimeout = errors.New("timed out waiting for slot lock")

// releaseLockScript deletes the key only while it still holds our token, so
// a lock that expired and was taken by someone else is never released by us.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const (
	RedisSlotLockKeyPrefix = "appointment:lock:"

	// Back-off between SET NX attempts
	lockRetryMin = 10 * time.Millisecond
	lockRetryMax = 200 * time.Millisecond

	// Timeout for the release round trip, independent of the request context
	lockReleaseTimeout = 2 * time.Second

	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// SlotLocker serializes booking writes for one doctor on one date. Holding
// the lock, a caller can check occupancy and insert without another writer
// slipping in between.
type SlotLocker interface {
	// Lock blocks until the doctor-day is held, ctx is done or the wait
	// expires. The returned release func must be called exactly once.
	Lock(ctx context.Context, doctorID uuid.UUID, date scheduling.Date) (release func(), err error)
	Stop()
}

func slotLockKey(doctorID uuid.UUID, date scheduling.Date) string {
	return fmt.Sprintf("%s%s:%s", RedisSlotLockKeyPrefix, doctorID, date)
}

// =============================================================================
// Redis
// =============================================================================

// RedisSlotLocker holds doctor-day locks in Redis so every API instance
// shares them. The TTL bounds how long a crashed holder can block a day.
type RedisSlotLocker struct {
	client *redis.Client
	log    *logrus.Logger
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisSlotLocker(client *redis.Client, log *logrus.Logger, ttl, wait time.Duration) *RedisSlotLocker {
	return &RedisSlotLocker{
		client: client,
		log:    log,
		ttl:    ttl,
		wait:   wait,
	}
}

func (l *RedisSlotLocker) Lock(ctx context.Context, doctorID uuid.UUID, date scheduling.Date) (func(), error) {
	key := slotLockKey(doctorID, date)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	backoff := lockRetryMin
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, lockWaitError(ctx)
			}
			l.log.Warnf("Failed to acquire slot lock %s: %+v", key, err)
			return nil, fmt.Errorf("acquire slot lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, lockWaitError(ctx)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, lockRetryMax)
	}

	l.log.Debugf("Acquired slot lock %s", key)

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
			defer cancel()
			if err := releaseLockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warnf("Failed to release slot lock %s, it expires in %v: %+v", key, l.ttl, err)
			}
		})
	}, nil
}

// Stop is a no-op; the Redis client is closed by its owner.
func (l *RedisSlotLocker) Stop() {}

func lockWaitError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return ctx.Err()
}

// =============================================================================
// In-process
// =============================================================================

// LocalSlotLocker keeps one mutex per doctor-day in memory. It only
// serializes writers inside this process.
//
// Lock Ordering (to prevent deadlocks):
// 1. Acquire doctor-day mutex FIRST
// 2. Then open the DB transaction
type LocalSlotLocker struct {
	log  *logrus.Logger
	wait time.Duration

	// Per doctor-day mutex
	dayMu sync.Map // map[string]*mutexWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup. The buffered channel is
// the mutex: a send locks and a receive unlocks, which lets Lock honour ctx.
type mutexWithTimestamp struct {
	sem      chan struct{}
	lastUsed atomic.Int64 // Unix timestamp
}

func newMutexWithTimestamp() *mutexWithTimestamp {
	return &mutexWithTimestamp{sem: make(chan struct{}, 1)}
}

func (m *mutexWithTimestamp) tryLock() bool {
	select {
	case m.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *mutexWithTimestamp) unlock() {
	<-m.sem
}

// NewLocalSlotLocker creates a LocalSlotLocker.
// Starts background goroutine for mutex cleanup.
// Call Stop() during graceful shutdown.
func NewLocalSlotLocker(log *logrus.Logger, wait time.Duration) *LocalSlotLocker {
	l := &LocalSlotLocker{
		log:      log,
		wait:     wait,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupMutexMapLoop()

	return l
}

func (l *LocalSlotLocker) Lock(ctx context.Context, doctorID uuid.UUID, date scheduling.Date) (func(), error) {
	key := slotLockKey(doctorID, date)

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for {
		mt := l.getDayMutex(key)
		select {
		case mt.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, lockWaitError(ctx)
		}

		// Cleanup may have dropped this mutex from the map while we were
		// waiting on it; a lock on an orphan would not exclude anyone.
		if current, ok := l.dayMu.Load(key); ok && current == mt {
			mt.lastUsed.Store(time.Now().Unix())
			var once sync.Once
			return func() { once.Do(mt.unlock) }, nil
		}
		mt.unlock()
	}
}

// Stop gracefully shuts down the cleanup goroutine.
// Safe to call multiple times.
func (l *LocalSlotLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("LocalSlotLocker stopped")
	}
}

// getDayMutex returns the mutex for a doctor-day key
func (l *LocalSlotLocker) getDayMutex(key string) *mutexWithTimestamp {
	mt, _ := l.dayMu.LoadOrStore(key, newMutexWithTimestamp())
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

// cleanupMutexMapLoop runs in background to clean stale mutexes
func (l *LocalSlotLocker) cleanupMutexMapLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			l.log.Debug("Mutex cleanup goroutine stopping")
			return
		case <-ticker.C:
			l.cleanupStaleMutexes(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanupStaleMutexes removes mutexes unused since cutoff. Held mutexes are
// skipped, and lastUsed is checked while holding the lock.
func (l *LocalSlotLocker) cleanupStaleMutexes(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	l.dayMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.tryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				l.dayMu.CompareAndDelete(key, mt)
				cleaned++
			}
			mt.unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale mutexes", cleaned)
	}
	return cleaned
}
