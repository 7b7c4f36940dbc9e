package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/medicore/internal/clock"
)

// MemoryLocker is the single process fallback used when no Redis is
// configured.
type MemoryLocker struct {
	mu    sync.Mutex
	clock clock.Clock
	held  map[string]memoryEntry
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

func NewMemoryLocker(c clock.Clock) *MemoryLocker {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &MemoryLocker{clock: c, held: map[string]memoryEntry{}}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validate(key, ttl); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.held[key]; ok && entry.token == token {
		delete(l.held, key)
	}
	return nil
}
