// Package memory provides in-process fallbacks for the cache interfaces,
// used when Redis is not configured. They guard a single process only.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// LockManager implements domain.LockManager with a process-local mutex map.
type LockManager struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewLockManager creates an in-process LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]time.Time)}
}

// Acquire obtains the lock for key, returning domain.ErrLockHeld if the key
// is already held and its TTL has not lapsed. The returned release function
// is safe to call more than once.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if deadline, ok := lm.held[key]; ok && time.Now().Before(deadline) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
	}
	lm.held[key] = time.Now().Add(ttl)

	released := false
	unlock := func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(lm.held, key)
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
