package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
)

// PolicyStore is the durable policy collaborator. Implementations must
// return active policies ordered by priority descending with a stable tie
// order.
type PolicyStore interface {
	FindActivePolicies(ctx context.Context, resourceType string) ([]*model.Policy, error)
}

type cacheEntry struct {
	policies []*model.Policy
	loadedAt time.Time
}

// PolicyCache is a read-through, per-resource-type cache over a PolicyStore.
// Entries are replaced atomically (list and timestamp together) so a reader
// never observes a half-written entry. Concurrent reads during a reload may
// trigger a bounded amount of redundant loading; there is no single-flight
// guarantee.
type PolicyCache struct {
	store   PolicyStore
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

// DefaultPolicyCacheTTL bounds staleness when no TTL is configured.
const DefaultPolicyCacheTTL = 5 * time.Minute

func NewPolicyCache(store PolicyStore, ttl time.Duration) *PolicyCache {
	if ttl <= 0 {
		ttl = DefaultPolicyCacheTTL
	}
	return &PolicyCache{
		store:   store,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
	}
}

// GetPolicies returns the active policies for a resource type, sorted by
// priority descending. A fresh cached entry is served directly; otherwise the
// store is read and the entry replaced. A store failure is propagated to the
// caller, it never silently yields an empty policy list.
func (pc *PolicyCache) GetPolicies(ctx context.Context, resourceType string) ([]*model.Policy, error) {
	pc.mu.RLock()
	entry := pc.entries[resourceType]
	pc.mu.RUnlock()

	if entry != nil && time.Since(entry.loadedAt) < pc.ttl {
		return entry.policies, nil
	}

	logger.Debug("Loading policies from store", zap.String("resource", resourceType))

	policies, err := pc.store.FindActivePolicies(ctx, resourceType)
	if err != nil {
		return nil, fmt.Errorf("%w: resource %q: %w", aegis_errors.ErrPolicyLoadFailed, resourceType, err)
	}

	pc.mu.Lock()
	pc.entries[resourceType] = &cacheEntry{
		policies: policies,
		loadedAt: time.Now(),
	}
	pc.mu.Unlock()

	return policies, nil
}

// Invalidate drops the cached entry for one resource type. The next read
// goes back to the store.
func (pc *PolicyCache) Invalidate(resourceType string) {
	pc.mu.Lock()
	delete(pc.entries, resourceType)
	pc.mu.Unlock()
	logger.Debug("Policy cache invalidated", zap.String("resource", resourceType))
}

// InvalidateAll clears the entire cache.
func (pc *PolicyCache) InvalidateAll() {
	pc.mu.Lock()
	pc.entries = make(map[string]*cacheEntry)
	pc.mu.Unlock()
	logger.Debug("Policy cache fully invalidated")
}
