package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"peerprep/questiongen/internal/models"
)

// ErrContextNotFound means the request was never cached or its TTL ran out.
var ErrContextNotFound = errors.New("request context not found or expired")

// ContextStore holds generation contexts until a reviewer rates them.
type ContextStore interface {
	Set(ctx context.Context, rc *models.RequestContext) error
	Get(ctx context.Context, requestID string) (*models.RequestContext, error)
	Delete(ctx context.Context, requestID string) error
	Size(ctx context.Context) int
}

// ContextCache stores request contexts temporarily for feedback collection
// Uses in-memory storage with TTL to avoid database overhead
type ContextCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	context   *models.RequestContext
	expiresAt time.Time
}

// NewContextCache creates a new context cache with the specified TTL
func NewContextCache(ttl time.Duration) *ContextCache {
	cc := &ContextCache{
		cache: make(map[string]*cacheEntry),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go cc.cleanupLoop(5 * time.Minute)

	return cc
}

// Set stores a request context with TTL
func (cc *ContextCache) Set(_ context.Context, rc *models.RequestContext) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.cache[rc.RequestID] = &cacheEntry{
		context:   rc,
		expiresAt: time.Now().Add(cc.ttl),
	}
	return nil
}

// Get retrieves a request context if it exists and hasn't expired
func (cc *ContextCache) Get(_ context.Context, requestID string) (*models.RequestContext, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	entry, exists := cc.cache[requestID]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, ErrContextNotFound
	}
	return entry.context, nil
}

// Delete removes a request context from cache
func (cc *ContextCache) Delete(_ context.Context, requestID string) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	delete(cc.cache, requestID)
	return nil
}

// Close stops the cleanup goroutine.
func (cc *ContextCache) Close() {
	cc.once.Do(func() { close(cc.stop) })
}

func (cc *ContextCache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cc.cleanup()
		case <-cc.stop:
			return
		}
	}
}

// cleanup removes expired entries from cache
func (cc *ContextCache) cleanup() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	now := time.Now()
	for requestID, entry := range cc.cache {
		if now.After(entry.expiresAt) {
			delete(cc.cache, requestID)
		}
	}
}

// Size returns the current number of cached contexts
func (cc *ContextCache) Size(_ context.Context) int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	return len(cc.cache)
}
