package vision

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"camdash/internal/model"
)

const statusKey = "vision_status"

// StatusFetcher is the backend call behind StatusCache.
type StatusFetcher interface {
	VisionStatus(ctx context.Context) (model.VisionStatus, error)
}

// StatusCache memoises the backend's vision capability flag so that every
// page render does not cost a round trip. Shared by all sessions.
type StatusCache struct {
	backend StatusFetcher
	cache   *cache.Cache
}

// NewStatusCache creates a cache whose entries expire after ttl.
func NewStatusCache(backend StatusFetcher, ttl time.Duration) *StatusCache {
	return &StatusCache{
		backend: backend,
		cache:   cache.New(ttl, ttl*2),
	}
}

// Get returns the cached status, fetching it on a miss. Failures are not cached.
func (s *StatusCache) Get(ctx context.Context) (model.VisionStatus, error) {
	if v, found := s.cache.Get(statusKey); found {
		if status, ok := v.(model.VisionStatus); ok {
			return status, nil
		}
	}

	status, err := s.backend.VisionStatus(ctx)
	if err != nil {
		return model.VisionStatus{}, err
	}
	s.cache.Set(statusKey, status, cache.DefaultExpiration)
	return status, nil
}

// Peek returns the cached status without contacting the backend.
func (s *StatusCache) Peek() (model.VisionStatus, bool) {
	v, found := s.cache.Get(statusKey)
	if !found {
		return model.VisionStatus{}, false
	}
	status, ok := v.(model.VisionStatus)
	return status, ok
}

// Invalidate drops the cached status after a reference mutation.
func (s *StatusCache) Invalidate() {
	s.cache.Delete(statusKey)
}
