package eporner

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"epstream/pkg/logger"
)

// CachedSearcher keeps recent search pages and collapses identical
// concurrent searches into a single upstream request.
type CachedSearcher struct {
	next  Searcher
	cache *expirable.LRU[string, *SearchResponse]
	group singleflight.Group
}

// NewCachedSearcher wraps next. A ttl <= 0 disables caching but still
// coalesces concurrent requests.
func NewCachedSearcher(next Searcher, size int, ttl time.Duration) *CachedSearcher {
	s := &CachedSearcher{next: next}
	if ttl > 0 {
		if size <= 0 {
			size = 256
		}
		s.cache = expirable.NewLRU[string, *SearchResponse](size, nil, ttl)
	}
	return s
}

func cacheKey(req SearchRequest) string {
	p := req.params()
	return p.Encode()
}

// Search returns a cached page when available.
func (s *CachedSearcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	key := cacheKey(req)
	if s.cache != nil {
		if resp, ok := s.cache.Get(key); ok {
			logger.FromContext(ctx).Debug("Catalog cache hit", "key", key)
			return resp, nil
		}
	}

	// The shared call must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		resp, err := s.next.Search(shared, req)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(key, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	resp, ok := v.(*SearchResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected search result type %T", v)
	}
	return resp, nil
}

// Len reports how many pages are cached.
func (s *CachedSearcher) Len() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}
