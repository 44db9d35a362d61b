package eporner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSearcher struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (s *countingSearcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &SearchResponse{Videos: []Video{{ID: req.Query}}}, nil
}

func TestCachedSearcherReusesPages(t *testing.T) {
	next := &countingSearcher{}
	s := NewCachedSearcher(next, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := s.Search(ctx, SearchRequest{Query: "a"})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if resp.Videos[0].ID != "a" {
			t.Errorf("Unexpected response %+v", resp)
		}
	}
	if _, err := s.Search(ctx, SearchRequest{Query: "a", Page: 2}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if got := next.calls.Load(); got != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", got)
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 cached pages, got %d", s.Len())
	}
}

func TestCachedSearcherDoesNotCacheErrors(t *testing.T) {
	next := &countingSearcher{err: errors.New("upstream down")}
	s := NewCachedSearcher(next, 8, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := s.Search(context.Background(), SearchRequest{}); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", got)
	}
}

func TestCachedSearcherCoalescesConcurrentSearches(t *testing.T) {
	next := &countingSearcher{delay: 50 * time.Millisecond}
	s := NewCachedSearcher(next, 8, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Search(context.Background(), SearchRequest{Query: "same"}); err != nil {
				t.Errorf("Search failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := next.calls.Load(); got >= 10 {
		t.Errorf("Expected concurrent searches to be coalesced, got %d upstream calls", got)
	}
	if s.Len() != 0 {
		t.Errorf("Expected caching disabled, got %d entries", s.Len())
	}
}
