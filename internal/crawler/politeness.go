package crawler

import (
	"context"
	"time"
)

// linkSet keeps the first-seen order of unique detail URLs across a batch.
type linkSet struct {
	seen  map[string]struct{}
	order []string
}

func newLinkSet() *linkSet {
	return &linkSet{seen: make(map[string]struct{})}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (s *linkSet) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Links returns the unique URLs in discovery order.
func (s *linkSet) Links() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// pauseController abstracts how the extractor waits between page fetches.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
