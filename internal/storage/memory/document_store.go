package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/druginfo-crawler/internal/crawler"
)

// DocumentStore keeps one document per URL.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]crawler.Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]crawler.Document)}
}

// Upsert replaces the document stored under doc.URL.
func (s *DocumentStore) Upsert(_ context.Context, doc crawler.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Details = append([]crawler.Detail(nil), doc.Details...)
	s.docs[doc.URL] = doc
	return nil
}

// Clear removes every document.
func (s *DocumentStore) Clear(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.docs))
	s.docs = make(map[string]crawler.Document)
	return n, nil
}

// Ping always succeeds.
func (s *DocumentStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op so one store can serve several batches in a process.
func (s *DocumentStore) Close(_ context.Context) error {
	return nil
}

// Get returns the document stored under url.
func (s *DocumentStore) Get(url string) (crawler.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[url]
	return doc, ok
}

// Documents returns every stored document ordered by URL.
func (s *DocumentStore) Documents() []crawler.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
