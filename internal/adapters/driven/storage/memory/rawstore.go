package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure RawDocumentStore implements the interface.
var _ driven.RawDocumentStore = (*RawDocumentStore)(nil)

// RawDocumentStore is an in-memory implementation of driven.RawDocumentStore.
type RawDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.RawDocument
}

// NewRawDocumentStore creates a new in-memory raw document store.
func NewRawDocumentStore() *RawDocumentStore {
	return &RawDocumentStore{docs: make(map[string]domain.RawDocument)}
}

// Get retrieves the raw document of a file.
func (s *RawDocumentStore) Get(_ context.Context, userID, fileID string) (*domain.RawDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[fileKey(userID, fileID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// Upsert stores or overwrites the raw document of a file.
func (s *RawDocumentStore) Upsert(_ context.Context, doc *domain.RawDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := *doc
	key := fileKey(rec.UserID, rec.FileID)
	if existing, ok := s.docs[key]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.docs[key] = rec
	return nil
}

// Exists reports whether a raw document is stored for the file.
func (s *RawDocumentStore) Exists(_ context.Context, userID, fileID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[fileKey(userID, fileID)]
	return ok, nil
}
