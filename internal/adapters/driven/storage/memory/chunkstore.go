package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[string]domain.Chunk)}
}

// Insert stores chunks. A duplicate ID fails the whole batch.
func (s *ChunkStore) Insert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, ok := s.chunks[c.ID]; ok {
			return fmt.Errorf("chunk %s already exists", c.ID)
		}
	}
	now := time.Now().UTC()
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// ListByFile returns a file's chunks ordered by index.
func (s *ChunkStore) ListByFile(_ context.Context, userID, fileID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Chunk
	for _, c := range s.chunks {
		if c.UserID == userID && c.FileID == fileID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ChunkIndex < result[j].ChunkIndex })
	return result, nil
}

// DeleteByFile removes every chunk of a file.
func (s *ChunkStore) DeleteByFile(_ context.Context, userID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.UserID == userID && c.FileID == fileID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Get retrieves a chunk by ID.
func (s *ChunkStore) Get(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// GetMany returns the chunks that exist among ids.
func (s *ChunkStore) GetMany(_ context.Context, ids []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}
