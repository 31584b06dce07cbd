package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]domain.FileRecord
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]domain.FileRecord)}
}

func fileKey(userID, fileID string) string {
	return userID + "\x00" + fileID
}

// Get retrieves a file record.
func (s *FileStore) Get(_ context.Context, userID, fileID string) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileKey(userID, fileID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

// Upsert stores a file record, preserving CreatedAt of an existing one.
func (s *FileStore) Upsert(_ context.Context, file *domain.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := *file
	key := fileKey(rec.UserID, rec.FileID)
	if existing, ok := s.files[key]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.files[key] = rec
	return nil
}

// Update applies a partial update under the store lock.
func (s *FileStore) Update(_ context.Context, userID, fileID string, update driven.FileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fileKey(userID, fileID)
	rec, ok := s.files[key]
	if !ok {
		return domain.ErrNotFound
	}
	if err := update.Check(&rec); err != nil {
		return err
	}
	update.Apply(&rec)
	rec.UpdatedAt = time.Now().UTC()
	s.files[key] = rec
	return nil
}

// List returns a user's files ordered by name.
func (s *FileStore) List(_ context.Context, userID string) ([]domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.FileRecord
	for _, f := range s.files {
		if f.UserID == userID {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].FileID < result[j].FileID
	})
	return result, nil
}
