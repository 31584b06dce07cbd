package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore is an in-memory implementation of driven.CredentialStore.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]domain.UserCredential
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]domain.UserCredential)}
}

// Get retrieves a user's credential.
func (s *CredentialStore) Get(_ context.Context, userID string) (*domain.UserCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// Save stores a user's credential.
func (s *CredentialStore) Save(_ context.Context, cred *domain.UserCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	s.creds[c.UserID] = c
	return nil
}
