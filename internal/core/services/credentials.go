package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
)

// Ensure CredentialService implements the interface.
var _ driving.CredentialService = (*CredentialService)(nil)

// CredentialService stores the refresh tokens the file source uses.
type CredentialService struct {
	store driven.CredentialStore
}

// NewCredentialService creates a credential service.
func NewCredentialService(store driven.CredentialStore) *CredentialService {
	return &CredentialService{store: store}
}

// SaveCredential stores refreshToken for userID.
func (s *CredentialService) SaveCredential(ctx context.Context, userID, refreshToken, accountEmail string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return fmt.Errorf("%w: refresh token is required", domain.ErrInvalidInput)
	}
	return s.store.Save(ctx, &domain.UserCredential{
		UserID:       userID,
		RefreshToken: refreshToken,
		AccountEmail: accountEmail,
		UpdatedAt:    time.Now().UTC(),
	})
}

// HasCredential reports whether userID has a stored refresh token.
func (s *CredentialService) HasCredential(ctx context.Context, userID string) (bool, error) {
	cred, err := s.store.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cred.RefreshToken != "", nil
}
