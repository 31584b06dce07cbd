package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

func TestCredentialService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCredentialStore()
	svc := NewCredentialService(store)

	has, err := svc.HasCredential(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, svc.SaveCredential(ctx, "u1", "  1//refresh  ", "me@example.com"))

	has, err = svc.HasCredential(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has)

	cred, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "1//refresh", cred.RefreshToken)
	assert.Equal(t, "me@example.com", cred.AccountEmail)
	assert.False(t, cred.UpdatedAt.IsZero())
}

func TestCredentialService_RejectsEmpty(t *testing.T) {
	svc := NewCredentialService(memory.NewCredentialStore())

	assert.ErrorIs(t, svc.SaveCredential(context.Background(), "", "tok", ""), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.SaveCredential(context.Background(), "u1", "   ", ""), domain.ErrInvalidInput)
}
