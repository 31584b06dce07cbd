package drive

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"

	"github.com/custodia-labs/sercha-drive/internal/connectors/google"
	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.FileSourceFactory = (*Factory)(nil)

// Factory opens per-user Drive sources from stored refresh tokens.
type Factory struct {
	creds    driven.CredentialStore
	client   google.OAuthClient
	limiters *google.UserLimiters
	opts     []option.ClientOption
}

// NewFactory creates a Factory. opts are passed to every Drive service and
// let tests point the client at a local server.
func NewFactory(creds driven.CredentialStore, client google.OAuthClient, opts ...option.ClientOption) *Factory {
	return &Factory{
		creds:    creds,
		client:   client,
		limiters: google.NewUserLimiters(google.DefaultDriveRateLimit),
		opts:     opts,
	}
}

// ForUser returns a Source authorised as userID.
func (f *Factory) ForUser(ctx context.Context, userID string) (driven.FileSource, error) {
	cred, err := f.creds.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && cred.RefreshToken == "") {
		return nil, domain.NewPermanent(fmt.Errorf("%w: no Google Drive credential for user %s", domain.ErrAuthRequired, userID))
	}
	if err != nil {
		return nil, domain.NewTransient(fmt.Errorf("load credential: %w", err))
	}

	ts := google.NewUserTokenSource(ctx, f.client, cred.RefreshToken)
	svc, err := google.NewDriveService(ctx, ts, f.opts...)
	if err != nil {
		return nil, domain.NewTransient(fmt.Errorf("create drive service: %w", err))
	}
	return NewSource(svc, f.limiters.For(userID)), nil
}
