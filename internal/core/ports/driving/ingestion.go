package driving

import (
	"context"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// IngestionService exposes file status and manual controls.
type IngestionService interface {
	// ListFiles returns every file record of the user.
	ListFiles(ctx context.Context, userID string) ([]domain.FileRecord, error)

	// Progress returns aggregate totals plus the file list.
	Progress(ctx context.Context, userID string) (*domain.Progress, error)

	// RetryFile resumes a failed file at vectorize when its raw document
	// exists, otherwise at fetch.
	RetryFile(ctx context.Context, userID, fileID string) (domain.RetryStage, error)

	// EnqueueFetch appends a fetch job.
	EnqueueFetch(ctx context.Context, userID, fileID string) error

	// EnqueueVectorize appends a vectorize job.
	EnqueueVectorize(ctx context.Context, userID, fileID string) error
}

// DiscoveryService reconciles the source listing with file records.
type DiscoveryService interface {
	// Sync lists the user's files, classifies them and enqueues fetch jobs.
	Sync(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncSummary, error)
}

// CredentialService manages the per-user file source credential.
type CredentialService interface {
	// SaveCredential stores a refresh token for userID.
	SaveCredential(ctx context.Context, userID, refreshToken, accountEmail string) error

	// HasCredential reports whether userID has a stored credential.
	HasCredential(ctx context.Context, userID string) (bool, error)
}
