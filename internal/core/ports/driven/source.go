package driven

import (
	"context"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// FileSource is a user-scoped view of the document source.
type FileSource interface {
	// List returns every non-trashed file visible to the user.
	List(ctx context.Context) ([]domain.SourceFile, error)

	// Download returns the raw bytes of a binary file.
	Download(ctx context.Context, fileID string) ([]byte, error)

	// Export converts a workspace-native file to targetMime and returns the bytes.
	Export(ctx context.Context, fileID, targetMime string) ([]byte, error)
}

// FileSourceFactory opens a FileSource with the user's stored credential.
type FileSourceFactory interface {
	// ForUser returns domain.ErrAuthRequired when the user has no credential.
	ForUser(ctx context.Context, userID string) (FileSource, error)
}

// BlobStore archives fetched source bytes.
type BlobStore interface {
	// Put stores data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
