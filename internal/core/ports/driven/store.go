package driven

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// FileUpdate is a partial update of a FileRecord. Nil fields are left
// untouched; a non-nil Error pointing at "" clears the stored error.
type FileUpdate struct {
	// Source metadata, written by discovery.
	Name           *string
	MimeType       *string
	Supported      *bool
	LastModifiedAt *time.Time

	Phase          *domain.Phase
	Error          *string
	RetryCount     *int
	Hash           *string
	LastIngestedAt *time.Time
	LastRetryAt    *time.Time

	// IfPhase makes the update conditional: it fails with
	// domain.ErrConflict when the stored phase differs.
	IfPhase *domain.Phase
}

// FileStore persists file records keyed by (userID, fileID).
type FileStore interface {
	// Get returns the record or domain.ErrNotFound.
	Get(ctx context.Context, userID, fileID string) (*domain.FileRecord, error)

	// Upsert inserts or replaces the record for (UserID, FileID).
	// CreatedAt is preserved on update.
	Upsert(ctx context.Context, file *domain.FileRecord) error

	// Update applies a partial update atomically. Returns domain.ErrNotFound
	// for unknown files and domain.ErrConflict when IfPhase does not match.
	Update(ctx context.Context, userID, fileID string, update FileUpdate) error

	// List returns every record of a user ordered by name.
	List(ctx context.Context, userID string) ([]domain.FileRecord, error)
}

// RawDocumentStore persists extracted text, one document per file.
type RawDocumentStore interface {
	// Get returns the document or domain.ErrNotFound.
	Get(ctx context.Context, userID, fileID string) (*domain.RawDocument, error)

	// Upsert inserts or overwrites the document for (UserID, FileID).
	Upsert(ctx context.Context, doc *domain.RawDocument) error

	// Exists reports whether a document was ever stored for the file.
	Exists(ctx context.Context, userID, fileID string) (bool, error)
}

// ChunkStore persists chunk records.
type ChunkStore interface {
	// Insert stores chunks. IDs must be new.
	Insert(ctx context.Context, chunks []domain.Chunk) error

	// ListByFile returns the chunks of a file ordered by ChunkIndex.
	ListByFile(ctx context.Context, userID, fileID string) ([]domain.Chunk, error)

	// DeleteByFile removes every chunk of a file.
	DeleteByFile(ctx context.Context, userID, fileID string) error

	// Get returns one chunk or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Chunk, error)

	// GetMany returns the chunks that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []string) ([]domain.Chunk, error)
}

// CredentialStore persists per-user file source credentials.
type CredentialStore interface {
	// Get returns the credential or domain.ErrNotFound.
	Get(ctx context.Context, userID string) (*domain.UserCredential, error)

	// Save inserts or replaces the credential.
	Save(ctx context.Context, cred *domain.UserCredential) error
}

// Check returns domain.ErrConflict when f does not satisfy IfPhase.
func (u FileUpdate) Check(f *domain.FileRecord) error {
	if u.IfPhase != nil && f.Phase != *u.IfPhase {
		return fmt.Errorf("%w: file %s is %s, expected %s", domain.ErrConflict, f.FileID, f.Phase, *u.IfPhase)
	}
	return nil
}

// Apply copies the set fields of u onto f.
func (u FileUpdate) Apply(f *domain.FileRecord) {
	if u.Name != nil {
		f.Name = *u.Name
	}
	if u.MimeType != nil {
		f.MimeType = *u.MimeType
	}
	if u.Supported != nil {
		f.Supported = *u.Supported
	}
	if u.LastModifiedAt != nil {
		t := *u.LastModifiedAt
		f.LastModifiedAt = &t
	}
	if u.Phase != nil {
		f.Phase = *u.Phase
	}
	if u.Error != nil {
		f.Error = *u.Error
	}
	if u.RetryCount != nil {
		f.RetryCount = *u.RetryCount
	}
	if u.Hash != nil {
		f.Hash = *u.Hash
	}
	if u.LastIngestedAt != nil {
		t := *u.LastIngestedAt
		f.LastIngestedAt = &t
	}
	if u.LastRetryAt != nil {
		t := *u.LastRetryAt
		f.LastRetryAt = &t
	}
}
