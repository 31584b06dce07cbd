package driven

import (
	"context"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// VectorIndex stores chunk embeddings for all users in one flat collection.
// Isolation relies on the user_id payload filter, so Search must reject a
// query without a UserID.
type VectorIndex interface {
	// EnsureCollection creates the collection for vectors of size dims if missing.
	EnsureCollection(ctx context.Context, dims int) error

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []domain.VectorPoint) error

	// Search returns up to query.Limit hits for query.UserID with a score
	// at or above query.ScoreThreshold, best first.
	Search(ctx context.Context, query domain.VectorQuery) ([]domain.VectorHit, error)

	// Delete removes points by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Close releases resources.
	Close() error
}
