package driving

import (
	"context"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// RetrievalService answers queries against a user's indexed files.
type RetrievalService interface {
	// Retrieve returns the formatted context and citations for req.
	// No hits above the score threshold is a normal, non-error result.
	Retrieve(ctx context.Context, req domain.RetrieveRequest) (*domain.RetrievalResult, error)

	// ChunkContext returns a chunk with its neighbours. Chunks of other
	// users yield domain.ErrForbidden.
	ChunkContext(ctx context.Context, userID, chunkID string) (*domain.ChunkContext, error)
}
