// Package memory provides a brute-force cosine similarity vector index.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps every point in a map and scans them on search.
type Index struct {
	mu     sync.RWMutex
	dims   int
	points map[string]domain.VectorPoint
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{points: make(map[string]domain.VectorPoint)}
}

// EnsureCollection fixes the vector size. A second call with a different
// size fails.
func (x *Index) EnsureCollection(_ context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrInvalidInput, dims)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dims != 0 && x.dims != dims {
		return domain.NewPermanent(fmt.Errorf("collection has dimension %d, want %d", x.dims, dims))
	}
	x.dims = dims
	return nil
}

// Upsert inserts or replaces points.
func (x *Index) Upsert(_ context.Context, points []domain.VectorPoint) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, p := range points {
		if x.dims != 0 && len(p.Vector) != x.dims {
			return domain.NewPermanent(fmt.Errorf("vector dimension mismatch: got %d, want %d", len(p.Vector), x.dims))
		}
	}
	for _, p := range points {
		x.points[p.ID] = p
	}
	return nil
}

// Search scores the user's points against the query vector.
func (x *Index) Search(_ context.Context, q domain.VectorQuery) ([]domain.VectorHit, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: vector search requires a user id", domain.ErrInvalidInput)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []domain.VectorHit
	for _, p := range x.points {
		if p.Payload.UserID != q.UserID {
			continue
		}
		score := cosine(p.Vector, q.Vector)
		if score < q.ScoreThreshold {
			continue
		}
		hits = append(hits, domain.VectorHit{ID: p.ID, Score: score, Payload: p.Payload})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// Delete removes points by ID.
func (x *Index) Delete(_ context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.points, id)
	}
	return nil
}

// Close is a no-op.
func (x *Index) Close() error { return nil }

// Len returns the number of stored points.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.points)
}

// Point returns a stored point.
func (x *Index) Point(id string) (domain.VectorPoint, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	p, ok := x.points[id]
	return p, ok
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
