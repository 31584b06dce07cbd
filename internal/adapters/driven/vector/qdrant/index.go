// Package qdrant implements the vector index on a Qdrant collection with
// cosine distance. Every point carries a user_id payload field with a
// keyword index, and every search filters on it.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Config holds the connection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Index is a driven.VectorIndex on one Qdrant collection.
type Index struct {
	client     *qdrant.Client
	collection string
	log        logger.Logger
}

// New connects to Qdrant over gRPC.
func New(cfg Config) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}
	return &Index{client: client, collection: cfg.Collection, log: logger.With("qdrant")}, nil
}

// EnsureCollection creates the collection and its user_id index when
// missing, and checks the vector size of an existing one.
func (x *Index) EnsureCollection(ctx context.Context, dims int) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}

	if exists {
		info, err := x.client.GetCollectionInfo(ctx, x.collection)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && size != uint64(dims) {
			return domain.NewPermanent(fmt.Errorf("collection %s has dimension %d, want %d", x.collection, size, dims))
		}
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection: %v", domain.ErrVectorIndexUnavailable, err)
	}

	_, err = x.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: x.collection,
		FieldName:      domain.PayloadUserID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("%w: create user index: %v", domain.ErrVectorIndexUnavailable, err)
	}
	x.log.Info("created collection %s (%d dims)", x.collection, dims)
	return nil
}

// Upsert writes points and waits for them to be searchable.
func (x *Index) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = toPointStruct(p)
	}
	wait := true
	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Search queries the user's points.
func (x *Index) Search(ctx context.Context, q domain.VectorQuery) ([]domain.VectorHit, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: search requires a user id", domain.ErrInvalidInput)
	}
	limit := uint64(q.Limit)
	threshold := q.ScoreThreshold
	scored, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Filter:         userFilter(q.UserID),
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrVectorIndexUnavailable, err)
	}

	hits := make([]domain.VectorHit, 0, len(scored))
	for _, p := range scored {
		hits = append(hits, domain.VectorHit{
			ID:      p.GetId().GetUuid(),
			Score:   p.GetScore(),
			Payload: fromPayload(p.GetPayload()),
		})
	}
	return hits, nil
}

// Delete removes points by id.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}
	wait := true
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}

func userFilter(userID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(domain.PayloadUserID, userID)},
	}
}

func toPointStruct(p domain.VectorPoint) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(p.ID),
		Vectors: qdrant.NewVectors(p.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			domain.PayloadUserID:     p.Payload.UserID,
			domain.PayloadFileID:     p.Payload.FileID,
			domain.PayloadFileName:   p.Payload.FileName,
			domain.PayloadMimeType:   p.Payload.MimeType,
			domain.PayloadChunkIndex: int64(p.Payload.ChunkIndex),
			domain.PayloadHash:       p.Payload.Hash,
		}),
	}
}

func fromPayload(payload map[string]*qdrant.Value) domain.VectorPayload {
	return domain.VectorPayload{
		UserID:     payload[domain.PayloadUserID].GetStringValue(),
		FileID:     payload[domain.PayloadFileID].GetStringValue(),
		FileName:   payload[domain.PayloadFileName].GetStringValue(),
		MimeType:   payload[domain.PayloadMimeType].GetStringValue(),
		ChunkIndex: int(payload[domain.PayloadChunkIndex].GetIntegerValue()),
		Hash:       payload[domain.PayloadHash].GetStringValue(),
	}
}
