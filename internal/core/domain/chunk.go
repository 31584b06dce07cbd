package domain

import "time"

// Chunk is one token window of a raw document. ID doubles as the point
// identifier of its vector index entry.
type Chunk struct {
	ID         string
	UserID     string
	FileID     string
	ChunkIndex int
	Text       string
	// Hash is the sha256 hex of Text.
	Hash string
	// PointID is the vector index entry for this chunk (equal to ID).
	PointID    string
	Vectorized bool
	CreatedAt  time.Time
}

// Vector payload keys. Every point carries all of them.
const (
	PayloadUserID     = "user_id"
	PayloadFileID     = "file_id"
	PayloadFileName   = "file_name"
	PayloadMimeType   = "mime_type"
	PayloadChunkIndex = "chunk_index"
	PayloadHash       = "hash"
)

// VectorPayload is the metadata stored next to an embedding.
type VectorPayload struct {
	UserID     string
	FileID     string
	FileName   string
	MimeType   string
	ChunkIndex int
	Hash       string
}

// VectorPoint is an embedding plus its payload, keyed by chunk id.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload VectorPayload
}

// VectorQuery is a similarity search scoped to one user.
type VectorQuery struct {
	Vector []float32
	// UserID is mandatory; an index must refuse unscoped queries.
	UserID         string
	Limit          int
	ScoreThreshold float32
}

// VectorHit is one search result, ordered by descending score.
type VectorHit struct {
	ID      string
	Score   float32
	Payload VectorPayload
}
