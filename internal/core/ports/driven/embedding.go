package driven

import "context"

// EmbeddingService turns chunk text and retrieval queries into vectors.
// Errors are classified: a rejected key or model is Permanent, rate
// limits and outages are Transient.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector size the index collection is created with.
	Dimensions() int

	ModelName() string

	// Ping checks credentials without running inference.
	Ping(ctx context.Context) error

	Close() error
}

// Tokenizer encodes text with the canonical tokenizer used for chunk windows.
type Tokenizer interface {
	// Encode returns the token ids of text.
	Encode(text string) []int

	// Decode turns token ids back into text.
	Decode(tokens []int) string

	// Name returns the encoding name (e.g., "cl100k_base").
	Name() string
}
