package domain

// RetrieveRequest is a retrieval query scoped to one user.
type RetrieveRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
	// TopK caps vector hits; zero means DefaultTopK.
	TopK int `json:"topK,omitempty"`
}

// Citation references the retained chunks of one source file.
type Citation struct {
	// Type is always "drive".
	Type string `json:"type"`

	// ChunkID is the comma-joined ids of all retained chunks, best first.
	ChunkID string `json:"chunkId"`

	// ChunkIDs lists the retained chunk ids, best first.
	ChunkIDs []string `json:"chunkIds"`

	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`

	// Score is the highest score among the retained chunks.
	Score float32 `json:"score"`
}

// CitationTypeDrive is the Citation.Type of every drive citation.
const CitationTypeDrive = "drive"

// RetrievalResult is the formatted context block plus its citations.
type RetrievalResult struct {
	FormattedText string     `json:"formattedSnippet"`
	Citations     []Citation `json:"citations"`
}

// ChunkContext is a chunk enriched with its immediate neighbours.
type ChunkContext struct {
	ChunkID  string `json:"chunkId"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	// Text joins chunks index-1..index+1 with NeighbourSeparator.
	Text string `json:"text"`
}
