package domain

import (
	"math"
	"time"
	"unicode/utf8"
)

// Fetch limits.
const (
	// MaxTextChars is the hard cap on extracted text, in characters.
	MaxTextChars = 100_000

	// TruncationWarning is recorded on the file when text was cut.
	TruncationWarning = "Warning: File truncated due to 100k character size limit."

	// MaxSourceFileSize is the largest file discovery accepts.
	MaxSourceFileSize int64 = 10 * 1024 * 1024

	// MaxErrorChars caps persisted error messages.
	MaxErrorChars = 1000
)

// Retry policy.
const (
	// MaxRetries is the number of automatic retries after the first failure.
	MaxRetries = 2
)

// Chunking and embedding.
const (
	ChunkTokens    = 800
	ChunkOverlap   = 100
	EmbedBatchSize = 50
)

// Retrieval.
const (
	ScoreThreshold    float32 = 0.4
	DefaultTopK               = 10
	MaxTopK                   = 50
	MaxChunksPerFile          = 2
	MaxFilesPerResult         = 5

	NoResultsMessage   = "No relevant documents found in Google Drive."
	FileSeparator      = "\n\n---\n\n"
	NeighbourSeparator = "\n...\n"
)

// RetryBackoff is the delay before the retry that follows a failure seen
// with retryCount retries already consumed: 2s, then 4s.
func RetryBackoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount+1))) * time.Second
}

// TruncateText caps text at MaxTextChars characters and reports whether it
// was cut. Cuts never split a UTF-8 sequence.
func TruncateText(text string) (string, bool) {
	return truncateRunes(text, MaxTextChars)
}

// TruncateError caps an error message at MaxErrorChars characters.
func TruncateError(msg string) string {
	out, _ := truncateRunes(msg, MaxErrorChars)
	return out
}

func truncateRunes(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}
