// Package chunker splits text into overlapping token windows.
package chunker

import (
	"strings"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Chunker splits text into windows of chunkSize tokens where consecutive
// windows share overlap tokens. The final window may be shorter.
type Chunker struct {
	tokenizer driven.Tokenizer
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the window size in tokens.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the number of tokens shared by consecutive windows.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker using tok, defaulting to 800-token windows with a
// 100-token overlap.
func New(tok driven.Tokenizer, opts ...Option) *Chunker {
	c := &Chunker{
		tokenizer: tok,
		chunkSize: domain.ChunkTokens,
		overlap:   domain.ChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Step is the token distance between the starts of consecutive windows.
func (c *Chunker) Step() int {
	return c.chunkSize - c.overlap
}

// Split returns the decoded text of every window. Text that encodes to
// zero tokens yields no chunks. A window edge can fall inside a
// multi-token character; its partial bytes become U+FFFD.
func (c *Chunker) Split(text string) []string {
	tokens := c.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.Step()
	chunks := make([]string, 0, len(tokens)/step+1)

	for start := 0; start < len(tokens); start += step {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.ToValidUTF8(c.tokenizer.Decode(tokens[start:end]), "\uFFFD"))
	}

	return chunks
}

// Count returns how many windows Split produces for n tokens.
func (c *Chunker) Count(n int) int {
	if n <= 0 {
		return 0
	}
	step := c.Step()
	return (n + step - 1) / step
}
