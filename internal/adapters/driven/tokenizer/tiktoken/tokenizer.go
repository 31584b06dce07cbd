// Package tiktoken provides the cl100k_base tokenizer used to size chunk
// windows. The BPE ranks are downloaded on first use and cached in the
// directory named by TIKTOKEN_CACHE_DIR.
package tiktoken

import (
	"fmt"
	"strings"

	tiktokengo "github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// DefaultEncoding is the encoding of the OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = (*Tokenizer)(nil)

// Tokenizer wraps a tiktoken encoding.
type Tokenizer struct {
	name string
	enc  *tiktokengo.Tiktoken
}

// New loads the named encoding; an empty name selects DefaultEncoding.
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktokengo.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tokenizer{name: encoding, enc: enc}, nil
}

// Encode returns the token ids of text. Special-token text is encoded as
// ordinary text.
func (t *Tokenizer) Encode(text string) []int {
	if text == "" {
		return nil
	}
	return t.enc.Encode(text, nil, nil)
}

// Decode turns token ids back into text. Bytes of a character split
// across the slice boundary are replaced with U+FFFD.
func (t *Tokenizer) Decode(tokens []int) string {
	return strings.ToValidUTF8(t.enc.Decode(tokens), "\uFFFD")
}

// Name returns the encoding name.
func (t *Tokenizer) Name() string {
	return t.name
}
