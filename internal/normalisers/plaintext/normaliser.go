// Package plaintext turns text-like Drive content into UTF-8. Google
// Docs, Sheets and Slides arrive here already exported as text/plain or
// text/csv.
package plaintext

import (
	"bytes"
	"context"
	"strings"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normaliser is the lowest priority fallback for text/* content.
type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/*",
		domain.MimeText,
		domain.MimeMarkdown,
		domain.MimeCSV,
		domain.MimeJSON,
		"application/csv",
	}
}

func (n *Normaliser) Priority() int {
	return 5
}

// Normalise drops a leading byte order mark and replaces invalid UTF-8
// with U+FFFD.
func (n *Normaliser) Normalise(_ context.Context, content *domain.SourceContent) (*driven.NormaliseResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}
	data := bytes.TrimPrefix(content.Data, utf8BOM)
	return &driven.NormaliseResult{
		Text: strings.ToValidUTF8(string(data), "�"),
	}, nil
}
