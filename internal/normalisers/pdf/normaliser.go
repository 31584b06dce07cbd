// Package pdf extracts the text layer of PDF documents. Image-only pages
// have no text layer and contribute empty text; no OCR is attempted.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// MimeType is the PDF MIME type.
const MimeType = "application/pdf"

// EmptyTextWarning is reported when a PDF has no extractable text.
const EmptyTextWarning = "PDF produced empty text, it may be a scanned image-only document"

// PageReader returns the plain text of each page of a PDF.
type PageReader func(data []byte) ([]string, error)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct {
	readPages PageReader
}

// Option configures the normaliser.
type Option func(*Normaliser)

// WithPageReader replaces the PDF parser. Used in tests.
func WithPageReader(r PageReader) Option {
	return func(n *Normaliser) {
		n.readPages = r
	}
}

// New creates a new PDF normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{readPages: readPages}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MimeType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise joins the text of every page with a newline.
func (n *Normaliser) Normalise(_ context.Context, content *domain.SourceContent) (*driven.NormaliseResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.readPages(content.Data)
	if err != nil {
		return nil, domain.NewPermanent(fmt.Errorf("%w: read pdf: %v", domain.ErrInvalidInput, err))
	}

	result := &driven.NormaliseResult{Text: strings.Join(pages, "\n")}
	if strings.TrimSpace(result.Text) == "" {
		result.Warnings = append(result.Warnings, EmptyTextWarning)
	}
	return result, nil
}

// readPages parses data with ledongthuc/pdf. The parser panics on some
// malformed inputs, so panics are turned into errors.
func readPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
