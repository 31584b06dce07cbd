package driven

import (
	"context"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// Normaliser extracts plain text from source bytes.
// Each normaliser handles specific MIME types (e.g., PDF, DOCX).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	// A trailing "/*" matches a whole top-level type.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the text of content.
	Normalise(ctx context.Context, content *domain.SourceContent) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Text is the extracted text, untruncated.
	Text string

	// Warnings are non-fatal extraction notes (e.g., no text layer).
	Warnings []string
}

// NormaliserRegistry manages normaliser selection by MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser to the registry.
	Register(n Normaliser)

	// Supports reports whether some normaliser handles mimeType.
	Supports(mimeType string) bool

	// Normalise selects the highest-priority normaliser for content.MimeType.
	// Returns a permanent domain.ErrUnsupportedType error when none matches.
	Normalise(ctx context.Context, content *domain.SourceContent) (*NormaliseResult, error)

	// SupportedMIMETypes returns all explicitly registered MIME types.
	SupportedMIMETypes() []string
}
