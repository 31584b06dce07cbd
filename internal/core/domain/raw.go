package domain

import "time"

// RawDocument is the fully extracted, possibly truncated text of a file.
// Its existence tells a manual retry to resume at vectorize instead of fetch.
type RawDocument struct {
	// UserID owns the document.
	UserID string

	// FileID links to the FileRecord.
	FileID string

	// MimeType is the MIME type the text was extracted from (after export).
	MimeType string

	// Text is the extracted text, at most MaxTextChars characters.
	Text string

	// Hash is the sha256 hex of Text.
	Hash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceContent is the byte payload fetched from a file source, ready for
// text extraction.
type SourceContent struct {
	// FileID identifies the file at the source.
	FileID string

	// Name is the display name, used for logging and metadata.
	Name string

	// MimeType is the effective MIME type (the export type for workspace files).
	MimeType string

	// Data is the raw content.
	Data []byte
}
