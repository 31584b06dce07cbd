package domain

import "fmt"

// Source MIME types.
const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeCSV      = "text/csv"
	MimeJSON     = "application/json"

	MimeGoogleDoc    = "application/vnd.google-apps.document"
	MimeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeGoogleSlides = "application/vnd.google-apps.presentation"
)

// SupportedMIMETypes are the source types discovery accepts.
var SupportedMIMETypes = []string{
	MimePDF, MimeText, MimeMarkdown, MimeCSV, MimeJSON, MimeDOCX,
	MimeGoogleDoc, MimeGoogleSheet, MimeGoogleSlides,
}

// IsSupportedMIME reports whether discovery accepts mimeType.
func IsSupportedMIME(mimeType string) bool {
	for _, m := range SupportedMIMETypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

// ExportMIME returns the format a workspace-native file is exported as.
// ok is false for files that are downloaded as-is.
func ExportMIME(mimeType string) (target string, ok bool) {
	switch mimeType {
	case MimeGoogleDoc, MimeGoogleSlides:
		return MimeText, true
	case MimeGoogleSheet:
		return MimeCSV, true
	default:
		return "", false
	}
}

// UnsupportedReason returns why discovery rejects a file, or "" when the
// file is accepted. Size is checked first.
func UnsupportedReason(f SourceFile) string {
	if f.Size != nil && *f.Size > MaxSourceFileSize {
		return fmt.Sprintf("File exceeds 10MB limit (size: %d bytes)", *f.Size)
	}
	if !IsSupportedMIME(f.MimeType) {
		return "Unsupported MIME type: " + f.MimeType
	}
	return ""
}
