package domain

import "time"

// FileRecord is the authoritative ingestion state of one source file for
// one user. There is at most one record per (UserID, FileID).
type FileRecord struct {
	// UserID owns the file.
	UserID string `json:"userId"`

	// FileID is the identifier at the source (Drive file id).
	FileID string `json:"fileId"`

	// Name is the display name at the source.
	Name string `json:"name"`

	// MimeType is the source MIME type (before any export).
	MimeType string `json:"mimeType"`

	// Supported is false for files discovery rejected (type or size).
	Supported bool `json:"supported"`

	// Hash is the sha256 hex of the last successfully fetched text.
	Hash string `json:"hash,omitempty"`

	// Phase is the ingestion phase.
	Phase Phase `json:"ingestionPhase"`

	// Error is the last error or warning, empty when none.
	Error string `json:"ingestionError,omitempty"`

	// RetryCount is the number of automatic retries consumed.
	RetryCount int `json:"retryCount"`

	// LastModifiedAt is the modification time reported by the source.
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`

	// LastIngestedAt is when the file last reached PhaseIndexed.
	LastIngestedAt *time.Time `json:"lastIngestedAt,omitempty"`

	// LastRetryAt is when the last automatic retry was scheduled.
	LastRetryAt *time.Time `json:"lastRetryAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsStale reports whether the source copy changed after the last
// successful ingestion. Files never ingested are not stale.
func (f *FileRecord) IsStale(modifiedAt *time.Time) bool {
	if modifiedAt == nil || f.LastIngestedAt == nil {
		return false
	}
	return modifiedAt.After(*f.LastIngestedAt)
}

// SourceFile is one entry of a file source listing.
type SourceFile struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime *time.Time
	// Size is nil for Google workspace files, which have no byte size.
	Size *int64
}

// Totals aggregates file records for progress polling.
type Totals struct {
	Supported   int `json:"supported"`
	Unsupported int `json:"unsupported"`
	Indexed     int `json:"indexed"`
	InProgress  int `json:"inProgress"`
	Failed      int `json:"failed"`
}

// ComputeTotals counts files. Unsupported files count only toward
// Unsupported; every supported file counts toward exactly one of
// Indexed, Failed or InProgress.
func ComputeTotals(files []FileRecord) Totals {
	var t Totals
	for i := range files {
		if !files[i].Supported {
			t.Unsupported++
			continue
		}
		t.Supported++
		switch files[i].Phase {
		case PhaseIndexed:
			t.Indexed++
		case PhaseFailed:
			t.Failed++
		default:
			t.InProgress++
		}
	}
	return t
}

// Progress is the status surface polled by clients.
type Progress struct {
	Totals Totals       `json:"totals"`
	Files  []FileRecord `json:"files"`
}

// SyncOptions tunes a discovery run.
type SyncOptions struct {
	// Limit caps the number of listed files processed; zero means all.
	Limit int
}

// SyncSummary reports what a discovery run saw.
type SyncSummary struct {
	TotalFound  int `json:"totalFound"`
	Supported   int `json:"supportedCount"`
	Unsupported int `json:"unsupportedCount"`
	Enqueued    int `json:"enqueuedCount"`
}

// RetryStage names the stage a manual retry resumed at.
type RetryStage string

// Retry stages.
const (
	RetryStageFetch     RetryStage = "fetch"
	RetryStageVectorize RetryStage = "vectorize"
)
