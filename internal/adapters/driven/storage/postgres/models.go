package postgres

import (
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// fileModel is the files table.
type fileModel struct {
	UserID         string `gorm:"primaryKey"`
	FileID         string `gorm:"primaryKey"`
	Name           string
	MimeType       string
	Supported      bool
	Hash           string
	Phase          string `gorm:"index;not null;default:'discovered'"`
	Error          string
	RetryCount     int
	LastModifiedAt *time.Time
	LastIngestedAt *time.Time
	LastRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (fileModel) TableName() string { return "files" }

func fileFromDomain(f *domain.FileRecord) fileModel {
	return fileModel{
		UserID:         f.UserID,
		FileID:         f.FileID,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Supported:      f.Supported,
		Hash:           f.Hash,
		Phase:          string(f.Phase),
		Error:          f.Error,
		RetryCount:     f.RetryCount,
		LastModifiedAt: f.LastModifiedAt,
		LastIngestedAt: f.LastIngestedAt,
		LastRetryAt:    f.LastRetryAt,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func (m fileModel) toDomain() domain.FileRecord {
	return domain.FileRecord{
		UserID:         m.UserID,
		FileID:         m.FileID,
		Name:           m.Name,
		MimeType:       m.MimeType,
		Supported:      m.Supported,
		Hash:           m.Hash,
		Phase:          domain.Phase(m.Phase),
		Error:          m.Error,
		RetryCount:     m.RetryCount,
		LastModifiedAt: m.LastModifiedAt,
		LastIngestedAt: m.LastIngestedAt,
		LastRetryAt:    m.LastRetryAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// rawDocumentModel is the raw_documents table.
type rawDocumentModel struct {
	UserID    string `gorm:"primaryKey"`
	FileID    string `gorm:"primaryKey"`
	MimeType  string
	Text      string `gorm:"type:text;not null"`
	Hash      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (rawDocumentModel) TableName() string { return "raw_documents" }

func (m rawDocumentModel) toDomain() domain.RawDocument {
	return domain.RawDocument{
		UserID:    m.UserID,
		FileID:    m.FileID,
		MimeType:  m.MimeType,
		Text:      m.Text,
		Hash:      m.Hash,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// chunkModel is the chunks table.
type chunkModel struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"not null;index:idx_chunks_file,priority:1"`
	FileID     string `gorm:"not null;index:idx_chunks_file,priority:2"`
	ChunkIndex int    `gorm:"not null;index:idx_chunks_file,priority:3"`
	Text       string `gorm:"type:text;not null"`
	Hash       string
	PointID    string
	Vectorized bool
	CreatedAt  time.Time
}

func (chunkModel) TableName() string { return "chunks" }

func chunkFromDomain(c domain.Chunk) chunkModel {
	return chunkModel{
		ID:         c.ID,
		UserID:     c.UserID,
		FileID:     c.FileID,
		ChunkIndex: c.ChunkIndex,
		Text:       c.Text,
		Hash:       c.Hash,
		PointID:    c.PointID,
		Vectorized: c.Vectorized,
		CreatedAt:  c.CreatedAt,
	}
}

func (m chunkModel) toDomain() domain.Chunk {
	return domain.Chunk{
		ID:         m.ID,
		UserID:     m.UserID,
		FileID:     m.FileID,
		ChunkIndex: m.ChunkIndex,
		Text:       m.Text,
		Hash:       m.Hash,
		PointID:    m.PointID,
		Vectorized: m.Vectorized,
		CreatedAt:  m.CreatedAt,
	}
}

// credentialModel is the credentials table.
type credentialModel struct {
	UserID       string `gorm:"primaryKey"`
	RefreshToken string `gorm:"not null"`
	AccountEmail string
	UpdatedAt    time.Time
}

func (credentialModel) TableName() string { return "credentials" }

// delayedJobModel is the delayed_jobs table.
type delayedJobModel struct {
	JobKey string    `gorm:"primaryKey"`
	Kind   string    `gorm:"not null"`
	UserID string    `gorm:"not null"`
	FileID string    `gorm:"not null"`
	DueAt  time.Time `gorm:"not null;index"`
}

func (delayedJobModel) TableName() string { return "delayed_jobs" }

func (m delayedJobModel) toDomain() domain.DelayedJob {
	return domain.DelayedJob{
		Kind:   domain.JobKind(m.Kind),
		UserID: m.UserID,
		FileID: m.FileID,
		DueAt:  m.DueAt,
	}
}
