// Package postgres implements the driven store interfaces on PostgreSQL
// through gorm. It is selected with store.driver = "postgres" when several
// worker hosts share one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Store holds the gorm handle shared by every store.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open gorm handle without migrating.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or alters the tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&fileModel{},
		&rawDocumentModel{},
		&chunkModel{},
		&credentialModel{},
		&delayedJobModel{},
	); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FileStore returns a FileStore backed by this store.
func (s *Store) FileStore() driven.FileStore { return &fileStore{db: s.db} }

// RawDocumentStore returns a RawDocumentStore backed by this store.
func (s *Store) RawDocumentStore() driven.RawDocumentStore { return &rawStore{db: s.db} }

// ChunkStore returns a ChunkStore backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore { return &chunkStore{db: s.db} }

// CredentialStore returns a CredentialStore backed by this store.
func (s *Store) CredentialStore() driven.CredentialStore { return &credentialStore{db: s.db} }

// DelayedJobStore returns a DelayedJobStore backed by this store.
func (s *Store) DelayedJobStore() driven.DelayedJobStore { return &delayedStore{db: s.db} }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// ==================== File Store ====================

type fileStore struct {
	db *gorm.DB
}

var _ driven.FileStore = (*fileStore)(nil)

func (s *fileStore) Get(ctx context.Context, userID, fileID string) (*domain.FileRecord, error) {
	var m fileModel
	if err := s.db.WithContext(ctx).First(&m, "user_id = ? AND file_id = ?", userID, fileID).Error; err != nil {
		return nil, notFound(err)
	}
	f := m.toDomain()
	return &f, nil
}

func (s *fileStore) Upsert(ctx context.Context, f *domain.FileRecord) error {
	m := fileFromDomain(f)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "mime_type", "supported", "hash", "phase", "error", "retry_count",
			"last_modified_at", "last_ingested_at", "last_retry_at", "updated_at",
		}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

// Update locks the row, applies the update and saves it.
func (s *fileStore) Update(ctx context.Context, userID, fileID string, update driven.FileUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m fileModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&m, "user_id = ? AND file_id = ?", userID, fileID).Error
		if err != nil {
			return notFound(err)
		}
		f := m.toDomain()
		if err := update.Check(&f); err != nil {
			return err
		}
		update.Apply(&f)
		next := fileFromDomain(&f)
		if err := tx.Save(&next).Error; err != nil {
			return fmt.Errorf("updating file: %w", err)
		}
		return nil
	})
}

func (s *fileStore) List(ctx context.Context, userID string) ([]domain.FileRecord, error) {
	var models []fileModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name, file_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	files := make([]domain.FileRecord, len(models))
	for i, m := range models {
		files[i] = m.toDomain()
	}
	return files, nil
}

// ==================== Raw Document Store ====================

type rawStore struct {
	db *gorm.DB
}

var _ driven.RawDocumentStore = (*rawStore)(nil)

func (s *rawStore) Get(ctx context.Context, userID, fileID string) (*domain.RawDocument, error) {
	var m rawDocumentModel
	if err := s.db.WithContext(ctx).First(&m, "user_id = ? AND file_id = ?", userID, fileID).Error; err != nil {
		return nil, notFound(err)
	}
	doc := m.toDomain()
	return &doc, nil
}

func (s *rawStore) Upsert(ctx context.Context, doc *domain.RawDocument) error {
	m := rawDocumentModel{
		UserID:   doc.UserID,
		FileID:   doc.FileID,
		MimeType: doc.MimeType,
		Text:     doc.Text,
		Hash:     doc.Hash,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mime_type", "text", "hash", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("saving raw document: %w", err)
	}
	return nil
}

func (s *rawStore) Exists(ctx context.Context, userID, fileID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&rawDocumentModel{}).
		Where("user_id = ? AND file_id = ?", userID, fileID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking raw document: %w", err)
	}
	return n > 0, nil
}

// ==================== Chunk Store ====================

type chunkStore struct {
	db *gorm.DB
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkInsertBatch = 100

func (s *chunkStore) Insert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]chunkModel, len(chunks))
	for i, c := range chunks {
		models[i] = chunkFromDomain(c)
	}
	if err := s.db.WithContext(ctx).CreateInBatches(models, chunkInsertBatch).Error; err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}
	return nil
}

func (s *chunkStore) ListByFile(ctx context.Context, userID, fileID string) ([]domain.Chunk, error) {
	var models []chunkModel
	err := s.db.WithContext(ctx).Where("user_id = ? AND file_id = ?", userID, fileID).
		Order("chunk_index").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return chunksToDomain(models), nil
}

func (s *chunkStore) DeleteByFile(ctx context.Context, userID, fileID string) error {
	err := s.db.WithContext(ctx).Where("user_id = ? AND file_id = ?", userID, fileID).Delete(&chunkModel{}).Error
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

func (s *chunkStore) Get(ctx context.Context, id string) (*domain.Chunk, error) {
	var m chunkModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	c := m.toDomain()
	return &c, nil
}

func (s *chunkStore) GetMany(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []chunkModel
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return chunksToDomain(models), nil
}

func chunksToDomain(models []chunkModel) []domain.Chunk {
	chunks := make([]domain.Chunk, len(models))
	for i, m := range models {
		chunks[i] = m.toDomain()
	}
	return chunks
}

// ==================== Credential Store ====================

type credentialStore struct {
	db *gorm.DB
}

var _ driven.CredentialStore = (*credentialStore)(nil)

func (s *credentialStore) Get(ctx context.Context, userID string) (*domain.UserCredential, error) {
	var m credentialModel
	if err := s.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &domain.UserCredential{
		UserID:       m.UserID,
		RefreshToken: m.RefreshToken,
		AccountEmail: m.AccountEmail,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func (s *credentialStore) Save(ctx context.Context, c *domain.UserCredential) error {
	m := credentialModel{
		UserID:       c.UserID,
		RefreshToken: c.RefreshToken,
		AccountEmail: c.AccountEmail,
		UpdatedAt:    c.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "account_email", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// ==================== Delayed Job Store ====================

// dueAt truncates to the microsecond precision of timestamptz so a
// deadline read back from Due compares equal on Remove.
func dueAt(job domain.DelayedJob) time.Time {
	return job.DueAt.UTC().Truncate(time.Microsecond)
}

type delayedStore struct {
	db *gorm.DB
}

var _ driven.DelayedJobStore = (*delayedStore)(nil)

func (s *delayedStore) Schedule(ctx context.Context, job domain.DelayedJob) error {
	m := delayedJobModel{
		JobKey: job.Key(),
		Kind:   string(job.Kind),
		UserID: job.UserID,
		FileID: job.FileID,
		DueAt:  dueAt(job),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"due_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("scheduling delayed job: %w", err)
	}
	return nil
}

func (s *delayedStore) Due(ctx context.Context, now time.Time, limit int) ([]domain.DelayedJob, error) {
	q := s.db.WithContext(ctx).Where("due_at <= ?", now.UTC()).Order("due_at, job_key")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []delayedJobModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("querying delayed jobs: %w", err)
	}
	jobs := make([]domain.DelayedJob, len(models))
	for i, m := range models {
		jobs[i] = m.toDomain()
	}
	return jobs, nil
}

// Remove deletes a job unless it was rescheduled to another deadline.
func (s *delayedStore) Remove(ctx context.Context, job domain.DelayedJob) error {
	err := s.db.WithContext(ctx).Delete(&delayedJobModel{}, "job_key = ? AND due_at = ?", job.Key(), dueAt(job)).Error
	if err != nil {
		return fmt.Errorf("removing delayed job: %w", err)
	}
	return nil
}
