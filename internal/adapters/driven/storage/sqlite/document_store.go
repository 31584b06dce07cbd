package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// ==================== Raw Document Store ====================

// rawStore implements driven.RawDocumentStore.
type rawStore struct {
	store *Store
}

var _ driven.RawDocumentStore = (*rawStore)(nil)

// Get retrieves the raw document of a file.
func (s *rawStore) Get(ctx context.Context, userID, fileID string) (*domain.RawDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT user_id, file_id, mime_type, text, hash, created_at, updated_at
		FROM raw_documents WHERE user_id = ? AND file_id = ?
	`, userID, fileID)

	var doc domain.RawDocument
	var created, updated string
	if err := row.Scan(&doc.UserID, &doc.FileID, &doc.MimeType, &doc.Text, &doc.Hash, &created, &updated); err != nil {
		return nil, notFound(err, "raw document")
	}
	doc.CreatedAt = parseTime(created)
	doc.UpdatedAt = parseTime(updated)
	return &doc, nil
}

// Upsert stores or overwrites the raw document of a file.
func (s *rawStore) Upsert(ctx context.Context, doc *domain.RawDocument) error {
	now := formatTime(time.Now())
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO raw_documents (user_id, file_id, mime_type, text, hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, file_id) DO UPDATE SET
			mime_type = excluded.mime_type,
			text = excluded.text,
			hash = excluded.hash,
			updated_at = excluded.updated_at
	`, doc.UserID, doc.FileID, doc.MimeType, doc.Text, doc.Hash, now, now)
	if err != nil {
		return fmt.Errorf("saving raw document: %w", err)
	}
	return nil
}

// Exists reports whether a raw document was stored for the file.
func (s *rawStore) Exists(ctx context.Context, userID, fileID string) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT 1 FROM raw_documents WHERE user_id = ? AND file_id = ?", userID, fileID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking raw document: %w", err)
	}
	return true, nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = "id, user_id, file_id, chunk_index, text, hash, point_id, vectorized, created_at"

// Insert stores chunks in one transaction. A duplicate id aborts the batch.
func (s *chunkStore) Insert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.UserID, c.FileID, c.ChunkIndex, c.Text, c.Hash,
			nullString(c.PointID), boolToInt(c.Vectorized), formatTime(created)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// ListByFile returns a file's chunks ordered by index.
func (s *chunkStore) ListByFile(ctx context.Context, userID, fileID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE user_id = ? AND file_id = ? ORDER BY chunk_index",
		userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return scanChunks(rows)
}

// DeleteByFile removes every chunk of a file.
func (s *chunkStore) DeleteByFile(ctx context.Context, userID, fileID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE user_id = ? AND file_id = ?", userID, fileID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Get retrieves a chunk by id.
func (s *chunkStore) Get(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	return scanChunk(row)
}

// GetMany returns the chunks that exist among ids.
func (s *chunkStore) GetMany(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	defer rows.Close()
	var chunks []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var pointID sql.NullString
	var vectorized int
	var created string
	if err := row.Scan(&c.ID, &c.UserID, &c.FileID, &c.ChunkIndex, &c.Text, &c.Hash,
		&pointID, &vectorized, &created); err != nil {
		return nil, notFound(err, "chunk")
	}
	c.PointID = pointID.String
	c.Vectorized = vectorized != 0
	c.CreatedAt = parseTime(created)
	return &c, nil
}

// ==================== Credential Store ====================

// credentialStore implements driven.CredentialStore.
type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

// Get retrieves a user's credential.
func (s *credentialStore) Get(ctx context.Context, userID string) (*domain.UserCredential, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT user_id, refresh_token, account_email, updated_at FROM credentials WHERE user_id = ?", userID)

	var c domain.UserCredential
	var email sql.NullString
	var updated string
	if err := row.Scan(&c.UserID, &c.RefreshToken, &email, &updated); err != nil {
		return nil, notFound(err, "credential")
	}
	c.AccountEmail = email.String
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

// Save stores or replaces a user's credential.
func (s *credentialStore) Save(ctx context.Context, c *domain.UserCredential) error {
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, refresh_token, account_email, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			refresh_token = excluded.refresh_token,
			account_email = excluded.account_email,
			updated_at = excluded.updated_at
	`, c.UserID, c.RefreshToken, nullString(c.AccountEmail), formatTime(updated))
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}
