package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// fileStore implements driven.FileStore.
type fileStore struct {
	store *Store
}

var _ driven.FileStore = (*fileStore)(nil)

const fileColumns = `user_id, file_id, name, mime_type, supported, hash, phase, error,
	retry_count, last_modified_at, last_ingested_at, last_retry_at, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Get retrieves a file record.
func (s *fileStore) Get(ctx context.Context, userID, fileID string) (*domain.FileRecord, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE user_id = ? AND file_id = ?", userID, fileID)
	return scanFile(row)
}

// Upsert stores a file record, preserving created_at of an existing row.
func (s *fileStore) Upsert(ctx context.Context, f *domain.FileRecord) error {
	now := formatTime(time.Now())
	created := now
	if !f.CreatedAt.IsZero() {
		created = formatTime(f.CreatedAt)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, file_id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			supported = excluded.supported,
			hash = excluded.hash,
			phase = excluded.phase,
			error = excluded.error,
			retry_count = excluded.retry_count,
			last_modified_at = excluded.last_modified_at,
			last_ingested_at = excluded.last_ingested_at,
			last_retry_at = excluded.last_retry_at,
			updated_at = excluded.updated_at
	`, f.UserID, f.FileID, f.Name, f.MimeType, boolToInt(f.Supported), nullString(f.Hash),
		string(f.Phase), nullString(f.Error), f.RetryCount,
		formatNullableTime(f.LastModifiedAt), formatNullableTime(f.LastIngestedAt), formatNullableTime(f.LastRetryAt),
		created, now)
	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

// Update applies a partial update inside an immediate transaction, so the
// read and the write see no interleaved writer.
func (s *fileStore) Update(ctx context.Context, userID, fileID string, update driven.FileUpdate) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE user_id = ? AND file_id = ?", userID, fileID)
	f, err := scanFile(row)
	if err != nil {
		return err
	}
	if err := update.Check(f); err != nil {
		return err
	}
	update.Apply(f)

	_, err = tx.ExecContext(ctx, `
		UPDATE files SET name = ?, mime_type = ?, supported = ?, last_modified_at = ?,
			phase = ?, error = ?, retry_count = ?, hash = ?,
			last_ingested_at = ?, last_retry_at = ?, updated_at = ?
		WHERE user_id = ? AND file_id = ?
	`, f.Name, f.MimeType, boolToInt(f.Supported), formatNullableTime(f.LastModifiedAt),
		string(f.Phase), nullString(f.Error), f.RetryCount, nullString(f.Hash),
		formatNullableTime(f.LastIngestedAt), formatNullableTime(f.LastRetryAt), formatTime(time.Now()),
		userID, fileID)
	if err != nil {
		return fmt.Errorf("updating file: %w", err)
	}
	return tx.Commit()
}

// List returns a user's files ordered by name.
func (s *fileStore) List(ctx context.Context, userID string) ([]domain.FileRecord, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE user_id = ? ORDER BY name, file_id", userID)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return files, nil
}

func scanFile(row rowScanner) (*domain.FileRecord, error) {
	var f domain.FileRecord
	var supported int
	var phase string
	var hash, errMsg, modified, ingested, retried sql.NullString
	var created, updated string

	if err := row.Scan(&f.UserID, &f.FileID, &f.Name, &f.MimeType, &supported, &hash, &phase, &errMsg,
		&f.RetryCount, &modified, &ingested, &retried, &created, &updated); err != nil {
		return nil, notFound(err, "file")
	}

	f.Supported = supported != 0
	f.Hash = hash.String
	f.Phase = domain.Phase(phase)
	f.Error = errMsg.String
	f.LastModifiedAt = parseNullableTime(modified)
	f.LastIngestedAt = parseNullableTime(ingested)
	f.LastRetryAt = parseNullableTime(retried)
	f.CreatedAt = parseTime(created)
	f.UpdatedAt = parseTime(updated)
	return &f, nil
}
