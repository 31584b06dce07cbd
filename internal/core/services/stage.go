package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// loadFile returns nil, nil when the file is no longer tracked.
func loadFile(ctx context.Context, files driven.FileStore, log logger.Logger, userID, fileID string) (*domain.FileRecord, error) {
	file, err := files.Get(ctx, userID, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn("file %s of user %s is not tracked; skipping", fileID, userID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load file %s: %w", fileID, err)
	}
	return file, nil
}

// advance moves file to next, applying update alongside. A move the phase
// graph does not allow is logged and performed anyway so a redelivered job
// can still converge.
func advance(ctx context.Context, files driven.FileStore, log logger.Logger, file *domain.FileRecord, next domain.Phase, update driven.FileUpdate) error {
	if !file.Phase.CanTransition(next) {
		log.Warn("file %s: unexpected transition %s -> %s", file.FileID, file.Phase, next)
	}
	update.Phase = &next
	if err := files.Update(ctx, file.UserID, file.FileID, update); err != nil {
		return fmt.Errorf("set %s to %s: %w", file.FileID, next, err)
	}
	update.Apply(file)
	return nil
}

func ptr[T any](v T) *T { return &v }
