// Package drive implements the Google Drive file source.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-drive/internal/connectors/google"
	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Listing parameters.
const (
	listQuery    = "trashed = false"
	listFields   = "nextPageToken, files(id, name, mimeType, modifiedTime, size)"
	listPageSize = 100
)

// MimeTypeFolder entries are skipped when listing.
const MimeTypeFolder = "application/vnd.google-apps.folder"

// MaxDownloadSize caps downloaded and exported bytes.
const MaxDownloadSize = domain.MaxSourceFileSize

// Ensure Source implements the interface.
var _ driven.FileSource = (*Source)(nil)

// Source is a Drive client scoped to one user.
type Source struct {
	svc     *drive.Service
	limiter *google.RateLimiter
}

// NewSource wraps an authenticated Drive service.
func NewSource(svc *drive.Service, limiter *google.RateLimiter) *Source {
	if limiter == nil {
		limiter = google.NewRateLimiter(google.DefaultDriveRateLimit)
	}
	return &Source{svc: svc, limiter: limiter}
}

// List returns every non-trashed file, following page tokens. Folders are
// skipped.
func (s *Source) List(ctx context.Context) ([]domain.SourceFile, error) {
	var files []domain.SourceFile
	pageToken := ""

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(listQuery).
			Fields(listFields).
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			s.noteRateLimit(err)
			return nil, google.WrapError("list files", err)
		}

		for _, f := range resp.Files {
			if f.MimeType == MimeTypeFolder {
				continue
			}
			files = append(files, toSourceFile(f))
		}

		if resp.NextPageToken == "" {
			return files, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Download returns the bytes of a binary file.
func (s *Source) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		s.noteRateLimit(err)
		return nil, google.WrapError("download file", err)
	}
	defer resp.Body.Close()
	return readLimited(resp.Body, "download file")
}

// Export converts a workspace file to targetMime and returns the bytes.
func (s *Source) Export(ctx context.Context, fileID, targetMime string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Files.Export(fileID, targetMime).Context(ctx).Download()
	if err != nil {
		s.noteRateLimit(err)
		return nil, google.WrapError("export file", err)
	}
	defer resp.Body.Close()
	return readLimited(resp.Body, "export file")
}

func (s *Source) noteRateLimit(err error) {
	if !google.IsRateLimited(err) {
		return
	}
	retryAfter := 0
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Header != nil {
		retryAfter, _ = strconv.Atoi(gerr.Header.Get("Retry-After"))
	}
	s.limiter.RecordRateLimitError(retryAfter)
}

func readLimited(r io.Reader, op string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDownloadSize+1))
	if err != nil {
		return nil, domain.NewTransient(fmt.Errorf("%s: read body: %w", op, err))
	}
	if int64(len(data)) > MaxDownloadSize {
		return nil, domain.NewPermanent(fmt.Errorf("%s: %w: more than %d bytes", op, domain.ErrFileTooLarge, MaxDownloadSize))
	}
	return data, nil
}

func toSourceFile(f *drive.File) domain.SourceFile {
	sf := domain.SourceFile{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			sf.ModifiedTime = &t
		}
	}
	if f.Size > 0 {
		size := f.Size
		sf.Size = &size
	}
	return sf
}
