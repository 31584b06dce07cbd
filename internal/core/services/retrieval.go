package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Fallbacks for hits whose file record is gone.
const (
	unknownFileName = "Unknown File"
	unknownMimeType = "text/plain"
)

// RetrievalService turns a query into grouped, cited context.
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	chunks   driven.ChunkStore
	files    driven.FileStore
	log      logger.Logger
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	chunks driven.ChunkStore,
	files driven.FileStore,
) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		files:    files,
		log:      logger.With("retrieve"),
	}
}

type scoredChunk struct {
	chunk domain.Chunk
	score float32
}

type fileGroup struct {
	fileID   string
	name     string
	mimeType string
	chunks   []scoredChunk
}

// Retrieve embeds the query, searches the user's points and groups the
// hits by file: at most MaxChunksPerFile chunks per file and
// MaxFilesPerResult files, files in order of first appearance.
func (s *RetrievalService) Retrieve(ctx context.Context, req domain.RetrieveRequest) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	if topK > domain.MaxTopK {
		topK = domain.MaxTopK
	}

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, domain.VectorQuery{
		Vector:         vector,
		UserID:         req.UserID,
		Limit:          topK,
		ScoreThreshold: domain.ScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	valid := make([]domain.VectorHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= domain.ScoreThreshold {
			valid = append(valid, h)
		}
	}
	s.log.Debug("user %s: %d hits, %d above threshold", req.UserID, len(hits), len(valid))
	if len(valid) == 0 {
		return emptyResult(), nil
	}

	groups, err := s.group(ctx, req.UserID, valid)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return emptyResult(), nil
	}
	return format(groups), nil
}

func emptyResult() *domain.RetrievalResult {
	return &domain.RetrievalResult{FormattedText: domain.NoResultsMessage, Citations: []domain.Citation{}}
}

// group joins hits to chunks, drops hits without a chunk, and groups the
// rest by file in order of first appearance.
func (s *RetrievalService) group(ctx context.Context, userID string, hits []domain.VectorHit) ([]*fileGroup, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	found, err := s.chunks.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	byID := make(map[string]domain.Chunk, len(found))
	for _, c := range found {
		if c.UserID == userID {
			byID[c.ID] = c
		}
	}

	var groups []*fileGroup
	byFile := make(map[string]*fileGroup)
	for _, h := range hits {
		c, ok := byID[h.ID]
		if !ok {
			s.log.Debug("hit %s has no chunk record; dropping", h.ID)
			continue
		}
		g, ok := byFile[c.FileID]
		if !ok {
			g = &fileGroup{fileID: c.FileID}
			byFile[c.FileID] = g
			groups = append(groups, g)
		}
		g.chunks = append(g.chunks, scoredChunk{chunk: c, score: h.Score})
	}

	if len(groups) > domain.MaxFilesPerResult {
		groups = groups[:domain.MaxFilesPerResult]
	}
	for _, g := range groups {
		sort.SliceStable(g.chunks, func(i, j int) bool { return g.chunks[i].score > g.chunks[j].score })
		if len(g.chunks) > domain.MaxChunksPerFile {
			g.chunks = g.chunks[:domain.MaxChunksPerFile]
		}
		g.name, g.mimeType = s.describe(ctx, userID, g.fileID)
	}
	return groups, nil
}

// describe returns the display name and MIME type of a file.
func (s *RetrievalService) describe(ctx context.Context, userID, fileID string) (string, string) {
	file, err := s.files.Get(ctx, userID, fileID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("load file %s: %v", fileID, err)
		}
		return unknownFileName, unknownMimeType
	}
	name, mimeType := file.Name, file.MimeType
	if name == "" {
		name = unknownFileName
	}
	if mimeType == "" {
		mimeType = unknownMimeType
	}
	return name, mimeType
}

func format(groups []*fileGroup) *domain.RetrievalResult {
	sections := make([]string, 0, len(groups))
	citations := make([]domain.Citation, 0, len(groups))

	for _, g := range groups {
		texts := make([]string, len(g.chunks))
		ids := make([]string, len(g.chunks))
		var best float32
		for i, sc := range g.chunks {
			texts[i] = sc.chunk.Text
			ids[i] = sc.chunk.ID
			if i == 0 || sc.score > best {
				best = sc.score
			}
		}
		sections = append(sections, fmt.Sprintf("[File: %s (ID: %s)]\n%s", g.name, g.fileID, strings.Join(texts, domain.NeighbourSeparator)))
		citations = append(citations, domain.Citation{
			Type:     domain.CitationTypeDrive,
			ChunkID:  strings.Join(ids, ","),
			ChunkIDs: ids,
			FileID:   g.fileID,
			FileName: g.name,
			MimeType: g.mimeType,
			Score:    best,
		})
	}

	return &domain.RetrievalResult{
		FormattedText: strings.Join(sections, domain.FileSeparator),
		Citations:     citations,
	}
}

// ChunkContext returns a chunk of userID with the chunks directly before
// and after it.
func (s *RetrievalService) ChunkContext(ctx context.Context, userID, chunkID string) (*domain.ChunkContext, error) {
	c, err := s.chunks.Get(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("%w: chunk %s belongs to another user", domain.ErrForbidden, chunkID)
	}

	siblings, err := s.chunks.ListByFile(ctx, c.UserID, c.FileID)
	if err != nil {
		return nil, fmt.Errorf("load neighbours: %w", err)
	}
	var texts []string
	for _, n := range siblings {
		if n.ChunkIndex >= c.ChunkIndex-1 && n.ChunkIndex <= c.ChunkIndex+1 {
			texts = append(texts, n.Text)
		}
	}

	name, mimeType := s.describe(ctx, userID, c.FileID)
	return &domain.ChunkContext{
		ChunkID:  c.ID,
		FileID:   c.FileID,
		FileName: name,
		MimeType: mimeType,
		Text:     strings.Join(texts, domain.NeighbourSeparator),
	}, nil
}
