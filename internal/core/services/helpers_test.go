package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/storage/memory"
	queuemem "github.com/custodia-labs/sercha-drive/internal/adapters/driven/queue/memory"
	vectormem "github.com/custodia-labs/sercha-drive/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/normalisers"
	"github.com/custodia-labs/sercha-drive/internal/normalisers/plaintext"
	"github.com/custodia-labs/sercha-drive/internal/postprocessors/chunker"
)

// wordTokenizer maps each whitespace separated word to one token and keeps
// a vocabulary so windows decode back to the original words.
type wordTokenizer struct {
	mu    sync.Mutex
	vocab []string
	ids   map[string]int
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{ids: make(map[string]int)}
}

func (t *wordTokenizer) Encode(text string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	words := strings.Fields(text)
	tokens := make([]int, len(words))
	for i, w := range words {
		id, ok := t.ids[w]
		if !ok {
			id = len(t.vocab)
			t.vocab = append(t.vocab, w)
			t.ids[w] = id
		}
		tokens[i] = id
	}
	return tokens
}

func (t *wordTokenizer) Decode(tokens []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = t.vocab[id]
	}
	return strings.Join(words, " ")
}

func (t *wordTokenizer) Name() string { return "words" }

// fakeEmbedder returns vectors[text] when set and fallback otherwise.
type fakeEmbedder struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	fallback   []float32
	err        error
	batchSizes []int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: make(map[string][]float32), fallback: []float32{1, 0}}
}

func (e *fakeEmbedder) vector(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return e.fallback
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchSizes = append(e.batchSizes, len(texts))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int              { return 2 }
func (e *fakeEmbedder) ModelName() string            { return "fake" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

// fakeSource serves files from maps.
type fakeSource struct {
	files    []domain.SourceFile
	content  map[string][]byte
	exports  map[string][]byte
	err      error
	listErr  error
	exported []string
}

func (s *fakeSource) List(_ context.Context) ([]domain.SourceFile, error) {
	return s.files, s.listErr
}

func (s *fakeSource) Download(_ context.Context, fileID string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.content[fileID]
	if !ok {
		return nil, domain.NewPermanent(errors.New("download: 404 not found"))
	}
	return data, nil
}

func (s *fakeSource) Export(_ context.Context, fileID, targetMime string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.exported = append(s.exported, fileID+"|"+targetMime)
	data, ok := s.exports[fileID]
	if !ok {
		return nil, domain.NewPermanent(errors.New("export: 404 not found"))
	}
	return data, nil
}

type fakeSourceFactory struct {
	source *fakeSource
	err    error
}

func (f *fakeSourceFactory) ForUser(_ context.Context, _ string) (driven.FileSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.source, nil
}

type fakeBlobs struct {
	keys []string
	err  error
}

func (b *fakeBlobs) Put(_ context.Context, key string, _ []byte, _ string) error {
	b.keys = append(b.keys, key)
	return b.err
}

// pipeline wires both stages to in-memory adapters.
type pipeline struct {
	files    *memory.FileStore
	raws     *memory.RawDocumentStore
	chunks   *memory.ChunkStore
	queue    *queuemem.Queue
	delayed  *queuemem.DelayedStore
	index    *vectormem.Index
	embedder *fakeEmbedder
	source   *fakeSource
	factory  *fakeSourceFactory
	failures *FailureHandler
	fetch    *FetchStage
	vector   *VectorizeStage
	now      time.Time
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{
		files:    memory.NewFileStore(),
		raws:     memory.NewRawDocumentStore(),
		chunks:   memory.NewChunkStore(),
		queue:    queuemem.NewQueue(),
		delayed:  queuemem.NewDelayedStore(),
		index:    vectormem.NewIndex(),
		embedder: newFakeEmbedder(),
		source:   &fakeSource{content: map[string][]byte{}, exports: map[string][]byte{}},
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	p.factory = &fakeSourceFactory{source: p.source}
	p.failures = NewFailureHandler(p.files, p.delayed)
	p.failures.now = func() time.Time { return p.now }

	registry := normalisers.NewRegistry(plaintext.New())
	p.fetch = NewFetchStage(p.files, p.raws, p.factory, registry, p.queue, p.failures)
	p.vector = NewVectorizeStage(p.files, p.raws, p.chunks, p.index, p.embedder,
		chunker.New(newWordTokenizer()), p.failures)
	p.vector.now = func() time.Time { return p.now }
	return p
}

func (p *pipeline) addFile(t *testing.T, rec domain.FileRecord) {
	t.Helper()
	if rec.Phase == "" {
		rec.Phase = domain.PhaseDiscovered
	}
	rec.Supported = true
	require.NoError(t, p.files.Upsert(context.Background(), &rec))
}

func (p *pipeline) file(t *testing.T, userID, fileID string) *domain.FileRecord {
	t.Helper()
	f, err := p.files.Get(context.Background(), userID, fileID)
	require.NoError(t, err)
	return f
}

// words returns n distinct space separated words.
func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix + strings.Repeat("x", i%3) + itoaTest(i)
	}
	return strings.Join(parts, " ")
}

func itoaTest(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{digits[n%10]}, b...)
		n /= 10
	}
	return string(b)
}
