// Package bootstrap builds the adapters selected by domain.Settings and the
// services that run on them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/blob/minio"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/embedding/openai"
	queuemem "github.com/custodia-labs/sercha-drive/internal/adapters/driven/queue/memory"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/queue/rabbitmq"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/queue/redisstream"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/tokenizer/tiktoken"
	vectormem "github.com/custodia-labs/sercha-drive/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/sercha-drive/internal/connectors/google"
	googledrive "github.com/custodia-labs/sercha-drive/internal/connectors/google/drive"
	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/services"
	"github.com/custodia-labs/sercha-drive/internal/logger"
	"github.com/custodia-labs/sercha-drive/internal/normalisers"
	"github.com/custodia-labs/sercha-drive/internal/normalisers/docx"
	"github.com/custodia-labs/sercha-drive/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-drive/internal/normalisers/plaintext"
	"github.com/custodia-labs/sercha-drive/internal/postprocessors/chunker"
)

// Stores groups the relational stores of one driver.
type Stores struct {
	Files       driven.FileStore
	Raws        driven.RawDocumentStore
	Chunks      driven.ChunkStore
	Credentials driven.CredentialStore
	Delayed     driven.DelayedJobStore
}

// Container holds every adapter and service of one process.
type Container struct {
	Settings domain.Settings

	Stores   Stores
	Queue    driven.JobQueue
	Delayed  driven.DelayedJobStore
	Index    driven.VectorIndex
	Embedder driven.EmbeddingService
	Sources  driven.FileSourceFactory
	Blobs    driven.BlobStore

	Ingestion   *services.IngestionService
	Discovery   *services.DiscoveryService
	Retrieval   *services.RetrievalService
	Credentials *services.CredentialService
	Fetch       *services.FetchStage
	Vectorize   *services.VectorizeStage

	closers []func() error
	log     logger.Logger
}

// Option customises New.
type Option func(*options)

type options struct {
	tokenizer driven.Tokenizer
}

// WithTokenizer replaces the tiktoken tokenizer, whose ranks are otherwise
// downloaded on first use.
func WithTokenizer(tok driven.Tokenizer) Option {
	return func(o *options) { o.tokenizer = tok }
}

// New connects every adapter chosen by s. On error, whatever was already
// opened is closed.
func New(ctx context.Context, s domain.Settings, opts ...Option) (_ *Container, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{Settings: s, log: logger.With("bootstrap")}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if c.Stores, err = c.openStores(s); err != nil {
		return nil, err
	}
	if c.Queue, c.Delayed, err = c.openQueue(ctx, s); err != nil {
		return nil, err
	}
	if c.Index, err = c.openIndex(ctx, s); err != nil {
		return nil, err
	}
	if c.Embedder, err = openEmbedder(s); err != nil {
		return nil, err
	}
	c.onClose(c.Embedder.Close)
	if s.Blob.Enabled {
		blobs, err := minio.New(ctx, minio.Config{
			Endpoint:  s.Blob.Endpoint,
			AccessKey: s.Blob.AccessKey,
			SecretKey: s.Blob.SecretKey,
			Bucket:    s.Blob.Bucket,
			UseSSL:    s.Blob.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		c.Blobs = blobs
	}

	c.Sources = googledrive.NewFactory(c.Stores.Credentials, google.OAuthClient{
		ClientID:     s.Google.ClientID,
		ClientSecret: s.Google.ClientSecret,
	})

	tok := o.tokenizer
	if tok == nil {
		if tok, err = tiktoken.New(tiktoken.DefaultEncoding); err != nil {
			return nil, err
		}
	}
	registry := normalisers.NewRegistry(pdf.New(), docx.New(), plaintext.New())
	failures := services.NewFailureHandler(c.Stores.Files, c.Delayed)

	c.Ingestion = services.NewIngestionService(c.Stores.Files, c.Stores.Raws, c.Queue)
	c.Discovery = services.NewDiscoveryService(c.Stores.Files, c.Sources, c.Queue)
	c.Retrieval = services.NewRetrievalService(c.Embedder, c.Index, c.Stores.Chunks, c.Stores.Files)
	c.Credentials = services.NewCredentialService(c.Stores.Credentials)
	c.Fetch = services.NewFetchStage(c.Stores.Files, c.Stores.Raws, c.Sources, registry, c.Queue, failures)
	if c.Blobs != nil {
		c.Fetch.SetBlobStore(c.Blobs)
	}
	c.Vectorize = services.NewVectorizeStage(c.Stores.Files, c.Stores.Raws, c.Stores.Chunks,
		c.Index, c.Embedder, chunker.New(tok), failures)

	c.log.Debug("store=%s queue=%s vector=%s", s.Store.Driver, s.Queue.Driver, s.Vector.Driver)
	return c, nil
}

// FetchWorker returns a worker consuming fetch jobs.
func (c *Container) FetchWorker() *services.Worker {
	return services.NewWorker(c.Queue, c.Fetch, c.Settings.Worker)
}

// VectorizeWorker returns a worker consuming vectorize jobs.
func (c *Container) VectorizeWorker() *services.Worker {
	return services.NewWorker(c.Queue, c.Vectorize, c.Settings.Worker)
}

// Scheduler returns the delayed job pump.
func (c *Container) Scheduler() *services.Scheduler {
	return services.NewScheduler(c.Delayed, c.Queue, c.Settings.Worker.PumpInterval)
}

// Close releases adapters in reverse order of opening.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

func (c *Container) openStores(s domain.Settings) (Stores, error) {
	switch s.Store.Driver {
	case domain.StoreSQLite:
		store, err := sqlite.NewStore(s.DataDir)
		if err != nil {
			return Stores{}, err
		}
		c.onClose(store.Close)
		return Stores{
			Files:       store.FileStore(),
			Raws:        store.RawDocumentStore(),
			Chunks:      store.ChunkStore(),
			Credentials: store.CredentialStore(),
			Delayed:     store.DelayedJobStore(),
		}, nil
	case domain.StorePostgres:
		store, err := postgres.Open(s.Store.PostgresDSN)
		if err != nil {
			return Stores{}, err
		}
		c.onClose(store.Close)
		return Stores{
			Files:       store.FileStore(),
			Raws:        store.RawDocumentStore(),
			Chunks:      store.ChunkStore(),
			Credentials: store.CredentialStore(),
			Delayed:     store.DelayedJobStore(),
		}, nil
	case domain.StoreMemory:
		return Stores{
			Files:       memory.NewFileStore(),
			Raws:        memory.NewRawDocumentStore(),
			Chunks:      memory.NewChunkStore(),
			Credentials: memory.NewCredentialStore(),
			Delayed:     queuemem.NewDelayedStore(),
		}, nil
	}
	return Stores{}, fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidInput, s.Store.Driver)
}

// openQueue returns the work queue and the delayed job store that goes with
// it: Redis keeps delayed jobs in a sorted set next to the streams, the
// other queues use the relational store.
func (c *Container) openQueue(ctx context.Context, s domain.Settings) (driven.JobQueue, driven.DelayedJobStore, error) {
	switch s.Queue.Driver {
	case domain.QueueRedis:
		client, err := redisstream.Connect(ctx, s.Queue.RedisAddr, s.Queue.RedisPassword, s.Queue.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		q := redisstream.NewQueue(client)
		c.onClose(q.Close)
		return q, redisstream.NewDelayedStore(client), nil
	case domain.QueueRabbitMQ:
		q, err := rabbitmq.Dial(s.Queue.AMQPURL)
		if err != nil {
			return nil, nil, err
		}
		c.onClose(q.Close)
		return q, c.Stores.Delayed, nil
	case domain.QueueMemory:
		q := queuemem.NewQueue()
		c.onClose(q.Close)
		return q, c.Stores.Delayed, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown queue driver %q", domain.ErrInvalidInput, s.Queue.Driver)
}

func qdrantConfig(v domain.VectorSettings) qdrant.Config {
	return qdrant.Config{
		Host:       v.QdrantHost,
		Port:       v.QdrantPort,
		APIKey:     v.QdrantKey,
		UseTLS:     v.QdrantTLS,
		Collection: v.Collection,
	}
}

func (c *Container) openIndex(ctx context.Context, s domain.Settings) (driven.VectorIndex, error) {
	var index driven.VectorIndex
	switch s.Vector.Driver {
	case domain.VectorQdrant:
		q, err := qdrant.New(qdrantConfig(s.Vector))
		if err != nil {
			return nil, err
		}
		index = q
	case domain.VectorMemory:
		index = vectormem.NewIndex()
	default:
		return nil, fmt.Errorf("%w: unknown vector driver %q", domain.ErrInvalidInput, s.Vector.Driver)
	}

	c.onClose(index.Close)

	if err := index.EnsureCollection(ctx, s.Embedding.Dimensions); err != nil {
		return nil, err
	}
	return index, nil
}

// openEmbedder returns the OpenAI embedder, or a stand-in that fails every
// call when no API key is configured so status and sync commands still run.
func openEmbedder(s domain.Settings) (driven.EmbeddingService, error) {
	if s.Embedding.APIKey == "" {
		return disabledEmbedder{dims: s.Embedding.Dimensions, model: s.Embedding.Model}, nil
	}
	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     s.Embedding.APIKey,
		BaseURL:    s.Embedding.BaseURL,
		Model:      s.Embedding.Model,
		Dimensions: s.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return embedder, nil
}
