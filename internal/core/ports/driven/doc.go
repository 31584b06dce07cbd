// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - FileStore, RawDocumentStore, ChunkStore: relational state (SQLite, Postgres)
//   - CredentialStore: per-user file source credentials
//   - JobQueue: durable per-kind job streams with consumer groups (Redis, RabbitMQ)
//   - DelayedJobStore: durable retry deadlines (Redis sorted set, SQLite)
//   - VectorIndex: similarity search scoped by user (Qdrant)
//   - EmbeddingService: text to vectors (OpenAI)
//   - Tokenizer: canonical token encoding for chunk windows (tiktoken)
//   - FileSourceFactory / FileSource: listing and bytes (Google Drive)
//   - Normaliser / NormaliserRegistry: bytes to text by MIME type
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
//   - BlobStore: archive of fetched source bytes (MinIO). Nil disables archiving.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
