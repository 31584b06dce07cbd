// Package sqlite provides a unified SQLite-based implementation of the
// driven store interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. It implements every store through a single database
// connection:
//
//   - FileStore: file records and their ingestion phase
//   - RawDocumentStore: extracted text, one document per file
//   - ChunkStore: chunk records
//   - CredentialStore: per-user refresh tokens
//   - DelayedJobStore: retry deadlines
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-drive/data/drive.db
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on the locking SQLite
// provides in WAL mode.
package sqlite
