// Package domain holds the entities every sercha-drive layer shares.
//
// A FileRecord tracks one Drive file for one user as it moves through
// the Phase machine, from discovered through fetching, chunk_pending
// and vectorizing to indexed or failed. Fetching yields a RawDocument,
// which is cut into token-window Chunks that become points in the
// vector index. Work moves between stages as FetchJob and VectorizeJob
// messages, and failures are tagged with an ErrorKind so workers know
// whether to retry.
//
// The package imports the standard library only. Ports, services and
// adapters depend on it, never the other way round.
package domain
