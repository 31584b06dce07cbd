package mcp

import (
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Retrieval answers queries and resolves chunks.
	Retrieval driving.RetrievalService

	// Ingestion reports file status and retries failed files. Optional.
	Ingestion driving.IngestionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
