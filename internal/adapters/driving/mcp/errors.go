// Package mcp exposes drive retrieval and ingestion status to MCP clients
// (AI assistants) as tools and resources.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingUserID is returned when a tool call omits the user id.
var ErrMissingUserID = errors.New("mcp: user_id is required")
