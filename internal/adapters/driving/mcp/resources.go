package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

const uriScheme = "drive://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "users/{userId}/chunks/{chunkId}",
		Name:        "chunk-context",
		Description: "A chunk of an indexed file with its neighbouring chunks",
		MIMEType:    "text/plain",
	}, s.handleChunkResource)

	if s.ports.Ingestion == nil {
		return
	}
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "users/{userId}/files",
		Name:        "user-files",
		Description: "Drive files known for a user with their ingestion phase",
		MIMEType:    "application/json",
	}, s.handleFilesResource)
}

// handleFilesResource lists a user's file records.
func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	userID, rest := splitUserURI(req.Params.URI)
	if userID == "" || rest != "files" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	files, err := s.ports.Ingestion.ListFiles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	if files == nil {
		files = []domain.FileRecord{}
	}

	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling files: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleChunkResource returns a chunk with its neighbours.
func (s *Server) handleChunkResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	userID, rest := splitUserURI(req.Params.URI)
	chunkID, ok := strings.CutPrefix(rest, "chunks/")
	if userID == "" || !ok || chunkID == "" || strings.Contains(chunkID, "/") {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chunk, err := s.ports.Retrieval.ChunkContext(ctx, userID, chunkID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("loading chunk: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     chunk.Text,
		}},
	}, nil
}

// splitUserURI splits drive://users/{userId}/{rest} into its parts.
func splitUserURI(uri string) (userID, rest string) {
	path, ok := strings.CutPrefix(uri, uriScheme+"users/")
	if !ok {
		return "", ""
	}
	userID, rest, ok = strings.Cut(path, "/")
	if !ok {
		return "", ""
	}
	return userID, rest
}
