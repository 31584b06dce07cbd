package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// RetrieveInput is the input schema for the drive_retrieve tool.
type RetrieveInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose indexed files are searched"`
	Query  string `json:"query" jsonschema:"the natural language query"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"maximum vector hits to consider (default 10, max 50)"`
}

// RetrieveOutput is the output schema for the drive_retrieve tool.
type RetrieveOutput struct {
	FormattedSnippet string            `json:"formatted_snippet"`
	Citations        []domain.Citation `json:"citations"`
}

// StatusInput is the input schema for the drive_status tool.
type StatusInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose ingestion progress is reported"`
}

// StatusOutput is the output schema for the drive_status tool.
type StatusOutput struct {
	Totals domain.Totals `json:"totals"`
	Files  []FileStatus  `json:"files"`
}

// FileStatus is the per-file line of StatusOutput.
type FileStatus struct {
	FileID string       `json:"file_id"`
	Name   string       `json:"name"`
	Phase  domain.Phase `json:"phase"`
	Error  string       `json:"error,omitempty"`
}

// RetryInput is the input schema for the drive_retry tool.
type RetryInput struct {
	UserID string `json:"user_id" jsonschema:"the owner of the file"`
	FileID string `json:"file_id" jsonschema:"the failed file to retry"`
}

// RetryOutput is the output schema for the drive_retry tool.
type RetryOutput struct {
	Stage domain.RetryStage `json:"stage"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_retrieve",
		Description: "Retrieve the most relevant passages from a user's indexed Drive files",
	}, s.handleRetrieve)

	if s.ports.Ingestion == nil {
		return
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_status",
		Description: "Report ingestion progress of a user's Drive files",
	}, s.handleStatus)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drive_retry",
		Description: "Retry ingestion of a failed Drive file",
	}, s.handleRetry)
}

// handleRetrieve handles the drive_retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.UserID == "" {
		return nil, RetrieveOutput{}, ErrMissingUserID
	}

	result, err := s.ports.Retrieval.Retrieve(ctx, domain.RetrieveRequest{
		Query:  input.Query,
		UserID: input.UserID,
		TopK:   input.TopK,
	})
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	citations := result.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return nil, RetrieveOutput{
		FormattedSnippet: result.FormattedText,
		Citations:        citations,
	}, nil
}

// handleStatus handles the drive_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if input.UserID == "" {
		return nil, StatusOutput{}, ErrMissingUserID
	}

	progress, err := s.ports.Ingestion.Progress(ctx, input.UserID)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("loading progress: %w", err)
	}

	output := StatusOutput{
		Totals: progress.Totals,
		Files:  make([]FileStatus, len(progress.Files)),
	}
	for i, f := range progress.Files {
		output.Files[i] = FileStatus{
			FileID: f.FileID,
			Name:   f.Name,
			Phase:  f.Phase,
			Error:  f.Error,
		}
	}
	return nil, output, nil
}

// handleRetry handles the drive_retry tool invocation.
func (s *Server) handleRetry(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetryInput,
) (*mcp.CallToolResult, RetryOutput, error) {
	if input.UserID == "" {
		return nil, RetryOutput{}, ErrMissingUserID
	}

	stage, err := s.ports.Ingestion.RetryFile(ctx, input.UserID, input.FileID)
	if err != nil {
		return nil, RetryOutput{}, err
	}
	return nil, RetryOutput{Stage: stage}, nil
}
