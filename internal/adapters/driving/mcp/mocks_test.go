package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result  *domain.RetrievalResult
	chunk   *domain.ChunkContext
	err     error
	lastReq domain.RetrieveRequest
}

func (m *mockRetrievalService) Retrieve(_ context.Context, req domain.RetrieveRequest) (*domain.RetrievalResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockRetrievalService) ChunkContext(_ context.Context, _, _ string) (*domain.ChunkContext, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.chunk, nil
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	files    []domain.FileRecord
	progress *domain.Progress
	stage    domain.RetryStage
	err      error
	userID   string
}

func (m *mockIngestionService) ListFiles(_ context.Context, userID string) ([]domain.FileRecord, error) {
	m.userID = userID
	return m.files, m.err
}

func (m *mockIngestionService) Progress(_ context.Context, userID string) (*domain.Progress, error) {
	m.userID = userID
	return m.progress, m.err
}

func (m *mockIngestionService) RetryFile(_ context.Context, userID, _ string) (domain.RetryStage, error) {
	m.userID = userID
	return m.stage, m.err
}

func (m *mockIngestionService) EnqueueFetch(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockIngestionService) EnqueueVectorize(_ context.Context, _, _ string) error {
	return m.err
}
