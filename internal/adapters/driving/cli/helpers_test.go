package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

type mockIngestion struct {
	progress *domain.Progress
	stage    domain.RetryStage
	err      error
	userID   string
	fileID   string
}

func (m *mockIngestion) ListFiles(_ context.Context, userID string) ([]domain.FileRecord, error) {
	m.userID = userID
	if m.progress == nil {
		return nil, m.err
	}
	return m.progress.Files, m.err
}

func (m *mockIngestion) Progress(_ context.Context, userID string) (*domain.Progress, error) {
	m.userID = userID
	return m.progress, m.err
}

func (m *mockIngestion) RetryFile(_ context.Context, userID, fileID string) (domain.RetryStage, error) {
	m.userID, m.fileID = userID, fileID
	return m.stage, m.err
}

func (m *mockIngestion) EnqueueFetch(context.Context, string, string) error { return m.err }

func (m *mockIngestion) EnqueueVectorize(context.Context, string, string) error { return m.err }

type mockDiscovery struct {
	summary *domain.SyncSummary
	err     error
	userID  string
	opts    domain.SyncOptions
}

func (m *mockDiscovery) Sync(_ context.Context, userID string, opts domain.SyncOptions) (*domain.SyncSummary, error) {
	m.userID, m.opts = userID, opts
	return m.summary, m.err
}

type mockRetrieval struct {
	result *domain.RetrievalResult
	chunk  *domain.ChunkContext
	err    error
	req    domain.RetrieveRequest
}

func (m *mockRetrieval) Retrieve(_ context.Context, req domain.RetrieveRequest) (*domain.RetrievalResult, error) {
	m.req = req
	return m.result, m.err
}

func (m *mockRetrieval) ChunkContext(context.Context, string, string) (*domain.ChunkContext, error) {
	return m.chunk, m.err
}

type mockCredentials struct {
	saved map[string]string
	email string
}

func (m *mockCredentials) SaveCredential(_ context.Context, userID, token, email string) error {
	m.saved[userID] = token
	m.email = email
	return nil
}

func (m *mockCredentials) HasCredential(_ context.Context, userID string) (bool, error) {
	_, ok := m.saved[userID]
	return ok, nil
}

type mockRunner struct {
	ran bool
	err error
}

func (m *mockRunner) Run(ctx context.Context) error {
	m.ran = true
	if m.err != nil {
		return m.err
	}
	return ctx.Err()
}

type testServices struct {
	ingestion   *mockIngestion
	discovery   *mockDiscovery
	retrieval   *mockRetrieval
	credentials *mockCredentials
	fetch       *mockRunner
	vectorize   *mockRunner
	scheduler   *mockRunner
	config      *memory.ConfigStore
}

// setupTestServices installs mocks behind the command wiring and resets
// flag state shared across tests.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		ingestion:   &mockIngestion{},
		discovery:   &mockDiscovery{},
		retrieval:   &mockRetrieval{},
		credentials: &mockCredentials{saved: map[string]string{}},
		fetch:       &mockRunner{},
		vectorize:   &mockRunner{},
		scheduler:   &mockRunner{},
		config:      memory.NewConfigStore(),
	}

	oldConnect, oldOpen, oldGetenv := connect, openConfig, getenv
	connect = func(context.Context, domain.Settings) (*Services, func() error, error) {
		return &Services{
			Ingestion:       ts.ingestion,
			Discovery:       ts.discovery,
			Retrieval:       ts.retrieval,
			Credentials:     ts.credentials,
			FetchWorker:     ts.fetch,
			VectorizeWorker: ts.vectorize,
			Scheduler:       ts.scheduler,
		}, func() error { return nil }, nil
	}
	openConfig = func(string) (driven.ConfigStore, error) { return ts.config, nil }
	getenv = func(string) string { return "" }

	t.Cleanup(func() {
		connect, openConfig, getenv = oldConnect, oldOpen, oldGetenv
		opened, closeServices = nil, nil
		syncUser, syncLimit = "", 0
		statusUser, statusJSON = "", false
		retryUser = ""
		retrieveUser, retrieveTopK, retrieveJSON = "", domain.DefaultTopK, false
		chunkUser = ""
		credentialsUser, credentialsEmail, credentialsToken = "", "", ""
		tokenUser, tokenEmail = "", ""
		versionShort, verbose = false, false
		mcpAddr = ""
	})
	return ts
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := Execute(context.Background())
	return buf.String(), err
}

func requireContains(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		require.Contains(t, out, p)
	}
}
