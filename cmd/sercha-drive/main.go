// Command sercha-drive ingests Google Drive files into a vector index and
// serves retrieval over them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-drive/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-drive/internal/bootstrap"
	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetConfigOpener(openConfig)
	cli.SetConnector(connect)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func openConfig(configDir string) (driven.ConfigStore, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func connect(ctx context.Context, settings domain.Settings) (*cli.Services, func() error, error) {
	c, err := bootstrap.New(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	return &cli.Services{
		Ingestion:       c.Ingestion,
		Discovery:       c.Discovery,
		Retrieval:       c.Retrieval,
		Credentials:     c.Credentials,
		FetchWorker:     c.FetchWorker(),
		VectorizeWorker: c.VectorizeWorker(),
		Scheduler:       c.Scheduler(),
	}, c.Close, nil
}
