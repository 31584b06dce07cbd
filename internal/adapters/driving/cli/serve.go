package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-drive/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
)

var (
	serveAddr    string
	serveWorkers bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the JWT protected HTTP API under /drive.

With --workers the fetch and vectorize workers and the scheduler run in
the same process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default http.addr setting)")
	serveCmd.Flags().BoolVar(&serveWorkers, "workers", false, "also run the workers and the scheduler")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := requireSettings()
	if err != nil {
		return err
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	router, err := httpapi.NewRouter(httpapi.Ports{
		Discovery: s.Discovery,
		Ingestion: s.Ingestion,
		Retrieval: s.Retrieval,
	}, settings.HTTP.JWTSecret)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.HTTP.Addr
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		cmd.Printf("HTTP API listening on %s\n", addr)
		return httpapi.Serve(ctx, addr, router)
	})
	if serveWorkers {
		for name, r := range map[string]driving.Runner{
			"fetch worker":     s.FetchWorker,
			"vectorize worker": s.VectorizeWorker,
			"scheduler":        s.Scheduler,
		} {
			g.Go(func() error { return runUntilCancelled(ctx, name, r) })
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
