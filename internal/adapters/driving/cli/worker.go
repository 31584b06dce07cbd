package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a pipeline worker",
	Long: `Runs one pipeline worker until interrupted.

Several workers of the same kind may run at once; each queue entry is
delivered to exactly one of them.`,
}

var workerFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract text from discovered files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := requireServices(cmd)
		if err != nil {
			return err
		}
		return runUntilCancelled(cmd.Context(), "fetch worker", s.FetchWorker)
	},
}

var workerVectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Chunk, embed and index fetched files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := requireServices(cmd)
		if err != nil {
			return err
		}
		return runUntilCancelled(cmd.Context(), "vectorize worker", s.VectorizeWorker)
	},
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Move due retry jobs back onto the work queues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := requireServices(cmd)
		if err != nil {
			return err
		}
		return runUntilCancelled(cmd.Context(), "scheduler", s.Scheduler)
	},
}

func init() {
	workerCmd.AddCommand(workerFetchCmd)
	workerCmd.AddCommand(workerVectorizeCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(schedulerCmd)
}

// runUntilCancelled runs r and treats cancellation as a clean stop.
func runUntilCancelled(ctx context.Context, name string, r driving.Runner) error {
	if r == nil {
		return errors.New(name + " not configured")
	}
	logger.Info("%s started", name)
	err := r.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("%s stopped", name)
	return nil
}
