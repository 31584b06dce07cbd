package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retryUser string

var retryCmd = &cobra.Command{
	Use:   "retry [file-id]",
	Short: "Retry a failed file",
	Long: `Queues a failed file again. When its extracted text is still stored only
the vectorize stage runs; otherwise the file is fetched again.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().StringVarP(&retryUser, "user", "u", "", "user id")
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) error {
	if err := requireUser(retryUser); err != nil {
		return err
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	stage, err := s.Ingestion.RetryFile(cmd.Context(), retryUser, args[0])
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	cmd.Printf("File %s queued for %s.\n", args[0], stage)
	return nil
}
