package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

var (
	statusUser string
	statusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ingestion progress for a user",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusUser, "user", "u", "", "user id")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output progress as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := requireUser(statusUser); err != nil {
		return err
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	progress, err := s.Ingestion.Progress(cmd.Context(), statusUser)
	if err != nil {
		return fmt.Errorf("failed to get progress: %w", err)
	}
	if progress.Files == nil {
		progress.Files = []domain.FileRecord{}
	}

	if statusJSON {
		data, err := json.MarshalIndent(progress, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal progress: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	t := progress.Totals
	cmd.Printf("Supported: %d  Indexed: %d  In progress: %d  Failed: %d  Unsupported: %d\n",
		t.Supported, t.Indexed, t.InProgress, t.Failed, t.Unsupported)
	if len(progress.Files) == 0 {
		cmd.Println("No files discovered yet.")
		return nil
	}
	cmd.Println()

	if isTerminal(cmd.OutOrStdout()) {
		cmd.Println(fileTable(progress.Files))
		return nil
	}
	for i := range progress.Files {
		f := &progress.Files[i]
		line := fmt.Sprintf("%-14s %s (%s)", f.Phase, f.Name, f.FileID)
		if f.Error != "" {
			line += " - " + f.Error
		}
		cmd.Println(line)
	}
	return nil
}
