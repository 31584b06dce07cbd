package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

var (
	retrieveUser string
	retrieveTopK int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve relevant passages from a user's indexed files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringVarP(&retrieveUser, "user", "u", "", "user id")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", domain.DefaultTopK, "vector hits to consider")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if err := requireUser(retrieveUser); err != nil {
		return err
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	result, err := s.Retrieval.Retrieve(cmd.Context(), domain.RetrieveRequest{
		Query:  strings.Join(args, " "),
		UserID: retrieveUser,
		TopK:   retrieveTopK,
	})
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}
	if result.Citations == nil {
		result.Citations = []domain.Citation{}
	}

	if retrieveJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(result.FormattedText)
	if len(result.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range result.Citations {
			cmd.Printf("  [%d] %s (%s) chunks %s\n", i+1, c.FileName, c.FileID, c.ChunkID)
		}
	}
	return nil
}
