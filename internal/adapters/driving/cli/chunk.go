package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chunkUser string

var chunkCmd = &cobra.Command{
	Use:   "chunk [chunk-id]",
	Short: "Show a chunk with its neighbouring chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

func init() {
	chunkCmd.Flags().StringVarP(&chunkUser, "user", "u", "", "user id")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	if err := requireUser(chunkUser); err != nil {
		return err
	}
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	chunk, err := s.Retrieval.ChunkContext(cmd.Context(), chunkUser, args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunk: %w", err)
	}
	cmd.Printf("%s (%s, %s)\n\n", chunk.FileName, chunk.FileID, chunk.MimeType)
	cmd.Println(chunk.Text)
	return nil
}
