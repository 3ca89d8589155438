package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/usecase"
)

var (
	chunkIn  string
	chunkOut string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Chunk a document and write the documents as JSON",
	Long: `Partition a document, group its elements into title-bounded chunks and
write {"documents": [...]} to the output file.

Examples:
  docrag chunk -i handbook.html -o handbook-chunks.json`,
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().StringVarP(&chunkIn, "input", "i", "", "input file (required)")
	chunkCmd.Flags().StringVarP(&chunkOut, "output", "o", "", "output .json file (required)")
	chunkCmd.MarkFlagRequired("input")
	chunkCmd.MarkFlagRequired("output")
}

func runChunk(cmd *cobra.Command, args []string) error {
	svc, err := newServices(GetConfig(), false)
	if err != nil {
		return err
	}
	defer svc.Close()

	export := usecase.NewExportUseCase(svc.router, svc.chunks, GetLogger())
	n, err := export.ChunkFile(cmd.Context(), chunkIn, chunkOut)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d document(s) to %s\n", n, chunkOut)
	return nil
}
