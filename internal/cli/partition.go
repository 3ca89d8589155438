package cli

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/usecase"
)

var (
	partitionIn  string
	partitionOut string
)

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Partition documents into typed elements",
	Long: `Partition a document, or every top-level document in a folder, into typed
elements and write them as JSON.

A file input writes a single JSON file. A folder input writes one
<name>.json per document into the output folder.

Examples:
  docrag partition -i slides.pptx -o slides.json
  docrag partition -i ./docs -o ./elements`,
	RunE: runPartition,
}

func init() {
	rootCmd.AddCommand(partitionCmd)
	partitionCmd.Flags().StringVarP(&partitionIn, "input", "i", "", "input file or folder (required)")
	partitionCmd.Flags().StringVarP(&partitionOut, "output", "o", "", "output .json file or folder (required)")
	partitionCmd.MarkFlagRequired("input")
	partitionCmd.MarkFlagRequired("output")
}

func runPartition(cmd *cobra.Command, args []string) error {
	svc, err := newServices(GetConfig(), false)
	if err != nil {
		return err
	}
	defer svc.Close()

	export := usecase.NewExportUseCase(svc.router, svc.chunks, GetLogger())
	result, err := export.Partition(cmd.Context(), partitionIn, partitionOut, newProgress("Partitioning"))
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d file(s) with %d element(s)", result.FilesWritten, result.Elements)
	if len(result.Failed) > 0 {
		fmt.Printf(", %d failed", len(result.Failed))
	}
	fmt.Println()
	return nil
}

// newProgress returns a progress callback that draws a bar once the total is known.
func newProgress(description string) func(done, total int) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}
}
