package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docrag/internal/domain"
)

var (
	searchIn      []string
	searchKey     string
	searchQueries []string
	searchTopK    int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Build a store from documents and search it",
	Long: `Build a named store from the given files and folders, then run every query
against it in one batch.

Examples:
  docrag search -i ./docs -q "install steps"
  docrag search -i a.pdf -i b.html -q "pricing" -q "support hours" -k faq --top-k 5 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringSliceVarP(&searchIn, "input", "i", nil, "input files or folders (required)")
	searchCmd.Flags().StringVarP(&searchKey, "key", "k", "default", "store key")
	searchCmd.Flags().StringArrayVarP(&searchQueries, "query", "q", nil, "query text, repeatable (required)")
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "results per query (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("input")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	svc, err := newServices(cfg, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	paths, err := svc.walker.Expand(searchIn)
	if err != nil {
		return err
	}

	info, err := svc.registry.Build(cmd.Context(), searchKey, paths)
	if err != nil {
		return err
	}
	GetLogger().Debug("store ready",
		zap.String("key", info.Key),
		zap.Int("documents", info.DocumentCount),
		zap.String("model", info.Model))

	topK := searchTopK
	if topK == 0 {
		topK = cfg.Retrieve.BatchTopK
	}
	results, err := svc.registry.SearchBatch(cmd.Context(), searchKey, searchQueries, topK)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printResults(searchQueries, results)
	return nil
}

func printResults(queries []string, results [][]domain.ScoredDocument) {
	for i, q := range queries {
		fmt.Printf("Query: %s\n", q)
		if len(results[i]) == 0 {
			fmt.Println("  No results.")
		}
		for rank, r := range results[i] {
			fmt.Printf("  [%d] %s (score %.4f)\n", rank+1, r.Document.Source(), r.Score)
			fmt.Printf("      %s\n", snippet(r.Document.Text, 160))
		}
		fmt.Println()
	}
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
