package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docrag/config"
	"docrag/internal/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	verbose  bool
	persist  bool
	appLog   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Document RAG - partition, chunk, search and chat over local documents",
	Long: `docrag partitions HTML, PPTX and PDF documents into elements, groups them
into title-bounded chunks, indexes the chunks in named in-memory stores and
builds grounded prompts for a completion endpoint.

Example usage:
  docrag partition -i report.pdf -o report.json
  docrag chunk -i report.pdf -o chunks.json
  docrag search -i ./docs -q "quarterly revenue"
  docrag chat -i report.pdf -u http://localhost:8080/completion -q "What changed?"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		appLog, err = logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			_ = appLog.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&persist, "persist", false, "archive chunk sets under .docrag/chunks.db")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// GetLogger returns the logger configured for the running command.
func GetLogger() *zap.Logger {
	return logger.OrNop(appLog)
}
