package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docrag.
type Config struct {
	Partition  PartitionConfig  `yaml:"partition"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Generation GenerationConfig `yaml:"generation"`
	Walk       WalkConfig       `yaml:"walk"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PartitionConfig holds partition adapter configuration.
type PartitionConfig struct {
	PDFToText string `yaml:"pdftotext"` // path or name of the pdftotext binary
}

// ChunkingConfig holds title chunker configuration.
type ChunkingConfig struct {
	MaxCharacters int `yaml:"max_characters"`
	CombineUnder  int `yaml:"combine_under"`
}

// CacheConfig holds chunk cache configuration.
type CacheConfig struct {
	MaxEntries  int    `yaml:"max_entries"` // 0 = unbounded
	ArchivePath string `yaml:"archive_path"` // bbolt file; empty disables the archive
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider       string  `yaml:"provider"` // "hashing", "openai", "jina", "deepseek", "ollama"
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Dimension      int     `yaml:"dimension"`
	BatchSize      int     `yaml:"batch_size"`
	Stemming       bool    `yaml:"stemming"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec"` // 0 = unlimited
	MaxRetries     int     `yaml:"max_retries"`
}

// RetrieveConfig holds registry and query configuration.
type RetrieveConfig struct {
	TopK         int `yaml:"top_k"`
	BatchTopK    int `yaml:"batch_top_k"`
	BuildWorkers int `yaml:"build_workers"`
}

// GenerationConfig holds completion endpoint configuration.
type GenerationConfig struct {
	APIURL      string            `yaml:"api_url"`
	NPredict    int               `yaml:"n_predict"`
	TimeoutSecs int               `yaml:"timeout_secs"`
	Headers     map[string]string `yaml:"headers"`
}

// WalkConfig holds folder expansion patterns.
type WalkConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "console" or "json"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Partition: PartitionConfig{
			PDFToText: "pdftotext",
		},
		Chunking: ChunkingConfig{
			MaxCharacters: 500,
			CombineUnder:  0,
		},
		Cache: CacheConfig{
			MaxEntries: 0,
		},
		Embedding: EmbeddingConfig{
			Provider:       "hashing",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      384,
			BatchSize:      100,
			Stemming:       true,
			TimeoutSecs:    60,
			RequestsPerSec: 0,
			MaxRetries:     3,
		},
		Retrieve: RetrieveConfig{
			TopK:         3,
			BatchTopK:    5,
			BuildWorkers: 4,
		},
		Generation: GenerationConfig{
			NPredict:    256,
			TimeoutSecs: 120,
			Headers:     map[string]string{"Content-Type": "application/json"},
		},
		Walk: WalkConfig{
			Includes: []string{"**/*.html", "**/*.htm", "**/*.pptx", "**/*.pdf", "**/*.json"},
			Excludes: []string{"**/.git/**", "**/.docrag/**"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// EmbeddingTimeout returns the embedding request timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSecs) * time.Second
}

// GenerationTimeout returns the generation request timeout.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSecs) * time.Second
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ArchiveDBPath returns the default chunk archive location under dir.
func ArchiveDBPath(dir string) string {
	return filepath.Join(dir, ".docrag", "chunks.db")
}

// EnsureDataDir ensures the .docrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docrag"), 0755)
}
