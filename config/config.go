package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the repoindex tool.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Labeler LabelerConfig `yaml:"labeler"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// IndexConfig holds the run defaults. The ingest policy and explicit CLI
// flags take precedence over these values.
type IndexConfig struct {
	ChunkBytes      int      `yaml:"chunk_bytes"`
	OverlapBytes    int      `yaml:"overlap_bytes"`
	MaxFileBytes    int64    `yaml:"max_file_bytes"`
	BinaryThreshold float64  `yaml:"binary_threshold"`
	AllowBinary     bool     `yaml:"allow_binary"`
	PolicyPath      string   `yaml:"policy_path"`
	ManifestPath    string   `yaml:"manifest_path"`
	Excludes        []string `yaml:"excludes"` // only used when the root is not a git work tree
}

// LabelerConfig holds chunk labeling configuration.
type LabelerConfig struct {
	UseLLM    bool   `yaml:"use_llm"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Project   string `yaml:"project"`
}

// StoreConfig selects the memory store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "bolt", "memory"
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			ChunkBytes:      1200,
			OverlapBytes:    200,
			MaxFileBytes:    200_000,
			BinaryThreshold: 0.33,
			AllowBinary:     false,
			PolicyPath:      filepath.Join(".repoindex", "policy.json"),
			ManifestPath:    filepath.Join(".repoindex", "manifest.json"),
			Excludes:        []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**", "**/target/**", "**/__pycache__/**", "**/.repoindex/**"},
		},
		Labeler: LabelerConfig{
			UseLLM:    true,
			BaseURL:   "http://localhost:11434/v1",
			Model:     "qwen2.5:3b",
			APIKeyEnv: "OPENAI_API_KEY",
			Project:   "repoindex",
		},
		Store: StoreConfig{
			Backend: "bolt",
			Path:    filepath.Join(".repoindex", "memory.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
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

// LoadFromDir loads configuration from a directory (looks for repoindex.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "repoindex.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".repoindex", "config.yaml")
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

// Resolve returns path unchanged if absolute, otherwise joined onto dir.
func Resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// EnsureDir ensures the parent directory of path exists.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
