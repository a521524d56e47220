// Package config loads engine configuration from YAML with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	// Root is the directory to index. Defaults to the working directory.
	Root string `yaml:"root"`

	// StorePath is the sqlite store location. Defaults to
	// <root>/.codescout/index.db.
	StorePath string `yaml:"store_path"`

	Search     SearchConfig      `yaml:"search"`
	Embedding  EmbeddingConfig   `yaml:"embedding"`
	Connectors []ConnectorConfig `yaml:"connectors" validate:"dive"`
}

// SearchConfig bounds query execution.
type SearchConfig struct {
	// Timeout is the per-query deadline; slow indexes are abandoned past it.
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
	// MaxResults caps the ranked response.
	MaxResults int `yaml:"max_results" validate:"min=1,max=500"`
	// MaxDepth bounds graph traversals.
	MaxDepth int `yaml:"max_depth" validate:"min=1,max=10"`
	// CacheTTL is how long query results stay cached; 0 disables caching.
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"min=0"`
	// CacheSize is the maximum number of cached responses.
	CacheSize int `yaml:"cache_size" validate:"min=0"`
}

// EmbeddingConfig selects the embedder.
type EmbeddingConfig struct {
	// Provider is one of: hash, openai, ollama, none.
	Provider  string `yaml:"provider" validate:"oneof=hash openai ollama none"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension" validate:"min=0,max=8192"`
	BaseURL   string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the key; keys never
	// live in the config file itself.
	APIKeyEnv string `yaml:"api_key_env"`
}

// ConnectorConfig declares one external source.
type ConnectorConfig struct {
	// Type is one of: github-issues, github-reviews, chat-archive.
	Type string `yaml:"type" validate:"required,oneof=github-issues github-reviews chat-archive"`
	// Owner/Repo for the github types.
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	// TokenEnv names the environment variable holding the access token.
	TokenEnv string `yaml:"token_env"`
	// Dir is the export directory for chat-archive.
	Dir string `yaml:"dir"`
	// Name labels the connector in results; defaults per type.
	Name string `yaml:"name"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Timeout:    5 * time.Second,
			MaxResults: 50,
			MaxDepth:   3,
			CacheTTL:   30 * time.Second,
			CacheSize:  128,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Dimension: 256,
		},
	}
}

// Load reads a YAML config file, fills defaults, and validates. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil
			}
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Search.Timeout == 0 {
		c.Search.Timeout = d.Search.Timeout
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = d.Search.MaxResults
	}
	if c.Search.MaxDepth == 0 {
		c.Search.MaxDepth = d.Search.MaxDepth
	}
	if c.Search.CacheSize == 0 {
		c.Search.CacheSize = d.Search.CacheSize
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = d.Embedding.Provider
	}
	if c.Embedding.Dimension == 0 && c.Embedding.Provider == "hash" {
		c.Embedding.Dimension = d.Embedding.Dimension
	}
	if c.Root == "" {
		if wd, err := os.Getwd(); err == nil {
			c.Root = wd
		}
	}
	if c.StorePath == "" && c.Root != "" {
		c.StorePath = c.Root + "/.codescout/index.db"
	}
	for i := range c.Connectors {
		if c.Connectors[i].Name == "" {
			c.Connectors[i].Name = c.Connectors[i].Type
		}
	}
}

// Validate checks structural constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, conn := range c.Connectors {
		switch conn.Type {
		case "github-issues", "github-reviews":
			if conn.Owner == "" || conn.Repo == "" {
				return fmt.Errorf("connector %s requires owner and repo", conn.Type)
			}
		case "chat-archive":
			if conn.Dir == "" {
				return fmt.Errorf("connector chat-archive requires dir")
			}
		}
	}
	return nil
}

// Token resolves a connector's token from the environment.
func (c ConnectorConfig) Token() string {
	if c.TokenEnv == "" {
		return os.Getenv("GITHUB_TOKEN")
	}
	return os.Getenv(c.TokenEnv)
}

// APIKey resolves the embedding provider key from the environment.
func (c EmbeddingConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv(c.APIKeyEnv)
}
