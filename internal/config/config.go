package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

type SchemaConfig struct {
	Namespace         string `toml:"namespace"`
	DescriptionPolicy string `toml:"description_policy"`
	// Dir is where the file store keeps one file per namespace.
	Dir string `toml:"dir"`
	// Format of the stored files: text, json or yaml. Only json and yaml
	// keep provenance, which scoped replace passes rely on.
	Format string `toml:"format"`
}

type ExtractionConfig struct {
	// Prompt is a format string taking the category list and the chunk text.
	Prompt              string `toml:"prompt"`
	MaxEntitiesPerChunk int    `toml:"max_entities_per_chunk"`
}

type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

type LLMConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	MaxTokens  int    `toml:"max_tokens"`
	MaxRetries int    `toml:"max_retries"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ConcurrencyConfig struct {
	// Chunks is the number of chunks extracted in parallel per document.
	Chunks int `toml:"chunks"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Schema      SchemaConfig      `toml:"schema"`
	LLM         LLMConfig         `toml:"llm"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Extraction  ExtractionConfig  `toml:"extraction"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

func Default() *Config {
	return &Config{
		Schema: SchemaConfig{
			Namespace:         "Engineering",
			DescriptionPolicy: "last-write-wins",
			Dir:               "schemas",
			Format:            "json",
		},
		LLM: LLMConfig{
			Provider:   "ollama",
			Model:      "llama3.1",
			BaseURL:    "http://localhost:11434",
			MaxTokens:  4096,
			MaxRetries: 3,
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Extraction: ExtractionConfig{
			Prompt:              DefaultExtractionPrompt,
			MaxEntitiesPerChunk: 20,
		},
		Chunking: ChunkingConfig{
			Size:    1500,
			Overlap: 200,
		},
		Concurrency: ConcurrencyConfig{
			Chunks: 4,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.Schema.Namespace, "SCHEMA_NAMESPACE")
	setString(&c.Schema.Dir, "SCHEMA_DIR")
	setString(&c.Schema.Format, "SCHEMA_FORMAT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Server.Addr, "SERVER_ADDR")
	if v, ok := os.LookupEnv("EXTRACTION_CONCURRENCY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency.Chunks = n
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if err := model.ValidateNamespace(c.Schema.Namespace); err != nil {
		errs = append(errs, fmt.Errorf("schema.namespace: %w", err))
	}
	switch c.Schema.DescriptionPolicy {
	case "", "last-write-wins", "longest-wins":
	default:
		errs = append(errs, fmt.Errorf("schema.description_policy must be last-write-wins or longest-wins, got %q", c.Schema.DescriptionPolicy))
	}
	switch strings.ToLower(c.Schema.Format) {
	case "", "text", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("schema.format must be text, json or yaml, got %q", c.Schema.Format))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "claude", "gemini", "ollama":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.Chunking.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, fmt.Errorf("chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap))
	}
	if c.Concurrency.Chunks <= 0 {
		errs = append(errs, fmt.Errorf("concurrency.chunks must be positive, got %d", c.Concurrency.Chunks))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries))
	}
	if c.Extraction.Prompt != "" && strings.Count(c.Extraction.Prompt, "%s") != 2 {
		errs = append(errs, errors.New("extraction.prompt must contain exactly two %s verbs (categories, text)"))
	}
	return errors.Join(errs...)
}
