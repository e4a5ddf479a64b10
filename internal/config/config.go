package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"askpdf/internal/models"
)

const (
	APIKeyEnv  = "OPENAI_API_KEY"
	BaseURLEnv = "OPENAI_BASE_URL"
	AddrEnv    = "ASKPDF_ADDR"

	defaultBaseURL        = "https://api.openai.com/v1"
	defaultAddr           = ":8080"
	defaultMaxUploadMB    = 20
	defaultLogLevel       = "info"
	defaultEmbedBatchSize = 512
)

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Key     string `yaml:"key"`
}

type RAGConfig struct {
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	Separator      string `yaml:"separator"`
	TopK           int    `yaml:"top_k"`
	EmbedBatchSize int    `yaml:"embed_batch_size"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type Config struct {
	LLM      LLMConfig    `yaml:"llm"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	RAG      RAGConfig    `yaml:"rag"`
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`
}

// LoadConfig reads .env, then the YAML file at path (a missing file means
// defaults), then applies environment overrides and defaults. The result is
// not validated; call Validate before using it.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		if cfg.LLM.Key == "" {
			cfg.LLM.Key = key
		}
		if cfg.EmbedLLM.Key == "" {
			cfg.EmbedLLM.Key = key
		}
	}
	if base := os.Getenv(BaseURLEnv); base != "" {
		cfg.LLM.BaseURL = base
		cfg.EmbedLLM.BaseURL = base
	}
	if addr := os.Getenv(AddrEnv); addr != "" {
		cfg.Server.Addr = addr
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultBaseURL
	}
	if cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.EmbedLLM.Key == "" {
		cfg.EmbedLLM.Key = cfg.LLM.Key
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = models.DefaultInferenceModel
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = models.DefaultEmbeddingModel
	}

	// chunk size and overlap are defaulted together so a lone overlap is not
	// paired with an unrelated default size
	if cfg.RAG.ChunkSize == 0 && cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkSize = models.DefaultChunkSize
		cfg.RAG.ChunkOverlap = models.DefaultChunkOverlap
	}
	if cfg.RAG.Separator == "" {
		cfg.RAG.Separator = models.DefaultSeparator
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = models.DefaultTopK
	}
	if cfg.RAG.EmbedBatchSize <= 0 {
		cfg.RAG.EmbedBatchSize = defaultEmbedBatchSize
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// Validate fails fast with models.ErrConfig instead of deferring a missing
// credential to the first provider call.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.LLM.Key) == "" {
		problems = append(problems, fmt.Sprintf("missing API key (set %s)", APIKeyEnv))
	}
	if c.RAG.ChunkSize <= 0 {
		problems = append(problems, fmt.Sprintf("chunk_size must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		problems = append(problems, fmt.Sprintf("chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", models.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}
