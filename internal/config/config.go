// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
}

// StorageConfig locates the on-disk indexes.
type StorageConfig struct {
	DataDir     string `yaml:"data_dir"`
	VectorDB    string `yaml:"vector_db"`
	KeywordPath string `yaml:"keyword_path"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // mock, onnx, openai
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`    // words per chunk
	ChunkOverlap int `yaml:"chunk_overlap"` // sentences carried between chunks
}

// RetrievalConfig controls context retrieval.
type RetrievalConfig struct {
	TopK            int  `yaml:"top_k"`
	KeywordFallback bool `yaml:"keyword_fallback"`
}

// AnswerConfig selects and tunes answer production.
type AnswerConfig struct {
	Mode            string `yaml:"mode"` // qa, generative
	QAServiceURL    string `yaml:"qa_service_url"`
	QATimeoutSecs   int    `yaml:"qa_timeout_secs"`
	GenerativeModel string `yaml:"generative_model"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig configures directory watching.
type WatchConfig struct {
	Enabled      bool     `yaml:"enabled"`
	DebounceMS   int      `yaml:"debounce_ms"`
	IgnoreHidden bool     `yaml:"ignore_hidden"`
	Extensions   []string `yaml:"extensions"`
}

// Default returns a configuration that works out of the box with the mock
// embedding provider and extractive answering.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads a YAML configuration file, applies defaults for unset fields,
// and validates the result. ~ in paths expands to the home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "~/.tanya"
	}
	c.Storage.DataDir = expandPath(c.Storage.DataDir)
	if c.Storage.VectorDB == "" {
		c.Storage.VectorDB = filepath.Join(c.Storage.DataDir, "vectors.db")
	} else {
		c.Storage.VectorDB = expandPath(c.Storage.VectorDB)
	}
	if c.Storage.KeywordPath == "" {
		c.Storage.KeywordPath = filepath.Join(c.Storage.DataDir, "keyword.bleve")
	} else {
		c.Storage.KeywordPath = expandPath(c.Storage.KeywordPath)
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "mock"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.MaxTokens == 0 {
		c.Embedding.MaxTokens = 256
	}
	if c.Embedding.CacheSize == 0 {
		c.Embedding.CacheSize = 1000
	}
	c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath)

	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 500
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = 2
	}

	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 3
	}

	if c.Answer.Mode == "" {
		c.Answer.Mode = "qa"
	}
	if c.Answer.QAServiceURL == "" {
		c.Answer.QAServiceURL = "http://localhost:8502"
	}
	if c.Answer.QATimeoutSecs == 0 {
		c.Answer.QATimeoutSecs = 30
	}

	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8501
	}

	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = 500
	}
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = []string{".txt"}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "mock", "onnx", "openai":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "onnx" && c.Embedding.ModelPath == "" {
		return fmt.Errorf("embedding.model_path is required for the onnx provider")
	}
	switch c.Answer.Mode {
	case "qa", "generative":
	default:
		return fmt.Errorf("unknown answer mode %q", c.Answer.Mode)
	}
	if c.Chunking.ChunkSize < 0 || c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("chunking values must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
