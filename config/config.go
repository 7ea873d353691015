package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the querydesk service.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Search     SearchConfig     `mapstructure:"search"`
	History    HistoryConfig    `mapstructure:"history"`
	MCP        MCPConfig        `mapstructure:"mcp"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the LLM provider configuration and per-task model
// routing.
type LLMConfig struct {
	Type           string        `mapstructure:"type"` // openai only for now
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Routing        RoutingConfig `mapstructure:"routing"`
}

// RoutingConfig defines which model handles each task.
type RoutingConfig struct {
	Validation string `mapstructure:"validation"`
	Synthesis  string `mapstructure:"synthesis"`
	Worker     string `mapstructure:"worker"`
	Fallback   string `mapstructure:"fallback"`
}

// Model returns the configured model for a task, falling back as needed.
func (r RoutingConfig) Model(task string) string {
	var m string
	switch task {
	case "validation":
		m = r.Validation
	case "synthesis":
		m = r.Synthesis
	case "worker":
		m = r.Worker
	}
	if m == "" {
		m = r.Fallback
	}
	return m
}

// SupervisorConfig bounds the retry loop.
type SupervisorConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	WorkerTimeout time.Duration `mapstructure:"worker_timeout"`
}

// DatabaseConfig locates the embedded records database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RetrievalConfig drives the document pipeline.
type RetrievalConfig struct {
	ResourcesDir string `mapstructure:"resources_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	TopK         int    `mapstructure:"top_k"`
	ReindexCron  string `mapstructure:"reindex_cron"` // empty disables the scheduler
}

// SearchConfig configures the external profile search.
type SearchConfig struct {
	SerperAPIKey string `mapstructure:"serper_api_key"`
	FetchPages   bool   `mapstructure:"fetch_pages"`
}

// HistoryConfig configures the optional Redis result archive.
type HistoryConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"` // empty disables history
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	MaxEntries    int64  `mapstructure:"max_entries"`
}

// MCPConfig describes how workers reach the record tool servers.
type MCPConfig struct {
	PersonCommand []string `mapstructure:"person_command"`
	BankCommand   []string `mapstructure:"bank_command"`
}

// Validate rejects configurations the supervisor cannot run with.
func (c SupervisorConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("supervisor.max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	return nil
}

// LoadConfig reads configuration from file (optional) and environment.
// Environment variables use the QUERYDESK_ prefix with underscores, e.g.
// QUERYDESK_SERVER_ADDRESS. OPENAI_API_KEY and SERPER_API_KEY are honored
// directly for parity with the usual deployment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8003")
	v.SetDefault("llm.type", "openai")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.routing.fallback", "gpt-4o-mini")
	v.SetDefault("supervisor.max_attempts", 3)
	v.SetDefault("supervisor.worker_timeout", 2*time.Minute)
	v.SetDefault("database.path", "db/main.db")
	v.SetDefault("retrieval.resources_dir", "resources")
	v.SetDefault("retrieval.chunk_size", 500)
	v.SetDefault("retrieval.chunk_overlap", 50)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("history.max_entries", 200)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("QUERYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env are enough to run.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Search.SerperAPIKey == "" {
		cfg.Search.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}

	if err := cfg.Supervisor.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
