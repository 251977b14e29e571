package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Provider names accepted for integrations.llm.provider.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGroq       = "groq"
)

// Config is the full application configuration. It is loaded once at
// startup and passed down explicitly; nothing reads it globally.
type Config struct {
	Server       Server       `yaml:"server"`
	Log          Log          `yaml:"log"`
	Integrations Integrations `yaml:"integrations"`
	Pipeline     Pipeline     `yaml:"pipeline"`
	Redis        RedisConfig  `yaml:"redis"`
	Database     Database     `yaml:"database"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr               string `yaml:"addr"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
	RequestTimeoutSec  int    `yaml:"request_timeout_sec"`
}

// ShutdownTimeout is the graceful shutdown window.
func (s Server) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// RequestTimeout bounds one HTTP request, including a full research run.
func (s Server) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Integrations groups the outbound collaborators.
type Integrations struct {
	LLM      LLM      `yaml:"llm"`
	Search   Search   `yaml:"search"`
	Registry Registry `yaml:"registry"`
}

// LLM configures the OpenAI-compatible chat completions endpoint.
type LLM struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	JSONMaxTokens     int     `yaml:"json_max_tokens"`
	RequestTimeoutSec int     `yaml:"request_timeout_sec"`
	Referer           string  `yaml:"referer"`
	Title             string  `yaml:"title"`
	APIKey            string  `yaml:"-"`
}

// Search configures the Tavily web search client.
type Search struct {
	Endpoint           string  `yaml:"endpoint"`
	Depth              string  `yaml:"search_depth"`
	MaxResults         int     `yaml:"max_results"`
	MaxQueries         int     `yaml:"max_queries"`
	MaxDomains         int     `yaml:"max_domains"`
	Concurrency        int     `yaml:"concurrency"`
	RatePerSecond      float64 `yaml:"rate_per_second"`
	ConnectTimeoutSec  int     `yaml:"connect_timeout_sec"`
	ReadTimeoutSec     int     `yaml:"read_timeout_sec"`
	RequestTimeoutSec  int     `yaml:"request_timeout_sec"`
	BreakerThreshold   int     `yaml:"breaker_threshold"`
	BreakerCooldownSec int     `yaml:"breaker_cooldown_sec"`
	APIKey             string  `yaml:"-"`
}

// Registry configures the official parcel registry collaborator.
type Registry struct {
	URL               string   `yaml:"url"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`
	CacheTTLSec       int      `yaml:"cache_ttl_sec"`
	Panels            []string `yaml:"panels"`
	APIKey            string   `yaml:"-"`
}

// CacheTTL is how long registry snapshots are reused.
func (r Registry) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSec) * time.Second
}

// Pipeline configures the research loop.
type Pipeline struct {
	MaxIterations  int      `yaml:"max_iterations"`
	City           string   `yaml:"city"`
	DefaultDomains []string `yaml:"default_domains"`
	StylePrompt    string   `yaml:"style_prompt"`
}

// RedisConfig configures the optional Redis snapshot cache.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"-"`
	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`
}

// Database configures the optional Postgres run archive.
type Database struct {
	URL string `yaml:"url"`
}

// DefaultRegistryPanels are the registry panels collected for every parcel.
var DefaultRegistryPanels = []string{
	"Address / Legal",
	"Planning and Zoning",
	"Assessor",
	"Case Numbers",
	"Citywide / Code Amendment Cases",
	"Housing",
}

// DefaultDomains are searched when a round supplies no domain filter.
var DefaultDomains = []string{"planning.lacity.gov", "zimas.lacity.org", "ladbs.org"}

// Default returns the configuration used when no file or env overrides apply.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", ShutdownTimeoutSec: 10, RequestTimeoutSec: 300},
		Log:    Log{Level: "info", Format: "text"},
		Integrations: Integrations{
			LLM: LLM{
				Provider:          ProviderOpenRouter,
				Model:             "meta-llama/llama-3.1-8b-instruct",
				Temperature:       0.2,
				MaxTokens:         900,
				JSONMaxTokens:     400,
				RequestTimeoutSec: 90,
				Referer:           "http://localhost",
				Title:             "Property Analysis Agentic System",
			},
			Search: Search{
				Endpoint:           "https://api.tavily.com/search",
				Depth:              "advanced",
				MaxResults:         6,
				MaxQueries:         12,
				MaxDomains:         6,
				Concurrency:        3,
				RatePerSecond:      2,
				ConnectTimeoutSec:  10,
				ReadTimeoutSec:     30,
				RequestTimeoutSec:  60,
				BreakerThreshold:   5,
				BreakerCooldownSec: 30,
			},
			Registry: Registry{
				RequestTimeoutSec: 180,
				CacheTTLSec:       300,
				Panels:            append([]string{}, DefaultRegistryPanels...),
			},
		},
		Pipeline: Pipeline{
			MaxIterations:  2,
			City:           "Los Angeles, CA",
			DefaultDomains: append([]string{}, DefaultDomains...),
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// FromEnv loads the file named by CONFIG_PATH (if any) and applies env overrides.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg, keeping any value the document omits.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("ZONESCOUT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	llm := &cfg.Integrations.LLM
	llm.Provider = strings.ToLower(strings.TrimSpace(llm.Provider))
	if v := getenv("LLM_PROVIDER"); v != "" {
		llm.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("LLM_MODEL"); v != "" {
		llm.Model = v
	}
	switch llm.Provider {
	case ProviderGroq:
		llm.APIKey = strings.TrimSpace(getenv("GROQ_API_KEY"))
	default:
		llm.APIKey = strings.TrimSpace(getenv("OPENROUTER_API_KEY"))
	}
	if v := getenv("OR_REFERER"); v != "" {
		llm.Referer = v
	}
	if v := getenv("OR_TITLE"); v != "" {
		llm.Title = v
	}

	cfg.Integrations.Search.APIKey = strings.TrimSpace(getenv("TAVILY_API_KEY"))

	if v := getenv("REGISTRY_URL"); v != "" {
		cfg.Integrations.Registry.URL = v
	}
	cfg.Integrations.Registry.APIKey = strings.TrimSpace(getenv("REGISTRY_API_KEY"))

	if v := getenv("MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MaxIterations = n
		}
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("pipeline.max_iterations must be at least 1, got %d", c.Pipeline.MaxIterations)
	}
	switch c.Integrations.LLM.Provider {
	case ProviderOpenRouter, ProviderGroq:
	default:
		return fmt.Errorf("integrations.llm.provider %q is not supported", c.Integrations.LLM.Provider)
	}
	if c.Integrations.LLM.Model == "" {
		return fmt.Errorf("integrations.llm.model is required")
	}
	if c.Integrations.Search.MaxQueries < 1 || c.Integrations.Search.Concurrency < 1 {
		return fmt.Errorf("integrations.search max_queries and concurrency must be positive")
	}
	return nil
}
