package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Pipeline.MaxIterations)
	assert.Equal(t, []string{"planning.lacity.gov", "zimas.lacity.org", "ladbs.org"}, cfg.Pipeline.DefaultDomains)
	assert.Equal(t, 400, cfg.Integrations.LLM.JSONMaxTokens)
	assert.Len(t, cfg.Integrations.Registry.Panels, 6)
}

func TestParse(t *testing.T) {
	doc := []byte(`
integrations:
  llm:
    provider: groq
    base_url: https://api.groq.com/openai/v1
    model: llama-3.1-8b-instant
    request_timeout_sec: 30
  search:
    max_results: 4
pipeline:
  max_iterations: 3
  style_prompt: "Write like a zoning attorney."
`)
	cfg := Default()
	require.NoError(t, Parse(doc, &cfg))

	assert.Equal(t, "groq", cfg.Integrations.LLM.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Integrations.LLM.Model)
	assert.Equal(t, 30, cfg.Integrations.LLM.RequestTimeoutSec)
	assert.Equal(t, float32(0.2), cfg.Integrations.LLM.Temperature, "omitted keys keep defaults")
	assert.Equal(t, 4, cfg.Integrations.Search.MaxResults)
	assert.Equal(t, "advanced", cfg.Integrations.Search.Depth)
	assert.Equal(t, 3, cfg.Pipeline.MaxIterations)
	assert.Equal(t, "Write like a zoning attorney.", cfg.Pipeline.StylePrompt)
}

func TestApplyEnv(t *testing.T) {
	t.Run("openrouter key and headers", func(t *testing.T) {
		cfg := Default()
		applyEnv(&cfg, envMap(map[string]string{
			"OPENROUTER_API_KEY": " or-key ",
			"GROQ_API_KEY":       "groq-key",
			"OR_TITLE":           "Parcel Brief",
			"TAVILY_API_KEY":     "tv-key",
			"REDIS_URL":          "redis://localhost:6379/0",
		}))

		assert.Equal(t, "or-key", cfg.Integrations.LLM.APIKey)
		assert.Equal(t, "Parcel Brief", cfg.Integrations.LLM.Title)
		assert.Equal(t, "http://localhost", cfg.Integrations.LLM.Referer)
		assert.Equal(t, "tv-key", cfg.Integrations.Search.APIKey)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	})

	t.Run("groq provider reads groq key", func(t *testing.T) {
		cfg := Default()
		applyEnv(&cfg, envMap(map[string]string{
			"LLM_PROVIDER":       "GROQ",
			"OPENROUTER_API_KEY": "or-key",
			"GROQ_API_KEY":       "groq-key",
		}))

		assert.Equal(t, ProviderGroq, cfg.Integrations.LLM.Provider)
		assert.Equal(t, "groq-key", cfg.Integrations.LLM.APIKey)
	})

	t.Run("invalid max iterations is ignored", func(t *testing.T) {
		cfg := Default()
		applyEnv(&cfg, envMap(map[string]string{"MAX_ITERATIONS": "many"}))
		assert.Equal(t, 2, cfg.Pipeline.MaxIterations)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.MaxIterations = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Integrations.LLM.Provider = "anthropic"
	assert.Error(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("file over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, 10, cfg.Server.ShutdownTimeoutSec)
	})
}
