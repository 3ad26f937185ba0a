package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Model provider credentials and endpoints.
	OpenAIAPIKey   string `json:"openai_api_key"`
	OpenAIBaseURL  string `json:"openai_base_url"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	OllamaBaseURL  string `json:"ollama_base_url"`

	// Market data providers.
	PolygonAPIKey string `json:"polygon_api_key"`
	FinnhubAPIKey string `json:"finnhub_api_key"`

	DefaultModelName     string `json:"default_model_name"`
	DefaultModelProvider string `json:"default_model_provider"`

	MaxLLMRetries int  `json:"max_llm_retries"`
	Debug         bool `json:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		OpenAIBaseURL:        "https://api.openai.com/v1",
		OllamaBaseURL:        "http://localhost:11434/v1",
		DefaultModelName:     "gpt-4o",
		DefaultModelProvider: "OpenAI",
		MaxLLMRetries:        3,
	}
}

// Load reads .env (if present) and environment overrides on top of the
// defaults. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		cfg.DeepSeekAPIKey = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.PolygonAPIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.FinnhubAPIKey = v
	}
	if v := os.Getenv("HEDGEGO_MODEL"); v != "" {
		cfg.DefaultModelName = v
	}
	if v := os.Getenv("HEDGEGO_MODEL_PROVIDER"); v != "" {
		cfg.DefaultModelProvider = v
	}
	if v := os.Getenv("HEDGEGO_MAX_LLM_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxLLMRetries = n
		}
	}
	if v := os.Getenv("HEDGEGO_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}
	return cfg
}
