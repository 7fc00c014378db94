package config

import (
	"os"
	"strconv"
	"time"

	"spaceplan/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	AI     AIConfig
	Server ServerConfig
	Ops    OpsConfig
	Brief  BriefConfig
}

// AIConfig holds AI/LLM related settings
type AIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	SystemContext string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	PromptsDir    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// OpsConfig holds the operational endpoint settings
type OpsConfig struct {
	Port    string
	Enabled bool
}

// BriefConfig holds brief ingestion settings
type BriefConfig struct {
	MaxInputBytes int
	HistoryLimit  int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		AI:     loadAIConfig(),
		Server: loadServerConfig(),
		Ops:    loadOpsConfig(),
		Brief:  loadBriefConfig(),
	}

	if err := validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadAIConfig() AIConfig {
	return AIConfig{
		APIKey:        os.Getenv("OPENAI_API_KEY"),
		BaseURL:       getEnvOrDefault("OPENAI_BASE_URL", ""),
		Model:         getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		SystemContext: getEnvOrDefault("LLM_SYSTEM_CONTEXT", "You are an architectural programming assistant."),
		MaxTokens:     getEnvIntOrDefault("LLM_MAX_TOKENS", 4000),
		Temperature:   getEnvFloatOrDefault("LLM_TEMPERATURE", 0.1),
		Timeout:       time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		PromptsDir:    getEnvOrDefault("PROMPTS_DIR", ""), // empty uses embedded templates
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadOpsConfig() OpsConfig {
	return OpsConfig{
		Port:    getEnvOrDefault("OPS_PORT", "9090"),
		Enabled: getEnvOrDefault("OPS_ENABLED", "true") == "true",
	}
}

func loadBriefConfig() BriefConfig {
	return BriefConfig{
		MaxInputBytes: getEnvIntOrDefault("BRIEF_MAX_INPUT_BYTES", 256*1024),
		HistoryLimit:  getEnvIntOrDefault("HISTORY_LIMIT", 100),
	}
}

func validate(config *Config) error {
	if config.AI.MaxTokens <= 0 {
		return errors.ConfigInvalid("LLM_MAX_TOKENS must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Brief.HistoryLimit < 1 {
		return errors.ConfigInvalid("HISTORY_LIMIT must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
