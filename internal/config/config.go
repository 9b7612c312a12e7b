// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	LogFile     string

	Model     ModelConfig
	Companion CompanionConfig
	Voice     VoiceConfig
	RateLimit RateLimitConfig

	ConversationLog ConversationLogConfig
}

// ModelConfig configures the hosted language model.
type ModelConfig struct {
	APIKey          string
	BaseURL         string
	Name            string
	Temperature     float32
	Timeout         time.Duration
	TranscribeModel string
}

// CompanionConfig holds conversation defaults.
type CompanionConfig struct {
	DefaultLanguage   domain.Language
	DefaultAutoDetect bool
	HistoryExchanges  int
	// PromptTablePath optionally replaces the built-in instruction table.
	PromptTablePath string
	SideWorkers     int
}

// VoiceConfig controls text-to-speech.
type VoiceConfig struct {
	Enabled       bool
	URL           string
	Timeout       time.Duration
	ClipTTL       time.Duration
	PruneSchedule string
}

// RateLimitConfig bounds chat requests per user.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int

	// GlobalMaxSizeMB rotates the global file past this size.
	GlobalMaxSizeMB int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/companion.db"),
		LogFile:     getEnv("LOG_FILE", ""),
		Model: ModelConfig{
			APIKey:          getEnv("GENAI_API_KEY", ""),
			BaseURL:         getEnv("GENAI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			Name:            getEnv("GENAI_MODEL", "gemini-2.5-flash"),
			Temperature:     getEnvFloat32("GENAI_TEMPERATURE", 0.7),
			Timeout:         getEnvDuration("MODEL_TIMEOUT", 30*time.Second),
			TranscribeModel: getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		},
		Companion: CompanionConfig{
			DefaultLanguage:   domain.Language(strings.ToLower(getEnv("DEFAULT_LANGUAGE", "en"))),
			DefaultAutoDetect: getEnvBool("DEFAULT_AUTO_DETECT", true),
			HistoryExchanges:  getEnvInt("HISTORY_EXCHANGES", 3),
			PromptTablePath:   getEnv("PROMPT_TABLE_PATH", ""),
			SideWorkers:       getEnvInt("SIDE_WORKERS", 16),
		},
		Voice: VoiceConfig{
			Enabled:       getEnvBool("TTS_ENABLED", true),
			URL:           getEnv("TTS_URL", "https://translate.google.com/translate_tts"),
			Timeout:       getEnvDuration("TTS_TIMEOUT", 10*time.Second),
			ClipTTL:       getEnvDuration("TTS_CLIP_TTL", time.Hour),
			PruneSchedule: getEnv("TTS_PRUNE_SCHEDULE", "@every 10m"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 3),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:         getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:             getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled:   getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:      getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:       queueSize,
			GlobalMaxSizeMB: getEnvInt("CONVERSATION_LOG_GLOBAL_MAX_MB", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

const maxHistoryExchanges = 50

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Model.APIKey == "" {
		return fmt.Errorf("GENAI_API_KEY is required")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be > 0")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("GENAI_TEMPERATURE must be between 0 and 2")
	}
	if !c.Companion.DefaultLanguage.IsSupported() {
		return fmt.Errorf("DEFAULT_LANGUAGE %q is not supported", c.Companion.DefaultLanguage)
	}
	if c.Companion.HistoryExchanges <= 0 || c.Companion.HistoryExchanges > maxHistoryExchanges {
		return fmt.Errorf("HISTORY_EXCHANGES must be between 1 and %d", maxHistoryExchanges)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be > 0")
	}
	if c.Voice.Enabled && c.Voice.URL == "" {
		return fmt.Errorf("TTS_URL cannot be empty when TTS is enabled")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// DefaultPreferences are the settings new users start with.
func (c *Config) DefaultPreferences() domain.Preferences {
	return domain.Preferences{
		Language:   c.Companion.DefaultLanguage,
		AutoDetect: c.Companion.DefaultAutoDetect,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
