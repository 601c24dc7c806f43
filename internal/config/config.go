package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server        ServerConfig
	Logging       LoggingConfig
	OpenAI        OpenAIConfig
	Limits        LimitsConfig
	Cache         CacheConfig
	Conversations ConversationConfig
	PersonasFile  string
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// OpenAIConfig holds provider client settings.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// LimitsConfig carries the budget policy the API boundary enforces.
// These are policy inputs to the core, not internal constants.
type LimitsConfig struct {
	DailyCostUSD   float64
	DailyTokens    int
	MaxInputTokens int
}

// CacheConfig bounds the response cache.
type CacheConfig struct {
	MaxEntries    int
	TTL           time.Duration
	SweepInterval time.Duration
}

// ConversationConfig bounds the conversation store.
type ConversationConfig struct {
	MaxConversations int
	MaxMessages      int
	MaxTokens        int
	IdleTTL          time.Duration
	SweepInterval    time.Duration
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultModel          = "gpt-4o-mini"
	defaultTemperature    = 0.7
	defaultMaxTokens      = 2000
	defaultOpenAITimeout  = 120 * time.Second
	defaultDailyCostUSD   = 5.0
	defaultDailyTokens    = 500_000
	defaultMaxInputTokens = 100_000

	defaultCacheEntries  = 500
	defaultCacheTTL      = 30 * time.Minute
	defaultCacheSweep    = 5 * time.Minute
	defaultMaxConvos     = 200
	defaultConvoMessages = 50
	defaultConvoTokens   = 24_000
	defaultConvoIdleTTL  = 24 * time.Hour
	defaultConvoSweep    = 10 * time.Minute

	defaultPersonasFile = "./personas.yaml"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       getEnv("OPENAI_MODEL", defaultModel),
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
			Timeout:     defaultOpenAITimeout,
		},
		Limits: LimitsConfig{
			DailyCostUSD:   defaultDailyCostUSD,
			DailyTokens:    defaultDailyTokens,
			MaxInputTokens: defaultMaxInputTokens,
		},
		Cache: CacheConfig{
			MaxEntries:    defaultCacheEntries,
			TTL:           defaultCacheTTL,
			SweepInterval: defaultCacheSweep,
		},
		Conversations: ConversationConfig{
			MaxConversations: defaultMaxConvos,
			MaxMessages:      defaultConvoMessages,
			MaxTokens:        defaultConvoTokens,
			IdleTTL:          defaultConvoIdleTTL,
			SweepInterval:    defaultConvoSweep,
		},
		PersonasFile: getEnv("PERSONAS_FILE", defaultPersonasFile),
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil || temp < 0 || temp > 2 {
			return Config{}, fmt.Errorf("invalid OPENAI_TEMPERATURE: must be a number between 0 and 2")
		}
		cfg.OpenAI.Temperature = float32(temp)
	}

	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_MAX_TOKENS: %w", err)
		}
		cfg.OpenAI.MaxTokens = n
	}

	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_TIMEOUT_SECONDS: %w", err)
		}
		cfg.OpenAI.Timeout = d
	}

	if v := os.Getenv("DAILY_COST_LIMIT_USD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return Config{}, fmt.Errorf("invalid DAILY_COST_LIMIT_USD: must be a non-negative number")
		}
		cfg.Limits.DailyCostUSD = f
	}

	if v := os.Getenv("DAILY_TOKEN_LIMIT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DAILY_TOKEN_LIMIT: %w", err)
		}
		cfg.Limits.DailyTokens = n
	}

	if v := os.Getenv("MAX_INPUT_TOKENS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAX_INPUT_TOKENS: %w", err)
		}
		cfg.Limits.MaxInputTokens = n
	}

	if v := os.Getenv("CACHE_MAX_ENTRIES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_MAX_ENTRIES: %w", err)
		}
		cfg.Cache.MaxEntries = n
	}

	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
		}
		cfg.Cache.TTL = d
	}

	if v := os.Getenv("CONVERSATION_MAX_COUNT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONVERSATION_MAX_COUNT: %w", err)
		}
		cfg.Conversations.MaxConversations = n
	}

	if v := os.Getenv("CONVERSATION_MAX_MESSAGES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONVERSATION_MAX_MESSAGES: %w", err)
		}
		cfg.Conversations.MaxMessages = n
	}

	if v := os.Getenv("CONVERSATION_MAX_TOKENS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONVERSATION_MAX_TOKENS: %w", err)
		}
		cfg.Conversations.MaxTokens = n
	}

	if v := os.Getenv("CONVERSATION_IDLE_TTL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONVERSATION_IDLE_TTL_SECONDS: %w", err)
		}
		cfg.Conversations.IdleTTL = d
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
