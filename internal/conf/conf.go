package conf

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chaqqon/chatgate/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// OpenAI-compatible completion backend
	OpenAI OpenAIConfig

	// Feishu transport (serve mode only)
	Feishu FeishuConfig

	// Bot identity and authority
	Bot BotConfig

	// Throttle timers
	Throttle ThrottleConfig

	// Completion client tuning
	Completion CompletionConfig

	// Console transport (console mode only)
	Console ConsoleConfig

	// Path to vocab.yaml, empty to search default locations
	VocabPath string

	LogLevel string
	Debug    bool
}

// OpenAIConfig contains the completion backend configuration
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// BotConfig contains bot identity settings
type BotConfig struct {
	Handle            string // mention handle, without "@"
	AuthorityUsername string
	AskPrefix         string
}

// ThrottleConfig contains throttle windows
type ThrottleConfig struct {
	UserWindow             time.Duration
	GroupCooldownMin       time.Duration
	GroupCooldownMax       time.Duration
	EscalationTriggerCount int
}

// CompletionConfig contains completion client settings
type CompletionConfig struct {
	Concurrency     int
	PreCallDelay    time.Duration
	Temperature     float32
	MaxTokens       int
	HistoryCapacity int
	ReplyMaxChars   int
}

// ConsoleConfig contains console transport settings
type ConsoleConfig struct {
	Admins []string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Bot: BotConfig{
			Handle:            strings.TrimPrefix(os.Getenv("BOT_HANDLE"), "@"),
			AuthorityUsername: strings.TrimPrefix(os.Getenv("AUTHORITY_USERNAME"), "@"),
			AskPrefix:         envString("ASK_PREFIX", "/ask"),
		},
		Throttle: ThrottleConfig{
			UserWindow:             envSeconds("USER_THROTTLE_SECONDS", 20),
			GroupCooldownMin:       envSeconds("GROUP_COOLDOWN_MIN_SECONDS", 45),
			GroupCooldownMax:       envSeconds("GROUP_COOLDOWN_MAX_SECONDS", 90),
			EscalationTriggerCount: envInt("ESCALATION_TRIGGER_COUNT", 2),
		},
		Completion: CompletionConfig{
			Concurrency:     envInt("COMPLETION_CONCURRENCY", 4),
			PreCallDelay:    time.Duration(envInt("PRE_CALL_DELAY_MS", 120)) * time.Millisecond,
			Temperature:     float32(envFloat("COMPLETION_TEMPERATURE", 0.35)),
			MaxTokens:       envInt("COMPLETION_MAX_TOKENS", 700),
			HistoryCapacity: envInt("HISTORY_CAPACITY", 8),
			ReplyMaxChars:   envInt("REPLY_MAX_CHARS", 350),
		},
		Console: ConsoleConfig{
			Admins: splitList(os.Getenv("CONSOLE_ADMINS")),
		},
		VocabPath: os.Getenv("VOCAB_CONFIG_PATH"),
		LogLevel:  envString("LOG_LEVEL", "info"),
		Debug:     os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration shared by every mode
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
	}
	if c.Throttle.GroupCooldownMin > c.Throttle.GroupCooldownMax {
		return &ConfigError{Field: "GROUP_COOLDOWN_MIN_SECONDS", Message: "must not exceed GROUP_COOLDOWN_MAX_SECONDS"}
	}
	if c.Completion.Concurrency < 1 {
		return &ConfigError{Field: "COMPLETION_CONCURRENCY", Message: "must be at least 1"}
	}
	if c.Completion.HistoryCapacity < 0 {
		return &ConfigError{Field: "HISTORY_CAPACITY", Message: "must not be negative"}
	}
	return nil
}

// ValidateFeishu validates the Feishu credentials required by serve mode
func (c *Config) ValidateFeishu() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	return nil
}

// ToPolicyConfig converts to trigger policy configuration
func (c *Config) ToPolicyConfig() usecase.PolicyConfig {
	return usecase.PolicyConfig{
		BotHandle:         c.Bot.Handle,
		AuthorityUsername: c.Bot.AuthorityUsername,
		AskPrefix:         c.Bot.AskPrefix,
		CooldownMin:       c.Throttle.GroupCooldownMin,
		CooldownMax:       c.Throttle.GroupCooldownMax,
	}
}

// ToCompletionConfig converts to completion usecase configuration
func (c *Config) ToCompletionConfig(v *Vocabulary) usecase.CompletionConfig {
	cfg := usecase.DefaultCompletionConfig()
	cfg.SystemPrompt = v.Phrases.SystemPrompt
	cfg.NoAnswer = v.Phrases.NoAnswer
	cfg.PreCallDelay = c.Completion.PreCallDelay
	cfg.Concurrency = int64(c.Completion.Concurrency)
	cfg.Temperature = c.Completion.Temperature
	cfg.MaxTokens = c.Completion.MaxTokens
	return cfg
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Str("component", "config").Str("key", key).Str("value", val).Msg("Invalid integer, using default")
		return def
	}
	return parsed
}

func envFloat(key string, def float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Warn().Str("component", "config").Str("key", key).Str("value", val).Msg("Invalid number, using default")
		return def
	}
	return parsed
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
