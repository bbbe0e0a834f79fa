package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration
type Config struct {
	// Telegram configuration
	Telegram TelegramConfig

	// OpenAI configuration
	OpenAI OpenAIConfig

	// Pipeline configuration
	Pipeline PipelineConfig

	// Debug mode
	Debug bool
}

// TelegramConfig contains Telegram configuration
type TelegramConfig struct {
	BotToken       string
	AdminID        int64    // chat that receives previews and controls the queue
	TargetChannel  string   // destination channel, @username
	SourceChannels []string // monitored channel usernames, without @
}

// OpenAIConfig contains rewrite service configuration
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// PipelineConfig contains pipeline timing and storage configuration
type PipelineConfig struct {
	Debounce        time.Duration // album settle window
	DelayOffset     time.Duration // "delay" review action offset
	PollInterval    time.Duration // schedule poll period
	Retention       time.Duration // janitor reclaim age
	JanitorSchedule string        // cron spec for the daily sweep
	MediaDir        string
	StatsDBPath     string
	Footer          string // appended to every published post
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Stats DB path
	statsDBPath := os.Getenv("STATS_DB_PATH")
	if statsDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		statsDBPath = filepath.Join(homeDir, ".telepost", "stats.db")
	}

	// Media directory
	mediaDir := os.Getenv("MEDIA_DIR")
	if mediaDir == "" {
		mediaDir = filepath.Join(os.TempDir(), "telepost")
	}

	// Admin chat id
	var adminID int64
	if val := os.Getenv("ADMIN_ID"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			adminID = parsed
		}
	}

	// Monitored channels, comma-separated, @ optional
	var sources []string
	for _, s := range strings.Split(os.Getenv("SOURCE_CHANNELS"), ",") {
		s = strings.TrimPrefix(strings.TrimSpace(s), "@")
		if s != "" {
			sources = append(sources, s)
		}
	}

	janitorSchedule := os.Getenv("JANITOR_SCHEDULE")
	if janitorSchedule == "" {
		janitorSchedule = "0 4 * * *"
	}

	return &Config{
		Telegram: TelegramConfig{
			BotToken:       os.Getenv("BOT_TOKEN"),
			AdminID:        adminID,
			TargetChannel:  os.Getenv("TARGET_CHANNEL"),
			SourceChannels: sources,
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("OPENAI_MODEL"),
		},
		Pipeline: PipelineConfig{
			Debounce:        durationFromEnv("DEBOUNCE_SECONDS", 10*time.Second),
			DelayOffset:     durationFromEnv("DELAY_MINUTES", 60*time.Minute),
			PollInterval:    durationFromEnv("POLL_SECONDS", 30*time.Second),
			Retention:       durationFromEnv("RETENTION_HOURS", 24*time.Hour),
			JanitorSchedule: janitorSchedule,
			MediaDir:        mediaDir,
			StatsDBPath:     statsDBPath,
			Footer:          os.Getenv("POST_FOOTER"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// durationFromEnv reads an integer env var in the unit its name implies
func durationFromEnv(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	switch {
	case strings.HasSuffix(key, "_SECONDS"):
		return time.Duration(parsed) * time.Second
	case strings.HasSuffix(key, "_MINUTES"):
		return time.Duration(parsed) * time.Minute
	case strings.HasSuffix(key, "_HOURS"):
		return time.Duration(parsed) * time.Hour
	}
	return def
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return &ConfigError{Field: "BOT_TOKEN", Message: "required"}
	}
	if c.Telegram.AdminID == 0 {
		return &ConfigError{Field: "ADMIN_ID", Message: "required"}
	}
	if c.Telegram.TargetChannel == "" {
		return &ConfigError{Field: "TARGET_CHANNEL", Message: "required"}
	}
	if len(c.Telegram.SourceChannels) == 0 {
		return &ConfigError{Field: "SOURCE_CHANNELS", Message: "required"}
	}
	if c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
