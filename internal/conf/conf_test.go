package conf

import (
	"testing"
	"time"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "777")
	t.Setenv("TARGET_CHANNEL", "@mychannel")
	t.Setenv("SOURCE_CHANNELS", "@technews, othernews ,")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadFromEnv(t *testing.T) {
	validEnv(t)
	t.Setenv("DEBOUNCE_SECONDS", "5")
	t.Setenv("DELAY_MINUTES", "90")

	cfg := LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Telegram.AdminID != 777 {
		t.Errorf("Expected admin id 777, got %d", cfg.Telegram.AdminID)
	}
	// Usernames are normalized: @ stripped, blanks dropped
	if len(cfg.Telegram.SourceChannels) != 2 {
		t.Fatalf("Expected 2 sources, got %v", cfg.Telegram.SourceChannels)
	}
	if cfg.Telegram.SourceChannels[0] != "technews" || cfg.Telegram.SourceChannels[1] != "othernews" {
		t.Errorf("Unexpected sources: %v", cfg.Telegram.SourceChannels)
	}
	if cfg.Pipeline.Debounce != 5*time.Second {
		t.Errorf("Expected 5s debounce, got %v", cfg.Pipeline.Debounce)
	}
	if cfg.Pipeline.DelayOffset != 90*time.Minute {
		t.Errorf("Expected 90m delay, got %v", cfg.Pipeline.DelayOffset)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	validEnv(t)

	cfg := LoadFromEnv()
	if cfg.Pipeline.Debounce != 10*time.Second {
		t.Errorf("Expected default 10s debounce, got %v", cfg.Pipeline.Debounce)
	}
	if cfg.Pipeline.PollInterval != 30*time.Second {
		t.Errorf("Expected default 30s poll, got %v", cfg.Pipeline.PollInterval)
	}
	if cfg.Pipeline.Retention != 24*time.Hour {
		t.Errorf("Expected default 24h retention, got %v", cfg.Pipeline.Retention)
	}
	if cfg.Pipeline.JanitorSchedule != "0 4 * * *" {
		t.Errorf("Expected default janitor schedule, got %q", cfg.Pipeline.JanitorSchedule)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	validEnv(t)
	t.Setenv("BOT_TOKEN", "")

	cfg := LoadFromEnv()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("Expected ConfigError, got %T", err)
	}
	if cfgErr.Field != "BOT_TOKEN" {
		t.Errorf("Expected BOT_TOKEN error, got %s", cfgErr.Field)
	}
}

func TestValidate_MissingSources(t *testing.T) {
	validEnv(t)
	t.Setenv("SOURCE_CHANNELS", " , ")

	cfg := LoadFromEnv()
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected validation error for empty source list")
	}
}
