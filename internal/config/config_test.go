package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "token"
	cfg.Notify.TelegramChatID = "chat"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"
	return cfg
}

func TestValidateDefaultsWithSecrets(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config failed validation: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validTestConfig()
	cfg.Strategy.EntryThresholdPct = 0
	cfg.Feed.PollInterval.Duration = 0
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"entry_threshold_pct", "poll_interval", "log_level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing mention of %s", msg, want)
		}
	}
}

func TestValidateThresholdOrdering(t *testing.T) {
	cfg := validTestConfig()
	cfg.Strategy.EntryThresholdPct = 9.0
	cfg.Strategy.MaxSpreadPct = 8.0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when entry threshold exceeds max spread")
	}
}

func TestValidateRequiresSinkCredentials(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error: sinks enabled with no credentials")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_TOKEN") {
		t.Errorf("error should name the missing telegram token: %v", err)
	}

	// Disabling both sinks makes credentials optional.
	cfg.Notify.TelegramEnabled = false
	cfg.Notify.DiscordEnabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with sinks disabled: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy.EntryThresholdPct != 2.0 {
		t.Errorf("entry threshold = %v, want default 2.0", cfg.Strategy.EntryThresholdPct)
	}
	if cfg.Feed.PollInterval.Duration != 30*time.Second {
		t.Errorf("poll interval = %v, want 30s", cfg.Feed.PollInterval.Duration)
	}
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spreadbot.toml")
	data := `
log_level = "debug"

[strategy]
entry_threshold_pct = 3.5
cooldown = "10m"

[feed]
poll_interval = "15s"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SPREADBOT_STRATEGY_ENTRY_THRESHOLD_PCT", "4.0")
	t.Setenv("SPREADBOT_NOTIFY_TELEGRAM_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Env beats file, file beats defaults.
	if cfg.Strategy.EntryThresholdPct != 4.0 {
		t.Errorf("entry threshold = %v, want env override 4.0", cfg.Strategy.EntryThresholdPct)
	}
	if cfg.Strategy.Cooldown.Duration != 10*time.Minute {
		t.Errorf("cooldown = %v, want 10m from file", cfg.Strategy.Cooldown.Duration)
	}
	if cfg.Feed.PollInterval.Duration != 15*time.Second {
		t.Errorf("poll interval = %v, want 15s from file", cfg.Feed.PollInterval.Duration)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Notify.TelegramToken != "env-token" {
		t.Errorf("telegram token = %q, want env-token", cfg.Notify.TelegramToken)
	}
}
