package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", " https://bot.example.com/ ")
	t.Setenv("BOT_NAME", "@stood_bot")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BackendURL != "https://bot.example.com" {
		t.Fatalf("unexpected backend URL: %q", cfg.BackendURL)
	}
	if cfg.BotName != "stood_bot" {
		t.Fatalf("expected @ to be trimmed from bot name, got %q", cfg.BotName)
	}
	if cfg.Production() {
		t.Fatalf("expected non-production default env")
	}
	if cfg.PageSize != 3 {
		t.Fatalf("unexpected default page size: %d", cfg.PageSize)
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Fatalf("unexpected default fetch timeout: %v", cfg.FetchTimeout)
	}
}

func TestLoadConfigRequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when BACKEND_URL is empty")
	}
}

func TestValidateProductionRequiresTokenAndBotName(t *testing.T) {
	cfg := Config{
		Env:           ProductionEnv,
		BackendURL:    "https://bot.example.com",
		PageSize:      3,
		FeedCacheSize: 1,
		Timezone:      "UTC",
	}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected production config without token to be invalid")
	}

	cfg.Token = "123:abc"
	cfg.BotName = "stood_bot"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	cfg := Config{
		BackendURL:    "https://bot.example.com",
		PageSize:      3,
		FeedCacheSize: 1,
		Timezone:      "Nowhere/Atlantis",
	}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown timezone to be invalid")
	}
}
