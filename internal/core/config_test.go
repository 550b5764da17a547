package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Spotify.AccountsURL != "https://accounts.spotify.com" {
		t.Errorf("AccountsURL = %q", cfg.Spotify.AccountsURL)
	}
	if cfg.Spotify.APIBaseURL != "https://api.spotify.com/v1" {
		t.Errorf("APIBaseURL = %q", cfg.Spotify.APIBaseURL)
	}
	if cfg.Spotify.OEmbedURL != "https://open.spotify.com/oembed" {
		t.Errorf("OEmbedURL = %q", cfg.Spotify.OEmbedURL)
	}

	if cfg.Player.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, expected 5s", cfg.Player.PollInterval)
	}
	if cfg.Player.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, expected 1s", cfg.Player.TickInterval)
	}
	if cfg.Player.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v, expected 500ms", cfg.Player.SettleDelay)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, expected 8080", cfg.Server.Port)
	}
	if cfg.Server.RelayRateLimit != 30 {
		t.Errorf("RelayRateLimit = %d, expected 30", cfg.Server.RelayRateLimit)
	}

	if cfg.LLM.Provider != "none" {
		t.Errorf("LLM.Provider = %q, expected none", cfg.LLM.Provider)
	}
	if cfg.Storage.SessionPath == "" {
		t.Error("SessionPath should have a default")
	}
}
