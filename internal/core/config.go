package core

import (
	"time"
)

type Config struct {
	Spotify SpotifyConfig
	Server  ServerConfig
	Player  PlayerConfig
	LLM     LLMConfig
	Storage StorageConfig
	Log     LogConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AccountsURL  string
	APIBaseURL   string
	OEmbedURL    string
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RelayRateLimit int
}

type PlayerConfig struct {
	PollInterval time.Duration
	TickInterval time.Duration
	SettleDelay  time.Duration
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type StorageConfig struct {
	SessionPath string
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: "http://localhost:8080/dashboard",
			AccountsURL: "https://accounts.spotify.com",
			APIBaseURL:  "https://api.spotify.com/v1",
			OEmbedURL:   "https://open.spotify.com/oembed",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			RelayRateLimit: 30,
		},
		Player: PlayerConfig{
			PollInterval: 5 * time.Second,
			TickInterval: time.Second,
			SettleDelay:  500 * time.Millisecond,
		},
		LLM: LLMConfig{
			Provider: "none",
		},
		Storage: StorageConfig{
			SessionPath: "./vibez_session.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
