// Package main provides the Vibez dashboard backend entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"vibez/internal/auth"
	"vibez/internal/core"
	httpserver "vibez/internal/http"
	"vibez/internal/library"
	"vibez/internal/llm"
	"vibez/internal/player"
	"vibez/internal/spotify"
	"vibez/internal/store"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vibez",
	Short: "Vibez - Spotify dashboard backend",
	Long: `Vibez is the backend for a Spotify web dashboard: it relays the PKCE
token exchange, keeps playback state synchronized, assembles the library
view, and generates AI music suggestions.`,
	RunE: runVibez,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-redirect-url", "", "OAuth redirect URL")
	rootCmd.PersistentFlags().String("session-path", "", "session database path")
	rootCmd.PersistentFlags().String("llm-provider", "none", "LLM provider (openai, anthropic, ollama, none)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")
	rootCmd.PersistentFlags().String("llm-api-key", "", "LLM API key")
	rootCmd.PersistentFlags().String("llm-base-url", "", "LLM base URL (ollama)")
	rootCmd.PersistentFlags().String("server-host", "", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Int("relay-rate-limit", 30, "relay requests per client per minute")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("VIBEZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if url := viper.GetString("spotify-redirect-url"); url != "" {
		cfg.Spotify.RedirectURL = url
	}

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	cfg.Server.Port = viper.GetInt("server-port")
	if limit := viper.GetInt("relay-rate-limit"); limit > 0 {
		cfg.Server.RelayRateLimit = limit
	}

	if path := viper.GetString("session-path"); path != "" {
		cfg.Storage.SessionPath = path
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

const noneProvider = "none"

func runVibez(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Vibez",
		zap.String("llm_provider", config.LLM.Provider))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	sessions, err := store.OpenSessionStore(config.Storage.SessionPath)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer sessions.Close()

	session := auth.NewSession(&config.Spotify, sessions, logger.Named("auth"))
	if err := session.Init(); err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	spotifyClient := spotify.NewClient(&config.Spotify, session, logger.Named("spotify"))

	seen := store.NewSeenTracks(10000, 0.001)
	libraryService := library.NewService(spotifyClient, seen, logger.Named("library"))

	generator, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	engine := player.NewEngine(spotifyClient, session, &config.Player, logger.Named("player"))

	httpServer := httpserver.NewServer(config, session, engine, libraryService, generator, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return engine.Run(gCtx)
	})

	logger.Info("Vibez started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Vibez stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Vibez stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.RedirectURL == "" {
		return fmt.Errorf("spotify redirect URL is required")
	}

	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		if config.LLM.APIKey == "" && config.LLM.Provider != "ollama" {
			return fmt.Errorf("LLM API key is required for provider: %s", config.LLM.Provider)
		}
	}

	return nil
}
