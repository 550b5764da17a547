// Package http exposes the dashboard backend: the token-exchange relay,
// the oEmbed proxy, playback controls, and the library view, plus the
// operational endpoints.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"vibez/internal/core"
	"vibez/internal/flood"
	"vibez/internal/player"
)

// AuthFlow is the slice of the auth session the handlers drive.
type AuthFlow interface {
	BeginFlow() (string, error)
	Verifier() (string, bool, error)
	CompleteFlow(token *oauth2.Token) error
	Authenticated() bool
	Clear() error
}

// Player is the playback engine surface the control endpoints call.
type Player interface {
	Snapshot() core.PlaybackState
	State() player.State
	TogglePlay(ctx context.Context) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
}

// Library is the library view the dashboard reads.
type Library interface {
	Snapshot(ctx context.Context) (*core.LibrarySnapshot, error)
	MoodSearch(ctx context.Context, mood string) ([]core.Track, error)
}

type Server struct {
	config    *core.Config
	logger    *zap.Logger
	session   AuthFlow
	player    Player
	library   Library
	generator core.RecommendationGenerator

	server    *http.Server
	metrics   *Metrics
	floodgate *flood.Floodgate
	upstream  *http.Client
	embeds    *embedCache
}

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RelayExchangesTotal *prometheus.CounterVec
	EmbedLookupsTotal   *prometheus.CounterVec
	CommandsTotal       *prometheus.CounterVec
	LLMCallsTotal       *prometheus.CounterVec
	SessionActive       prometheus.Gauge
}

func newMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibez_requests_total",
				Help: "Total number of API requests served",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vibez_request_duration_seconds",
				Help:    "Time spent serving API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RelayExchangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibez_relay_exchanges_total",
				Help: "Total number of token exchange attempts",
			},
			[]string{"status"},
		),
		EmbedLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibez_embed_lookups_total",
				Help: "Total number of oEmbed proxy lookups",
			},
			[]string{"result"},
		),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibez_playback_commands_total",
				Help: "Total number of playback commands",
			},
			[]string{"command", "status"},
		),
		LLMCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibez_llm_calls_total",
				Help: "Total number of LLM generation calls",
			},
			[]string{"operation", "status"},
		),
		SessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vibez_session_active",
				Help: "Whether an auth session is currently active",
			},
		),
	}

	metrics.registry.MustRegister(
		metrics.RequestsTotal,
		metrics.RequestDuration,
		metrics.RelayExchangesTotal,
		metrics.EmbedLookupsTotal,
		metrics.CommandsTotal,
		metrics.LLMCallsTotal,
		metrics.SessionActive,
	)

	return metrics
}

func NewServer(config *core.Config, session AuthFlow, playerEngine Player, library Library, generator core.RecommendationGenerator, logger *zap.Logger) *Server {
	s := &Server{
		config:    config,
		logger:    logger,
		session:   session,
		player:    playerEngine,
		library:   library,
		generator: generator,
		metrics:   newMetrics(),
		floodgate: flood.New(config.Server.RelayRateLimit),
		upstream:  &http.Client{Timeout: 15 * time.Second},
		embeds:    newEmbedCache(embedCacheSize),
	}

	s.server = createHTTPServer(&config.Server, s.routes())
	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/spotify", s.limited("relay", s.handleTokenExchange))
	mux.HandleFunc("GET /api/spotify-embed", s.limited("embed", s.handleEmbed))

	mux.HandleFunc("GET /api/auth/login", s.instrument("login", s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.instrument("logout", s.handleLogout))

	mux.HandleFunc("GET /api/player", s.instrument("player", s.handlePlayerState))
	mux.HandleFunc("POST /api/player/toggle", s.command("toggle", s.player.TogglePlay))
	mux.HandleFunc("POST /api/player/play", s.command("play", s.player.Play))
	mux.HandleFunc("POST /api/player/pause", s.command("pause", s.player.Pause))
	mux.HandleFunc("POST /api/player/next", s.command("next", s.player.NextTrack))
	mux.HandleFunc("POST /api/player/previous", s.command("previous", s.player.PreviousTrack))
	mux.HandleFunc("PUT /api/player/seek", s.instrument("seek", s.handleSeek))
	mux.HandleFunc("PUT /api/player/volume", s.instrument("volume", s.handleVolume))

	mux.HandleFunc("GET /api/library", s.instrument("library", s.handleLibrary))
	mux.HandleFunc("GET /api/mood-search", s.instrument("mood-search", s.handleMoodSearch))

	mux.HandleFunc("POST /api/suggest/mood", s.instrument("suggest-mood", s.handleSuggestMood))
	mux.HandleFunc("POST /api/suggest/playlist", s.instrument("suggest-playlist", s.handleSuggestPlaylist))
	mux.HandleFunc("GET /api/suggest/analysis", s.instrument("suggest-analysis", s.handleAnalysis))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"vibez"}`))
	})

	mux.HandleFunc("/readyz", s.handleReadyz)

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", homeHandler(s.logger))

	return mux
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ready","service":"vibez","player":%q,"authenticated":%t}`,
		s.player.State(), s.session.Authenticated())
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Vibez</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 Vibez</h1>
    <p>Spotify Dashboard Backend</p>

    <h2>Endpoints</h2>
    <div class="endpoint">🔑 <a href="/api/auth/login">Login</a> - Start the auth flow</div>
    <div class="endpoint">▶️ /api/player - Playback state and controls</div>
    <div class="endpoint">📚 /api/library - Library snapshot</div>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

// instrument wraps a handler with request counting and timing, and keeps
// the session gauge current.
func (s *Server) instrument(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		handler(recorder, r)

		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		if s.session.Authenticated() {
			s.metrics.SessionActive.Set(1)
		} else {
			s.metrics.SessionActive.Set(0)
		}
	}
}

// limited adds per-client rate limiting on top of instrumentation, for the
// endpoints reachable without a session.
func (s *Server) limited(route string, handler http.HandlerFunc) http.HandlerFunc {
	return s.instrument(route, func(w http.ResponseWriter, r *http.Request) {
		if !s.floodgate.Allow(clientKey(r)) {
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		handler(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
		s.floodgate.Stop()
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
