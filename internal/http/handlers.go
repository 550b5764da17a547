package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vibez/internal/player"
	"vibez/internal/spotify"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAPIError maps the client error taxonomy onto HTTP statuses for the
// dashboard.
func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, spotify.ErrNotAuthenticated):
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, player.ErrNoActiveDevice):
		writeJSONError(w, http.StatusConflict, err.Error())
	case spotify.IsKind(err, spotify.KindSessionExpired):
		writeJSONError(w, http.StatusUnauthorized, "session expired, please log in again")
	case spotify.IsKind(err, spotify.KindNoActiveDevice):
		writeJSONError(w, http.StatusConflict, "no active playback device")
	case spotify.IsKind(err, spotify.KindPremiumRequired):
		writeJSONError(w, http.StatusForbidden, "premium subscription required")
	case spotify.IsKind(err, spotify.KindRateLimited):
		writeJSONError(w, http.StatusTooManyRequests, "rate limited upstream")
	case spotify.IsKind(err, spotify.KindNotFound):
		writeJSONError(w, http.StatusNotFound, "resource not found")
	default:
		writeJSONError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	redirect, err := s.session.BeginFlow()
	if err != nil {
		s.logger.Error("Failed to start auth flow", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to start auth flow")
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if err := s.session.Clear(); err != nil {
		s.logger.Error("Failed to clear session", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerState(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.player.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"state":    s.player.State().String(),
		"playback": snapshot,
	})
}

// command wraps a simple playback command as an instrumented handler.
func (s *Server) command(name string, fn func(ctx context.Context) error) http.HandlerFunc {
	return s.instrument(name, func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			s.metrics.CommandsTotal.WithLabelValues(name, "error").Inc()
			writeAPIError(w, err)
			return
		}

		s.metrics.CommandsTotal.WithLabelValues(name, "ok").Inc()
		writeJSON(w, http.StatusOK, s.player.Snapshot())
	})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	positionMs, err := strconv.Atoi(r.URL.Query().Get("position_ms"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "position_ms must be an integer")
		return
	}

	if err := s.player.Seek(r.Context(), positionMs); err != nil {
		s.metrics.CommandsTotal.WithLabelValues("seek", "error").Inc()
		writeAPIError(w, err)
		return
	}

	s.metrics.CommandsTotal.WithLabelValues("seek", "ok").Inc()
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	percent, err := strconv.Atoi(r.URL.Query().Get("volume_percent"))
	if err != nil || percent < 0 || percent > 100 {
		writeJSONError(w, http.StatusBadRequest, "volume_percent must be 0-100")
		return
	}

	if err := s.player.SetVolume(r.Context(), percent); err != nil {
		s.metrics.CommandsTotal.WithLabelValues("volume", "error").Inc()
		writeAPIError(w, err)
		return
	}

	s.metrics.CommandsTotal.WithLabelValues("volume", "ok").Inc()
	writeJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.library.Snapshot(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleMoodSearch(w http.ResponseWriter, r *http.Request) {
	mood := r.URL.Query().Get("mood")
	if mood == "" {
		writeJSONError(w, http.StatusBadRequest, "mood is required")
		return
	}

	tracks, err := s.library.MoodSearch(r.Context(), mood)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

func (s *Server) handleSuggestMood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mood string `json:"mood"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mood == "" {
		writeJSONError(w, http.StatusBadRequest, "mood is required")
		return
	}

	suggestions, err := s.generator.MoodRecommendations(r.Context(), req.Mood)
	if err != nil {
		s.metrics.LLMCallsTotal.WithLabelValues("mood", "error").Inc()
		s.logger.Warn("Mood suggestion generation failed", zap.Error(err))
		writeJSONError(w, http.StatusBadGateway, "suggestion generation failed")
		return
	}

	s.metrics.LLMCallsTotal.WithLabelValues("mood", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleSuggestPlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Theme == "" {
		writeJSONError(w, http.StatusBadRequest, "theme is required")
		return
	}

	suggestions, err := s.generator.ThemedPlaylist(r.Context(), req.Theme, req.Count)
	if err != nil {
		s.metrics.LLMCallsTotal.WithLabelValues("playlist", "error").Inc()
		s.logger.Warn("Playlist generation failed", zap.Error(err))
		writeJSONError(w, http.StatusBadGateway, "playlist generation failed")
		return
	}

	s.metrics.LLMCallsTotal.WithLabelValues("playlist", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// handleAnalysis feeds the user's recent listening into the model and
// returns the taste profile.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.library.Snapshot(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}

	tracks := append(snapshot.RecentlyPlayed, snapshot.LikedSongs...)
	if len(tracks) == 0 {
		writeJSONError(w, http.StatusNotFound, "no listening history to analyze")
		return
	}

	profile, err := s.generator.AnalyzeListeningHabits(r.Context(), tracks)
	if err != nil {
		s.metrics.LLMCallsTotal.WithLabelValues("analysis", "error").Inc()
		s.logger.Warn("Listening analysis failed", zap.Error(err))
		writeJSONError(w, http.StatusBadGateway, "analysis failed")
		return
	}

	s.metrics.LLMCallsTotal.WithLabelValues("analysis", "ok").Inc()
	writeJSON(w, http.StatusOK, profile)
}
