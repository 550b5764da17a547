package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"vibez/internal/spotify"
)

const embedCacheSize = 256

// embedCache keeps oEmbed documents for recently requested tracks so
// repeated dashboard renders do not hammer the upstream.
type embedCache struct {
	cache *lru.Cache[string, []byte]
}

func newEmbedCache(size int) *embedCache {
	cache, _ := lru.New[string, []byte](size)
	return &embedCache{cache: cache}
}

func (e *embedCache) get(trackID string) ([]byte, bool) {
	return e.cache.Get(trackID)
}

func (e *embedCache) put(trackID string, doc []byte) {
	e.cache.Add(trackID, doc)
}

type exchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

type exchangeResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// tokenErrorMessage pulls the rejection reason out of the token endpoint's
// flat error body: {"error":"invalid_grant","error_description":"..."}.
// The caller needs it to tell a replayed code from any other failure.
func tokenErrorMessage(body []byte) string {
	var upstream struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &upstream) != nil {
		return ""
	}
	if upstream.ErrorDescription != "" {
		return upstream.ErrorDescription
	}
	return upstream.Error
}

// handleTokenExchange relays the authorization code and verifier to the
// accounts token endpoint. The browser never talks to that endpoint
// directly; the relay keeps the exchange on a single origin.
func (s *Server) handleTokenExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Code == "" || req.CodeVerifier == "" {
		s.metrics.RelayExchangesTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, http.StatusBadRequest, "code and code_verifier are required")
		return
	}

	// A flow started through /api/auth/login has its verifier on record;
	// a submission that disagrees with it cannot belong to that flow.
	if stored, pending, err := s.session.Verifier(); err == nil && pending && stored != req.CodeVerifier {
		s.metrics.RelayExchangesTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, http.StatusBadRequest, "code_verifier does not match the pending login")
		return
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", s.config.Spotify.ClientID)
	form.Set("code", req.Code)
	form.Set("redirect_uri", s.config.Spotify.RedirectURL)
	form.Set("code_verifier", req.CodeVerifier)

	tokenURL := s.config.Spotify.AccountsURL + "/api/token"
	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		s.metrics.RelayExchangesTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusInternalServerError, "failed to build exchange request")
		return
	}
	upstreamReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.upstream.Do(upstreamReq)
	if err != nil {
		s.logger.Error("Token exchange failed", zap.Error(err))
		s.metrics.RelayExchangesTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusBadGateway, "token endpoint unreachable")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.metrics.RelayExchangesTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusBadGateway, "failed to read token response")
		return
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("Token exchange rejected upstream",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		s.metrics.RelayExchangesTotal.WithLabelValues("rejected").Inc()
		message := "token exchange rejected"
		if upstream := tokenErrorMessage(body); upstream != "" {
			message = "token exchange rejected: " + upstream
		}
		writeJSONError(w, http.StatusBadGateway, message)
		return
	}

	var token exchangeResponse
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		s.metrics.RelayExchangesTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusBadGateway, "malformed token response")
		return
	}

	oauthToken := &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
	}
	if token.ExpiresIn > 0 {
		oauthToken.Expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	if err := s.session.CompleteFlow(oauthToken); err != nil {
		s.logger.Error("Failed to persist exchanged token", zap.Error(err))
		s.metrics.RelayExchangesTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusInternalServerError, "failed to store session")
		return
	}

	s.metrics.RelayExchangesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, token)
}

// handleEmbed proxies the public oEmbed document for a track, so the
// dashboard can render embedded players without cross-origin requests.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("trackId")
	if raw == "" {
		writeJSONError(w, http.StatusBadRequest, "trackId is required")
		return
	}

	trackID, err := spotify.ExtractTrackID(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid trackId")
		return
	}

	if doc, ok := s.embeds.get(trackID); ok {
		s.metrics.EmbedLookupsTotal.WithLabelValues("hit").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(doc)
		return
	}

	embedURL := s.config.Spotify.OEmbedURL + "?url=" + url.QueryEscape("spotify:track:"+trackID)
	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, embedURL, nil)
	if err != nil {
		s.metrics.EmbedLookupsTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusInternalServerError, "failed to build embed request")
		return
	}

	resp, err := s.upstream.Do(upstreamReq)
	if err != nil {
		s.logger.Error("Embed lookup failed", zap.String("track_id", trackID), zap.Error(err))
		s.metrics.EmbedLookupsTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusBadGateway, "embed endpoint unreachable")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		s.logger.Warn("Embed lookup rejected upstream",
			zap.String("track_id", trackID),
			zap.Int("status", resp.StatusCode))
		s.metrics.EmbedLookupsTotal.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusBadGateway, "embed lookup failed")
		return
	}

	s.embeds.put(trackID, body)
	s.metrics.EmbedLookupsTotal.WithLabelValues("miss").Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
