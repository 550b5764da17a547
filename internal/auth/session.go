package auth

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"vibez/internal/core"
)

// Fixed key names in the durable store.
const (
	KeyVerifier = "verifier"
	KeyToken    = "spotify_token"
)

// Store is the durable key/value storage the session persists into.
type Store interface {
	Get(name string) (string, bool, error)
	Put(name, value string) error
	Delete(name string) error
}

// Session is the explicit auth session object. The verifier exists only
// between redirect-out and a successful exchange; the token, once set, is
// the sole credential until it is cleared.
type Session struct {
	config *core.SpotifyConfig
	store  Store
	logger *zap.Logger

	mu    sync.RWMutex
	token *oauth2.Token

	changes chan struct{}
}

func NewSession(config *core.SpotifyConfig, store Store, logger *zap.Logger) *Session {
	return &Session{
		config:  config,
		store:   store,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}
}

// Init loads a previously persisted token, if any.
func (s *Session) Init() error {
	raw, ok, err := s.store.Get(KeyToken)
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if !ok {
		return nil
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		// A corrupt record is unrecoverable; drop it and force re-auth.
		s.logger.Warn("Stored token is corrupt, clearing", zap.Error(err))
		return s.store.Delete(KeyToken)
	}

	s.mu.Lock()
	s.token = &token
	s.mu.Unlock()
	s.notify()

	s.logger.Info("Restored auth session from store")
	return nil
}

// BeginFlow generates a fresh verifier, persists it, and returns the
// authorization redirect URL.
func (s *Session) BeginFlow() (string, error) {
	verifier := GenerateVerifier(DefaultVerifierLength)

	if err := s.store.Put(KeyVerifier, verifier); err != nil {
		return "", fmt.Errorf("failed to persist verifier: %w", err)
	}

	challenge := ChallengeS256(verifier)
	s.logger.Info("Auth flow started")

	return AuthorizeURL(s.config, challenge), nil
}

// Verifier returns the in-flight verifier, if a flow is pending.
func (s *Session) Verifier() (string, bool, error) {
	return s.store.Get(KeyVerifier)
}

// CompleteFlow stores the exchanged token and discards the verifier.
func (s *Session) CompleteFlow(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := s.store.Put(KeyToken, string(data)); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	if err := s.store.Delete(KeyVerifier); err != nil {
		s.logger.Warn("Failed to discard verifier", zap.Error(err))
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.notify()

	s.logger.Info("Auth flow completed")
	return nil
}

// AccessToken returns the current bearer credential.
func (s *Session) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil || s.token.AccessToken == "" {
		return "", false
	}
	return s.token.AccessToken, true
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	_, ok := s.AccessToken()
	return ok
}

// Clear destroys the session (logout or expiry discovered reactively).
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
	s.notify()

	if err := s.store.Delete(KeyToken); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if err := s.store.Delete(KeyVerifier); err != nil {
		return fmt.Errorf("failed to delete verifier: %w", err)
	}

	s.logger.Info("Auth session cleared")
	return nil
}

// Changes returns a channel that receives a coalesced signal whenever the
// token is set or cleared. The sync engine watches it to transition
// between polling and suspended.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
