package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"vibez/internal/core"
)

type staticTokens string

func (s staticTokens) AccessToken() (string, bool) {
	return string(s), s != ""
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := &core.SpotifyConfig{APIBaseURL: server.URL}
	client := NewClient(config, staticTokens("test-token"), zap.NewNop())
	return client, server
}

func TestRequest_NoContent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	raw, err := client.Request(context.Background(), "PUT", "/me/player/pause", nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if raw != nil {
		t.Errorf("Request() on 204 should return nil body, got %s", raw)
	}
}

func TestRequest_NotFoundOnNowPlaying(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	raw, err := client.Request(context.Background(), "GET", "/me/player/currently-playing", nil)
	if err != nil {
		t.Fatalf("Request() on now-playing 404 should not error, got: %v", err)
	}
	if raw != nil {
		t.Errorf("Request() on now-playing 404 should return nil body, got %s", raw)
	}
}

func TestRequest_NotFoundElsewhere(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Request(context.Background(), "GET", "/me/playlists", nil)
	if !IsKind(err, KindNotFound) {
		t.Errorf("Request() on 404 = %v, expected KindNotFound", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Endpoint != "/me/playlists" {
		t.Errorf("APIError.Endpoint = %q, expected /me/playlists", apiErr.Endpoint)
	}
}

func TestRequest_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
	}))

	_, err := client.Request(context.Background(), "GET", "/me", nil)
	if !IsKind(err, KindSessionExpired) {
		t.Errorf("Request() on 401 = %v, expected KindSessionExpired", err)
	}
}

func TestRequest_NoActiveDeviceFromStructuredBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"status":403,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`))
	}))

	_, err := client.Request(context.Background(), "PUT", "/me/player/play", nil)
	if !IsKind(err, KindNoActiveDevice) {
		t.Errorf("Request() = %v, expected KindNoActiveDevice", err)
	}
}

func TestRequest_RateLimited(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Request(context.Background(), "GET", "/me", nil)
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("Request() = %v, expected KindRateLimited", err)
	}

	var apiErr *APIError
	errors.As(err, &apiErr)
	if apiErr.RetryAfter != 3*time.Second {
		t.Errorf("APIError.RetryAfter = %v, expected 3s", apiErr.RetryAfter)
	}
}

func TestRequest_GenericErrorMessageExtraction(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"status":400,"message":"invalid seed"}}`))
	}))

	_, err := client.Request(context.Background(), "GET", "/recommendations", nil)
	if !IsKind(err, KindAPIError) {
		t.Fatalf("Request() = %v, expected KindAPIError", err)
	}

	var apiErr *APIError
	errors.As(err, &apiErr)
	if apiErr.Message != "invalid seed" {
		t.Errorf("APIError.Message = %q, expected message from structured body", apiErr.Message)
	}
}

func TestRequest_EmptySuccessBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	raw, err := client.Request(context.Background(), "GET", "/me", nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if raw != nil {
		t.Errorf("Request() on empty 200 should return nil body, got %s", raw)
	}
}

func TestRequest_SendsBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))

	if _, err := client.Request(context.Background(), "GET", "/me", nil); err != nil {
		t.Fatalf("Request() error: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization header = %q, expected Bearer test-token", gotAuth)
	}
}

func TestRequest_NotAuthenticated(t *testing.T) {
	config := &core.SpotifyConfig{APIBaseURL: "http://127.0.0.1:0"}
	client := NewClient(config, staticTokens(""), zap.NewNop())

	_, err := client.Request(context.Background(), "GET", "/me", nil)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Request() without token = %v, expected ErrNotAuthenticated", err)
	}
}

func TestCurrentlyPlaying_ParsesSnapshot(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"item": {
				"id": "track1",
				"name": "Song",
				"artists": [{"id":"a1","name":"Artist One"},{"id":"a2","name":"Artist Two"}],
				"album": {"id":"al1","name":"Album"},
				"duration_ms": 200000
			},
			"is_playing": true,
			"progress_ms": 30000,
			"device": {"volume_percent": 65}
		}`))
	}))

	now, err := client.CurrentlyPlaying(context.Background())
	if err != nil {
		t.Fatalf("CurrentlyPlaying() error: %v", err)
	}

	if now.Track == nil {
		t.Fatal("CurrentlyPlaying() Track should not be nil")
	}
	if now.Track.ID != "track1" || now.Track.Name != "Song" {
		t.Errorf("unexpected track: %+v", now.Track)
	}
	if len(now.Track.Artists) != 2 || now.Track.Artists[0] != "Artist One" {
		t.Errorf("unexpected artists: %v", now.Track.Artists)
	}
	if !now.IsPlaying || now.ProgressMs != 30000 {
		t.Errorf("unexpected playback flags: playing=%v progress=%d", now.IsPlaying, now.ProgressMs)
	}
	if now.DeviceVolumePercent != 65 {
		t.Errorf("DeviceVolumePercent = %d, expected 65", now.DeviceVolumePercent)
	}
}

func TestCurrentlyPlaying_NothingActive(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	now, err := client.CurrentlyPlaying(context.Background())
	if err != nil {
		t.Fatalf("CurrentlyPlaying() error: %v", err)
	}
	if now.Track != nil {
		t.Errorf("CurrentlyPlaying() Track should be nil when nothing is active")
	}
	if now.DeviceVolumePercent != -1 {
		t.Errorf("DeviceVolumePercent = %d, expected -1 when unknown", now.DeviceVolumePercent)
	}
}

func TestDevices_ParsesList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"devices":[
			{"id":"d1","name":"Desktop","type":"Computer","is_active":true,"volume_percent":80},
			{"id":"d2","name":"Phone","type":"Smartphone","is_active":false,"volume_percent":50}
		]}`))
	}))

	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Devices() returned %d devices, expected 2", len(devices))
	}
	if !devices[0].Active || devices[1].Active {
		t.Errorf("unexpected active flags: %+v", devices)
	}
}

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare ID", "6rqhFgbbKwnb9MLmUQDhG6", "6rqhFgbbKwnb9MLmUQDhG6", false},
		{"spotify URI", "spotify:track:6rqhFgbbKwnb9MLmUQDhG6", "6rqhFgbbKwnb9MLmUQDhG6", false},
		{"open URL", "https://open.spotify.com/track/6rqhFgbbKwnb9MLmUQDhG6", "6rqhFgbbKwnb9MLmUQDhG6", false},
		{"URL with query", "https://open.spotify.com/track/6rqhFgbbKwnb9MLmUQDhG6?si=xyz", "6rqhFgbbKwnb9MLmUQDhG6", false},
		{"not a track", "https://open.spotify.com/album/abc", "", true},
		{"garbage", "not a track at all", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTrackID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractTrackID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractTrackID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
