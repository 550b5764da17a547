// Package spotify provides the authenticated Web API client. Every
// downstream operation passes through the Request wrapper, which maps HTTP
// outcomes onto a stable typed error taxonomy.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"vibez/internal/core"
)

const requestTimeout = 10 * time.Second

// nowPlayingEndpoint is the one resource where a 404 means "nothing
// currently active" rather than an error.
const nowPlayingEndpoint = "/me/player/currently-playing"

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	AccessToken() (string, bool)
}

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	tokens TokenSource
	http   *http.Client
}

func NewClient(config *core.SpotifyConfig, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
		tokens: tokens,
		http:   &http.Client{Timeout: requestTimeout},
	}
}

// errorEnvelope is the structured error body the Web API returns:
// {"error":{"status":403,"message":"...","reason":"NO_ACTIVE_DEVICE"}}.
// The token endpoint uses the flat error/error_description shape instead.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Request performs an authenticated call against the Web API.
//
// Behavior: 204 and an empty 2xx body yield (nil, nil); a 404 on the
// currently-playing resource yields (nil, nil); any other failure yields a
// typed *APIError. A 2xx body is returned as raw JSON.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	token, ok := c.tokens.AccessToken()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.APIBaseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil

	case resp.StatusCode == http.StatusNotFound:
		if strings.Contains(endpoint, nowPlayingEndpoint) {
			return nil, nil
		}
		return nil, &APIError{
			Kind:       KindNotFound,
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
		}

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(data) == 0 {
			return nil, nil
		}
		return json.RawMessage(data), nil

	default:
		return nil, c.classifyError(resp, endpoint, data)
	}
}

// classifyError maps a non-2xx response onto an APIError kind using the
// structured error body, never message substrings.
func (c *Client) classifyError(resp *http.Response, endpoint string, data []byte) *APIError {
	apiErr := &APIError{
		Kind:       KindAPIError,
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Message:    resp.Status,
	}

	var envelope errorEnvelope
	if len(data) > 0 && json.Unmarshal(data, &envelope) == nil {
		switch {
		case envelope.Error.Message != "":
			apiErr.Message = envelope.Error.Message
		case envelope.ErrorDescription != "":
			apiErr.Message = envelope.ErrorDescription
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr.Kind = KindSessionExpired
	case http.StatusForbidden:
		switch envelope.Error.Reason {
		case "NO_ACTIVE_DEVICE":
			apiErr.Kind = KindNoActiveDevice
		case "PREMIUM_REQUIRED":
			apiErr.Kind = KindPremiumRequired
		}
	case http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	c.logger.Debug("Web API request failed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.String("kind", apiErr.Kind.String()))

	return apiErr
}

// get unmarshals a GET response into out. A (nil, nil) wrapper result
// leaves out untouched and returns false.
func (c *Client) get(ctx context.Context, endpoint string, out any) (bool, error) {
	raw, err := c.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return true, nil
}
