package spotify

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotAuthenticated is returned when a request is attempted without an
// access token in the session.
var ErrNotAuthenticated = errors.New("no access token available")

// ErrorKind classifies Web API failures so callers can branch without
// matching message substrings.
type ErrorKind int

const (
	// KindAPIError is a generic non-2xx response with a message.
	KindAPIError ErrorKind = iota
	// KindNotFound is a 404 on a resource that was expected to exist.
	KindNotFound
	// KindSessionExpired means the token was rejected; the session must be
	// cleared and the user re-authorized.
	KindSessionExpired
	// KindNoActiveDevice means a playback command had no reachable output
	// device (structured reason NO_ACTIVE_DEVICE).
	KindNoActiveDevice
	// KindPremiumRequired means the account cannot use playback control.
	KindPremiumRequired
	// KindRateLimited is a 429; RetryAfter carries the upstream hint.
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindSessionExpired:
		return "session_expired"
	case KindNoActiveDevice:
		return "no_active_device"
	case KindPremiumRequired:
		return "premium_required"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "api_error"
	}
}

// APIError is the typed failure produced by the request wrapper.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Endpoint   string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Kind == KindNotFound {
		return fmt.Sprintf("resource not found: %s", e.Endpoint)
	}
	return fmt.Sprintf("spotify api error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
