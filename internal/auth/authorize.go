package auth

import (
	"net/url"
	"strings"

	"vibez/internal/core"
)

// Scopes is the fixed scope list requested during authorization.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-library-read",
	"user-read-currently-playing",
	"user-read-recently-played",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-top-read",
	"user-modify-playback-state",
	"user-read-playback-state",
}

// AuthorizeURL builds the authorization endpoint redirect URL for the
// given challenge. The continuation arrives as a `code` query parameter
// on the redirect URI.
func AuthorizeURL(config *core.SpotifyConfig, challenge string) string {
	params := url.Values{}
	params.Set("client_id", config.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", config.RedirectURL)
	params.Set("scope", strings.Join(Scopes, " "))
	params.Set("code_challenge_method", "S256")
	params.Set("code_challenge", challenge)

	return config.AccountsURL + "/authorize?" + params.Encode()
}
