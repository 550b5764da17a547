package spotify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	spotifyTrackRegex = regexp.MustCompile(`(?:https?://)?(?:open\.)?spotify\.com/track/([a-zA-Z0-9]+)`)
	spotifyURIRegex   = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
	trackIDRegex      = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)
)

// ExtractTrackID accepts a bare track ID, a spotify: URI, or an
// open.spotify.com track URL and returns the track ID.
func ExtractTrackID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if trackIDRegex.MatchString(raw) {
		return raw, nil
	}

	if matches := spotifyURIRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return matches[1], nil
	}

	if matches := spotifyTrackRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return matches[1], nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid track reference: %w", err)
	}

	pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range pathParts {
		if part == "track" && i+1 < len(pathParts) {
			trackID := pathParts[i+1]
			if idx := strings.Index(trackID, "?"); idx != -1 {
				trackID = trackID[:idx]
			}
			return trackID, nil
		}
	}

	return "", fmt.Errorf("no track ID found in %q", raw)
}
