package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"vibez/internal/core"
)

// Wire shapes for the Web API payloads we consume.

type imageObject struct {
	URL string `json:"url"`
}

type artistObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type albumObject struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Images  []imageObject  `json:"images"`
	Artists []artistObject `json:"artists"`
}

type trackObject struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []artistObject    `json:"artists"`
	Album        albumObject       `json:"album"`
	DurationMs   int               `json:"duration_ms"`
	ExternalURLs map[string]string `json:"external_urls"`
}

func convertTrack(t *trackObject) core.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	return core.Track{
		ID:         t.ID,
		Name:       t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		DurationMs: t.DurationMs,
		URL:        t.ExternalURLs["spotify"],
	}
}

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*core.UserProfile, error) {
	var payload struct {
		ID          string        `json:"id"`
		DisplayName string        `json:"display_name"`
		Product     string        `json:"product"`
		Images      []imageObject `json:"images"`
	}

	ok, err := c.get(ctx, "/me", &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("empty profile response")
	}

	profile := &core.UserProfile{
		ID:          payload.ID,
		DisplayName: payload.DisplayName,
		Product:     payload.Product,
	}
	if len(payload.Images) > 0 {
		profile.ImageURL = payload.Images[0].URL
	}
	return profile, nil
}

// CurrentlyPlaying fetches the authoritative playback snapshot. The
// returned NowPlaying has a nil Track when nothing is active (the upstream
// answers 204 or 404 in that case).
func (c *Client) CurrentlyPlaying(ctx context.Context) (*core.NowPlaying, error) {
	var payload struct {
		Item       *trackObject `json:"item"`
		IsPlaying  bool         `json:"is_playing"`
		ProgressMs int          `json:"progress_ms"`
		Device     *struct {
			VolumePercent int `json:"volume_percent"`
		} `json:"device"`
	}

	ok, err := c.get(ctx, nowPlayingEndpoint, &payload)
	if err != nil {
		return nil, err
	}

	now := &core.NowPlaying{DeviceVolumePercent: -1}
	if !ok || payload.Item == nil {
		return now, nil
	}

	track := convertTrack(payload.Item)
	now.Track = &track
	now.IsPlaying = payload.IsPlaying
	now.ProgressMs = payload.ProgressMs
	if payload.Device != nil {
		now.DeviceVolumePercent = payload.Device.VolumePercent
	}
	return now, nil
}

// Devices lists the user's playback devices.
func (c *Client) Devices(ctx context.Context) ([]core.Device, error) {
	var payload struct {
		Devices []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Type          string `json:"type"`
			IsActive      bool   `json:"is_active"`
			VolumePercent int    `json:"volume_percent"`
		} `json:"devices"`
	}

	ok, err := c.get(ctx, "/me/player/devices", &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	devices := make([]core.Device, 0, len(payload.Devices))
	for _, d := range payload.Devices {
		devices = append(devices, core.Device{
			ID:            d.ID,
			Name:          d.Name,
			Type:          d.Type,
			Active:        d.IsActive,
			VolumePercent: d.VolumePercent,
		})
	}
	return devices, nil
}

// Playlists fetches the user's playlists.
func (c *Client) Playlists(ctx context.Context, limit int) ([]core.Playlist, error) {
	var payload struct {
		Items []struct {
			ID     string        `json:"id"`
			Name   string        `json:"name"`
			Images []imageObject `json:"images"`
			Tracks struct {
				Total int `json:"total"`
			} `json:"tracks"`
		} `json:"items"`
	}

	ok, err := c.get(ctx, "/me/playlists?limit="+strconv.Itoa(limit), &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	playlists := make([]core.Playlist, 0, len(payload.Items))
	for _, item := range payload.Items {
		playlist := core.Playlist{
			ID:         item.ID,
			Name:       item.Name,
			TrackCount: item.Tracks.Total,
		}
		if len(item.Images) > 0 {
			playlist.ImageURL = item.Images[0].URL
		}
		playlists = append(playlists, playlist)
	}
	return playlists, nil
}

// RecentlyPlayed fetches the user's listening history.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]core.Track, error) {
	var payload struct {
		Items []struct {
			Track trackObject `json:"track"`
		} `json:"items"`
	}

	ok, err := c.get(ctx, "/me/player/recently-played?limit="+strconv.Itoa(limit), &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(payload.Items))
	for i := range payload.Items {
		tracks = append(tracks, convertTrack(&payload.Items[i].Track))
	}
	return tracks, nil
}

// SavedTracks fetches the user's liked songs.
func (c *Client) SavedTracks(ctx context.Context, limit int) ([]core.Track, error) {
	var payload struct {
		Items []struct {
			Track trackObject `json:"track"`
		} `json:"items"`
	}

	ok, err := c.get(ctx, "/me/tracks?limit="+strconv.Itoa(limit), &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(payload.Items))
	for i := range payload.Items {
		tracks = append(tracks, convertTrack(&payload.Items[i].Track))
	}
	return tracks, nil
}

// TopArtistIDs fetches the user's medium-term top artists, used as
// recommendation seeds.
func (c *Client) TopArtistIDs(ctx context.Context, limit int) ([]string, error) {
	var payload struct {
		Items []artistObject `json:"items"`
	}

	endpoint := fmt.Sprintf("/me/top/artists?limit=%d&time_range=medium_term", limit)
	ok, err := c.get(ctx, endpoint, &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	ids := make([]string, 0, len(payload.Items))
	for _, a := range payload.Items {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// RecommendationOptions selects seeds and tuning targets for the
// recommendations resource.
type RecommendationOptions struct {
	Limit         int
	SeedArtists   []string
	SeedGenres    []string
	TargetValence float64
	TargetEnergy  float64
	HasTargets    bool
}

// Recommendations fetches seeded track recommendations.
func (c *Client) Recommendations(ctx context.Context, opts RecommendationOptions) ([]core.Track, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(opts.Limit))
	if len(opts.SeedArtists) > 0 {
		params.Set("seed_artists", strings.Join(opts.SeedArtists, ","))
	} else if len(opts.SeedGenres) > 0 {
		params.Set("seed_genres", strings.Join(opts.SeedGenres, ","))
	}
	if opts.HasTargets {
		params.Set("target_valence", strconv.FormatFloat(opts.TargetValence, 'f', 2, 64))
		params.Set("target_energy", strconv.FormatFloat(opts.TargetEnergy, 'f', 2, 64))
	}

	var payload struct {
		Tracks []trackObject `json:"tracks"`
	}

	ok, err := c.get(ctx, "/recommendations?"+params.Encode(), &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(payload.Tracks))
	for i := range payload.Tracks {
		tracks = append(tracks, convertTrack(&payload.Tracks[i]))
	}
	return tracks, nil
}

// NewReleases fetches new-release albums presented as track summaries
// (zero duration), the fallback when recommendations fail.
func (c *Client) NewReleases(ctx context.Context, limit int) ([]core.Track, error) {
	var payload struct {
		Albums struct {
			Items []albumObject `json:"items"`
		} `json:"albums"`
	}

	ok, err := c.get(ctx, "/browse/new-releases?limit="+strconv.Itoa(limit), &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(payload.Albums.Items))
	for _, album := range payload.Albums.Items {
		artists := make([]string, 0, len(album.Artists))
		for _, a := range album.Artists {
			artists = append(artists, a.Name)
		}
		tracks = append(tracks, core.Track{
			ID:      album.ID,
			Name:    album.Name,
			Artists: artists,
			Album:   album.Name,
		})
	}
	return tracks, nil
}

// SearchTracks runs a track search.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]core.Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))

	var payload struct {
		Tracks struct {
			Items []trackObject `json:"items"`
		} `json:"tracks"`
	}

	ok, err := c.get(ctx, "/search?"+params.Encode(), &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(payload.Tracks.Items))
	for i := range payload.Tracks.Items {
		tracks = append(tracks, convertTrack(&payload.Tracks.Items[i]))
	}
	return tracks, nil
}
