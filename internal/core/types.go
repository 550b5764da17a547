package core

import (
	"context"
	"time"
)

type Track struct {
	ID         string
	Name       string
	Artists    []string
	Album      string
	DurationMs int
	URL        string
}

// NowPlaying is the authoritative playback snapshot returned by the
// currently-playing resource. Track is nil when nothing is active.
type NowPlaying struct {
	Track               *Track
	IsPlaying           bool
	ProgressMs          int
	DeviceVolumePercent int
}

type Device struct {
	ID            string
	Name          string
	Type          string
	Active        bool
	VolumePercent int
}

// PlaybackState is the reconciled local view of remote playback. It is
// rebuilt from polls and advanced by the local ticker; never persisted.
type PlaybackState struct {
	TrackID             string
	TrackName           string
	ArtistNames         []string
	DurationMs          int
	ProgressMs          int
	IsPlaying           bool
	DeviceVolumePercent int
	HasActiveDevice     bool
}

type UserProfile struct {
	ID          string
	DisplayName string
	Product     string
	ImageURL    string
}

type Playlist struct {
	ID         string
	Name       string
	TrackCount int
	ImageURL   string
}

// LibrarySnapshot holds the independently fetched library sections. The
// only cross-invariant is "most recent successful fetch wins".
type LibrarySnapshot struct {
	Profile         *UserProfile
	Playlists       []Playlist
	RecentlyPlayed  []Track
	Recommendations []Track
	LikedSongs      []Track
	FetchedAt       time.Time
}

// Suggestion is one LLM-generated song proposal.
type Suggestion struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// TasteProfile summarizes a user's listening habits.
type TasteProfile struct {
	TopGenres      []string `json:"topGenres"`
	MoodProfile    string   `json:"moodProfile"`
	SimilarArtists []string `json:"similar"`
	ExpandArtists  []string `json:"expand"`
}

// PlayerAPI is the slice of the Web API the sync engine drives.
type PlayerAPI interface {
	CurrentlyPlaying(ctx context.Context) (*NowPlaying, error)
	Devices(ctx context.Context) ([]Device, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, positionMs int) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
}

// RecommendationGenerator produces LLM-backed suggestions from free text.
type RecommendationGenerator interface {
	MoodRecommendations(ctx context.Context, mood string) ([]Suggestion, error)
	AnalyzeListeningHabits(ctx context.Context, tracks []Track) (*TasteProfile, error)
	ThemedPlaylist(ctx context.Context, theme string, count int) ([]Suggestion, error)
}
