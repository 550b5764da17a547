package library

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"vibez/internal/core"
	"vibez/internal/spotify"
	"vibez/internal/store"
)

type fakeCatalog struct {
	profile    *core.UserProfile
	playlists  []core.Playlist
	recent     []core.Track
	liked      []core.Track
	topArtists []string

	recommendations    []core.Track
	recommendationsErr error
	recommendationOpts []spotify.RecommendationOptions

	newReleases   []core.Track
	searchResults []core.Track
	searchQueries []string

	profileErr error
}

func (f *fakeCatalog) CurrentUser(_ context.Context) (*core.UserProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakeCatalog) Playlists(_ context.Context, _ int) ([]core.Playlist, error) {
	return f.playlists, nil
}

func (f *fakeCatalog) RecentlyPlayed(_ context.Context, _ int) ([]core.Track, error) {
	return f.recent, nil
}

func (f *fakeCatalog) SavedTracks(_ context.Context, _ int) ([]core.Track, error) {
	return f.liked, nil
}

func (f *fakeCatalog) TopArtistIDs(_ context.Context, _ int) ([]string, error) {
	return f.topArtists, nil
}

func (f *fakeCatalog) Recommendations(_ context.Context, opts spotify.RecommendationOptions) ([]core.Track, error) {
	f.recommendationOpts = append(f.recommendationOpts, opts)
	return f.recommendations, f.recommendationsErr
}

func (f *fakeCatalog) NewReleases(_ context.Context, _ int) ([]core.Track, error) {
	return f.newReleases, nil
}

func (f *fakeCatalog) SearchTracks(_ context.Context, query string, _ int) ([]core.Track, error) {
	f.searchQueries = append(f.searchQueries, query)
	return f.searchResults, nil
}

func newTestService(catalog *fakeCatalog) *Service {
	return NewService(catalog, store.NewSeenTracks(100, 0.01), zap.NewNop())
}

func track(id string) core.Track {
	return core.Track{ID: id, Name: "Track " + id}
}

func TestSnapshot_AssemblesAllSections(t *testing.T) {
	catalog := &fakeCatalog{
		profile:         &core.UserProfile{ID: "user1", DisplayName: "User"},
		playlists:       []core.Playlist{{ID: "p1", Name: "Mix"}},
		recent:          []core.Track{track("r1")},
		liked:           []core.Track{track("l1")},
		topArtists:      []string{"a1", "a2", "a3"},
		recommendations: []core.Track{track("rec1"), track("rec2")},
	}

	snapshot, err := newTestService(catalog).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	if snapshot.Profile == nil || snapshot.Profile.ID != "user1" {
		t.Errorf("unexpected profile: %+v", snapshot.Profile)
	}
	if len(snapshot.Playlists) != 1 || len(snapshot.RecentlyPlayed) != 1 || len(snapshot.LikedSongs) != 1 {
		t.Errorf("unexpected section sizes: %+v", snapshot)
	}
	if len(snapshot.Recommendations) != 2 {
		t.Errorf("Recommendations = %d tracks, expected 2", len(snapshot.Recommendations))
	}
	if snapshot.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestSnapshot_SectionFailureLeavesSectionEmpty(t *testing.T) {
	catalog := &fakeCatalog{
		profileErr: errors.New("transient"),
		playlists:  []core.Playlist{{ID: "p1"}},
	}

	snapshot, err := newTestService(catalog).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() should swallow per-section failures, got: %v", err)
	}

	if snapshot.Profile != nil {
		t.Error("failed profile section should be empty")
	}
	if len(snapshot.Playlists) != 1 {
		t.Error("other sections should still be populated")
	}
}

func TestSnapshot_SessionExpiredAborts(t *testing.T) {
	catalog := &fakeCatalog{
		profileErr: &spotify.APIError{Kind: spotify.KindSessionExpired, StatusCode: 401},
	}

	_, err := newTestService(catalog).Snapshot(context.Background())
	if !spotify.IsKind(err, spotify.KindSessionExpired) {
		t.Errorf("Snapshot() = %v, expected KindSessionExpired to propagate", err)
	}
}

func TestSnapshot_FiltersAlreadyOwnedTracks(t *testing.T) {
	catalog := &fakeCatalog{
		liked:           []core.Track{track("owned")},
		recommendations: []core.Track{track("owned"), track("fresh")},
	}

	snapshot, err := newTestService(catalog).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	if len(snapshot.Recommendations) != 1 || snapshot.Recommendations[0].ID != "fresh" {
		t.Errorf("Recommendations = %+v, expected owned track filtered out", snapshot.Recommendations)
	}
}

func TestSnapshot_SeenStoreTracksTheLibrary(t *testing.T) {
	catalog := &fakeCatalog{
		liked:           []core.Track{track("kept"), track("dropped")},
		recommendations: []core.Track{track("dropped"), track("fresh")},
	}
	service := newTestService(catalog)

	snapshot, err := service.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(snapshot.Recommendations) != 1 || snapshot.Recommendations[0].ID != "fresh" {
		t.Fatalf("Recommendations = %+v, expected owned tracks filtered", snapshot.Recommendations)
	}

	// The track leaves the library; the next snapshot may recommend it.
	catalog.liked = []core.Track{track("kept")}

	snapshot, err = service.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(snapshot.Recommendations) != 2 {
		t.Errorf("Recommendations = %+v, expected the dropped track back", snapshot.Recommendations)
	}
}

func TestRecommendations_SeedsFromTopArtists(t *testing.T) {
	catalog := &fakeCatalog{
		topArtists:      []string{"a1", "a2", "a3"},
		recommendations: []core.Track{track("rec1")},
	}

	tracks, err := newTestService(catalog).Recommendations(context.Background())
	if err != nil {
		t.Fatalf("Recommendations() error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("Recommendations() = %d tracks, expected 1", len(tracks))
	}

	opts := catalog.recommendationOpts[0]
	if len(opts.SeedArtists) != 3 || opts.SeedArtists[0] != "a1" {
		t.Errorf("seed artists = %v, expected top artists", opts.SeedArtists)
	}
	if len(opts.SeedGenres) != 0 {
		t.Errorf("seed genres = %v, expected none when artists are available", opts.SeedGenres)
	}
}

func TestRecommendations_GenreSeedsWithoutTopArtists(t *testing.T) {
	catalog := &fakeCatalog{
		recommendations: []core.Track{track("rec1")},
	}

	if _, err := newTestService(catalog).Recommendations(context.Background()); err != nil {
		t.Fatalf("Recommendations() error: %v", err)
	}

	opts := catalog.recommendationOpts[0]
	if len(opts.SeedGenres) != 3 || opts.SeedGenres[0] != "pop" {
		t.Errorf("seed genres = %v, expected fallback genres", opts.SeedGenres)
	}
}

func TestRecommendations_FallsBackToNewReleases(t *testing.T) {
	catalog := &fakeCatalog{
		recommendationsErr: &spotify.APIError{Kind: spotify.KindNotFound, StatusCode: 404},
		newReleases:        []core.Track{track("album1")},
	}

	tracks, err := newTestService(catalog).Recommendations(context.Background())
	if err != nil {
		t.Fatalf("Recommendations() error: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "album1" {
		t.Errorf("Recommendations() = %+v, expected new releases fallback", tracks)
	}
}

func TestMoodSearch_MapsMoodToTargets(t *testing.T) {
	tests := []struct {
		mood        string
		wantValence float64
		wantEnergy  float64
	}{
		{"happy", 0.8, 0.7},
		{"feeling sad today", 0.2, 0.3},
		{"Melancholic", 0.2, 0.3},
		{"WORKOUT", 0.7, 0.9},
		{"chill evening", 0.6, 0.3},
		{"study session", 0.5, 0.4},
		{"something unknown", 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.mood, func(t *testing.T) {
			catalog := &fakeCatalog{recommendations: []core.Track{track("m1")}}

			if _, err := newTestService(catalog).MoodSearch(context.Background(), tt.mood); err != nil {
				t.Fatalf("MoodSearch() error: %v", err)
			}

			opts := catalog.recommendationOpts[0]
			if !opts.HasTargets {
				t.Fatal("mood search should always set tuning targets")
			}
			if opts.TargetValence != tt.wantValence || opts.TargetEnergy != tt.wantEnergy {
				t.Errorf("targets = (%v, %v), expected (%v, %v)",
					opts.TargetValence, opts.TargetEnergy, tt.wantValence, tt.wantEnergy)
			}
		})
	}
}

func TestMoodSearch_FallsBackToTrackSearch(t *testing.T) {
	catalog := &fakeCatalog{
		recommendationsErr: &spotify.APIError{Kind: spotify.KindAPIError, StatusCode: 500},
		searchResults:      []core.Track{track("s1")},
	}

	tracks, err := newTestService(catalog).MoodSearch(context.Background(), "Happy")
	if err != nil {
		t.Fatalf("MoodSearch() error: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "s1" {
		t.Errorf("MoodSearch() = %+v, expected search fallback results", tracks)
	}
	if len(catalog.searchQueries) != 1 || catalog.searchQueries[0] != "happy music" {
		t.Errorf("search queries = %v, expected normalized mood query", catalog.searchQueries)
	}
}

func TestNormalizeMood_FoldsAccentsAndCase(t *testing.T) {
	if got := normalizeMood("  Mélancolique  "); got != "melancolique" {
		t.Errorf("normalizeMood() = %q, expected folded form", got)
	}
}
