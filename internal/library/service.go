// Package library assembles the dashboard's library view: profile,
// playlists, listening history, liked songs, and a recommendation rail
// with a layered fallback chain.
package library

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vibez/internal/core"
	"vibez/internal/spotify"
	"vibez/internal/store"
)

// Section limits for the dashboard view.
const (
	playlistLimit       = 10
	recentlyPlayedLimit = 6
	recommendationLimit = 6
	likedSongsLimit     = 10
	moodSearchLimit     = 8
	topArtistSeedCount  = 3
)

// fallbackGenres seeds recommendations when the user has no top artists
// yet.
var fallbackGenres = []string{"pop", "rock", "electronic"}

// Catalog is the slice of the Web API the library service reads from.
type Catalog interface {
	CurrentUser(ctx context.Context) (*core.UserProfile, error)
	Playlists(ctx context.Context, limit int) ([]core.Playlist, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]core.Track, error)
	SavedTracks(ctx context.Context, limit int) ([]core.Track, error)
	TopArtistIDs(ctx context.Context, limit int) ([]string, error)
	Recommendations(ctx context.Context, opts spotify.RecommendationOptions) ([]core.Track, error)
	NewReleases(ctx context.Context, limit int) ([]core.Track, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]core.Track, error)
}

type Service struct {
	catalog Catalog
	seen    *store.SeenTracks
	logger  *zap.Logger
}

func NewService(catalog Catalog, seen *store.SeenTracks, logger *zap.Logger) *Service {
	return &Service{
		catalog: catalog,
		seen:    seen,
		logger:  logger,
	}
}

// Snapshot fetches all library sections concurrently. A failed section is
// logged and left empty; only an expired session aborts the whole
// snapshot, since every remaining call would fail the same way.
func (s *Service) Snapshot(ctx context.Context) (*core.LibrarySnapshot, error) {
	snapshot := &core.LibrarySnapshot{FetchedAt: time.Now()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := s.catalog.CurrentUser(gctx)
		if err != nil {
			return s.sectionError("profile", err)
		}
		snapshot.Profile = profile
		return nil
	})

	g.Go(func() error {
		playlists, err := s.catalog.Playlists(gctx, playlistLimit)
		if err != nil {
			return s.sectionError("playlists", err)
		}
		snapshot.Playlists = playlists
		return nil
	})

	g.Go(func() error {
		recent, err := s.catalog.RecentlyPlayed(gctx, recentlyPlayedLimit)
		if err != nil {
			return s.sectionError("recently-played", err)
		}
		snapshot.RecentlyPlayed = recent
		return nil
	})

	g.Go(func() error {
		liked, err := s.catalog.SavedTracks(gctx, likedSongsLimit)
		if err != nil {
			return s.sectionError("liked-songs", err)
		}
		snapshot.LikedSongs = liked
		return nil
	})

	g.Go(func() error {
		recommendations, err := s.Recommendations(gctx)
		if err != nil {
			return s.sectionError("recommendations", err)
		}
		snapshot.Recommendations = recommendations
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.rememberOwned(snapshot)
	snapshot.Recommendations = s.filterSeen(snapshot.Recommendations)

	return snapshot, nil
}

// Recommendations walks the fallback chain: personalized seeds from the
// user's top artists, genre seeds when there are none, and new releases
// when the recommendation resource fails outright.
func (s *Service) Recommendations(ctx context.Context) ([]core.Track, error) {
	opts := spotify.RecommendationOptions{Limit: recommendationLimit}

	artists, err := s.catalog.TopArtistIDs(ctx, topArtistSeedCount)
	if err != nil {
		if spotify.IsKind(err, spotify.KindSessionExpired) {
			return nil, err
		}
		s.logger.Debug("Top artists unavailable, falling back to genre seeds", zap.Error(err))
	}

	if len(artists) > 0 {
		opts.SeedArtists = artists
	} else {
		opts.SeedGenres = fallbackGenres
	}

	tracks, err := s.catalog.Recommendations(ctx, opts)
	if err == nil && len(tracks) > 0 {
		return tracks, nil
	}
	if spotify.IsKind(err, spotify.KindSessionExpired) {
		return nil, err
	}
	if err != nil && len(opts.SeedArtists) > 0 {
		s.logger.Debug("Seeded recommendations failed, retrying with genre seeds", zap.Error(err))
		tracks, err = s.catalog.Recommendations(ctx, spotify.RecommendationOptions{
			Limit:      recommendationLimit,
			SeedGenres: fallbackGenres,
		})
		if err == nil && len(tracks) > 0 {
			return tracks, nil
		}
		if spotify.IsKind(err, spotify.KindSessionExpired) {
			return nil, err
		}
	}
	if err != nil {
		s.logger.Warn("Recommendations unavailable, falling back to new releases", zap.Error(err))
	}

	return s.catalog.NewReleases(ctx, recommendationLimit)
}

// MoodSearch maps the mood to tuning targets and asks for matching tracks.
// When the recommendation resource fails, a plain track search on the mood
// keeps the rail populated.
func (s *Service) MoodSearch(ctx context.Context, mood string) ([]core.Track, error) {
	valence, energy := targetsFor(mood)

	tracks, err := s.catalog.Recommendations(ctx, spotify.RecommendationOptions{
		Limit:         moodSearchLimit,
		SeedGenres:    fallbackGenres,
		TargetValence: valence,
		TargetEnergy:  energy,
		HasTargets:    true,
	})
	if err == nil && len(tracks) > 0 {
		return tracks, nil
	}
	if spotify.IsKind(err, spotify.KindSessionExpired) {
		return nil, err
	}
	if err != nil {
		s.logger.Debug("Mood recommendations failed, falling back to search", zap.Error(err))
	}

	return s.catalog.SearchTracks(ctx, normalizeMood(mood)+" music", moodSearchLimit)
}

// sectionError downgrades a per-section failure to a log line. An expired
// session propagates so the caller can force re-auth.
func (s *Service) sectionError(section string, err error) error {
	if spotify.IsKind(err, spotify.KindSessionExpired) {
		return err
	}
	s.logger.Warn("Library section fetch failed", zap.String("section", section), zap.Error(err))
	return nil
}

// rememberOwned reloads the seen store from the snapshot, so the
// recommendation rail does not resurface tracks the user already has. The
// snapshot is authoritative: a track dropped from the library becomes
// recommendable again. An empty result (all owned sections failed) keeps
// the previous contents.
func (s *Service) rememberOwned(snapshot *core.LibrarySnapshot) {
	owned := make([]string, 0, len(snapshot.LikedSongs)+len(snapshot.RecentlyPlayed))
	for _, track := range snapshot.LikedSongs {
		owned = append(owned, track.ID)
	}
	for _, track := range snapshot.RecentlyPlayed {
		owned = append(owned, track.ID)
	}
	if len(owned) == 0 {
		return
	}
	s.seen.Load(owned)
}

func (s *Service) filterSeen(tracks []core.Track) []core.Track {
	filtered := tracks[:0]
	for _, track := range tracks {
		if !s.seen.Has(track.ID) {
			filtered = append(filtered, track)
		}
	}
	return filtered
}
