// Package player keeps local playback state synchronized with the remote
// device: a 5-second authoritative poll, a 1-second local progress ticker,
// and optimistic transport commands reconciled by a delayed re-poll.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"vibez/internal/core"
	"vibez/internal/spotify"
)

// ErrNoActiveDevice is surfaced when a transport command is attempted with
// no reachable output device. The command is rejected locally, without a
// network call.
var ErrNoActiveDevice = errors.New("no active playback device; open the app on any device first")

// State is the engine lifecycle state.
type State int

const (
	// StateIdle means no token has been seen yet.
	StateIdle State = iota
	// StatePolling means both timers are live and reconciling.
	StatePolling
	// StateSuspended means the token was cleared or the engine stopped;
	// both timers are down and no further network calls are made.
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateSuspended:
		return "suspended"
	default:
		return "idle"
	}
}

// SessionState is the slice of the auth session the engine watches.
type SessionState interface {
	Authenticated() bool
	Changes() <-chan struct{}
	Clear() error
}

type pollResult struct {
	generation uint64
	now        *core.NowPlaying
	devices    []core.Device
	nowErr     error
	devicesErr error
}

type Engine struct {
	api     core.PlayerAPI
	session SessionState
	config  *core.PlayerConfig
	logger  *zap.Logger

	// mu guards the playback state cell. The poll applier and the local
	// ticker are the only progress writers; the seeking flag arbitrates
	// between the ticker and an in-flight seek.
	mu         sync.RWMutex
	state      State
	playback   core.PlaybackState
	seeking    bool
	generation uint64

	results chan pollResult
	repoll  chan struct{}
}

func NewEngine(api core.PlayerAPI, session SessionState, config *core.PlayerConfig, logger *zap.Logger) *Engine {
	return &Engine{
		api:     api,
		session: session,
		config:  config,
		logger:  logger,
		state:   StateIdle,
		results: make(chan pollResult, 4),
		repoll:  make(chan struct{}, 1),
	}
}

// Run drives the engine until ctx is cancelled. All state transitions
// happen on this goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Starting playback sync engine")

	for {
		if e.session.Authenticated() {
			e.runPolling(ctx)
		}

		select {
		case <-ctx.Done():
			e.suspend()
			e.logger.Info("Playback sync engine stopped")
			return nil
		case <-e.session.Changes():
			// Re-check authentication at the top of the loop.
		}
	}
}

// runPolling owns the Polling state: the 5s reconciliation timer and the
// 1s local progress timer. Both stop together on logout or teardown.
func (e *Engine) runPolling(ctx context.Context) {
	e.setState(StatePolling)
	e.logger.Info("Playback polling started")

	pollTicker := time.NewTicker(e.config.PollInterval)
	defer pollTicker.Stop()

	progressTicker := time.NewTicker(e.config.TickInterval)
	defer progressTicker.Stop()

	e.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			e.suspend()
			return

		case <-e.session.Changes():
			if !e.session.Authenticated() {
				e.suspend()
				e.logger.Info("Playback polling suspended, session cleared")
				return
			}

		case <-pollTicker.C:
			e.poll(ctx)

		case <-progressTicker.C:
			e.advanceProgress()

		case <-e.repoll:
			e.poll(ctx)

		case result := <-e.results:
			e.applyPoll(result)
		}
	}
}

// poll issues the two independent authoritative reads without blocking the
// event loop. Results are tagged with the current generation so responses
// landing after a suspend are ignored.
func (e *Engine) poll(ctx context.Context) {
	e.mu.RLock()
	generation := e.generation
	e.mu.RUnlock()

	go func() {
		result := pollResult{generation: generation}
		result.now, result.nowErr = e.api.CurrentlyPlaying(ctx)
		result.devices, result.devicesErr = e.api.Devices(ctx)

		select {
		case e.results <- result:
		default:
			// Loop is gone or backed up; drop rather than block.
		}
	}()
}

// applyPoll reconciles local state against the authoritative snapshot.
// Failures are logged and change nothing; the next tick retries naturally.
func (e *Engine) applyPoll(result pollResult) {
	e.mu.RLock()
	stale := result.generation != e.generation
	e.mu.RUnlock()
	if stale {
		return
	}

	if result.nowErr != nil && spotify.IsKind(result.nowErr, spotify.KindSessionExpired) {
		e.logger.Warn("Token rejected upstream, clearing session")
		if err := e.session.Clear(); err != nil {
			e.logger.Error("Failed to clear session", zap.Error(err))
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if result.generation != e.generation {
		return
	}

	if result.devicesErr != nil {
		e.logger.Debug("Device poll failed", zap.Error(result.devicesErr))
		e.playback.HasActiveDevice = false
	} else {
		active := false
		for _, d := range result.devices {
			if d.Active {
				active = true
				break
			}
		}
		e.playback.HasActiveDevice = active
	}

	if result.nowErr != nil {
		e.logger.Debug("Playback poll failed", zap.Error(result.nowErr))
		return
	}

	now := result.now
	if now == nil || now.Track == nil {
		// Nothing active. Keep the last track visible to avoid flicker but
		// stop the local clock.
		e.playback.IsPlaying = false
		return
	}

	e.playback.TrackID = now.Track.ID
	e.playback.TrackName = now.Track.Name
	e.playback.ArtistNames = now.Track.Artists
	e.playback.DurationMs = now.Track.DurationMs
	e.playback.ProgressMs = now.ProgressMs
	e.playback.IsPlaying = now.IsPlaying
	if now.DeviceVolumePercent >= 0 {
		e.playback.DeviceVolumePercent = now.DeviceVolumePercent
	}
}

// advanceProgress moves the local clock one tick. It never advances past
// the track duration, and never while seeking or paused; the correction to
// the next track arrives only from an authoritative poll.
func (e *Engine) advanceProgress() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playback.IsPlaying || e.seeking || e.playback.TrackID == "" {
		return
	}
	if e.playback.ProgressMs >= e.playback.DurationMs {
		return
	}

	e.playback.ProgressMs += int(e.config.TickInterval / time.Millisecond)
	if e.playback.ProgressMs > e.playback.DurationMs {
		e.playback.ProgressMs = e.playback.DurationMs
	}
}

func (e *Engine) suspend() {
	e.mu.Lock()
	e.state = StateSuspended
	e.generation++
	e.seeking = false
	e.mu.Unlock()
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Snapshot returns a copy of the current playback state.
func (e *Engine) Snapshot() core.PlaybackState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshot := e.playback
	snapshot.ArtistNames = append([]string(nil), e.playback.ArtistNames...)
	return snapshot
}

// State returns the engine lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}
