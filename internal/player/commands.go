package player

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vibez/internal/spotify"
)

// Transport commands. Each applies an optimistic local update, fires the
// write, and schedules a delayed re-poll so the authoritative state settles
// shortly after. Commands requiring an output device are rejected locally
// when none is active.

// TogglePlay flips between play and pause based on the local state.
func (e *Engine) TogglePlay(ctx context.Context) error {
	e.mu.RLock()
	playing := e.playback.IsPlaying
	e.mu.RUnlock()

	if playing {
		return e.Pause(ctx)
	}
	return e.Play(ctx)
}

func (e *Engine) Play(ctx context.Context) error {
	if err := e.gateCommand(); err != nil {
		return err
	}
	if err := e.finishCommand("play", e.api.Play(ctx)); err != nil {
		return err
	}

	e.mu.Lock()
	e.playback.IsPlaying = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) Pause(ctx context.Context) error {
	if err := e.gateCommand(); err != nil {
		return err
	}
	if err := e.finishCommand("pause", e.api.Pause(ctx)); err != nil {
		return err
	}

	e.mu.Lock()
	e.playback.IsPlaying = false
	e.mu.Unlock()
	return nil
}

// Seek jumps to positionMs. The seeking flag holds off the local progress
// ticker until the post-command re-poll lands, so the bar does not fight
// the remote position.
func (e *Engine) Seek(ctx context.Context, positionMs int) error {
	if err := e.gateCommand(); err != nil {
		return err
	}

	e.mu.Lock()
	e.seeking = true
	if positionMs < 0 {
		positionMs = 0
	}
	if e.playback.DurationMs > 0 && positionMs > e.playback.DurationMs {
		positionMs = e.playback.DurationMs
	}
	e.playback.ProgressMs = positionMs
	e.mu.Unlock()

	err := e.api.SeekTo(ctx, positionMs)

	time.AfterFunc(e.config.SettleDelay, func() {
		e.mu.Lock()
		e.seeking = false
		e.mu.Unlock()
		e.requestRepoll()
	})

	return e.handleCommandError("seek", err)
}

func (e *Engine) NextTrack(ctx context.Context) error {
	if err := e.gateCommand(); err != nil {
		return err
	}
	return e.finishCommand("next", e.api.Next(ctx))
}

func (e *Engine) PreviousTrack(ctx context.Context) error {
	if err := e.gateCommand(); err != nil {
		return err
	}
	return e.finishCommand("previous", e.api.Previous(ctx))
}

// SetVolume adjusts the active device volume. With no active device this is
// a silent no-op, matching the control it backs.
func (e *Engine) SetVolume(ctx context.Context, percent int) error {
	e.mu.RLock()
	hasDevice := e.playback.HasActiveDevice
	polling := e.state == StatePolling
	e.mu.RUnlock()

	if !polling || !hasDevice {
		return nil
	}

	if err := e.finishCommand("volume", e.api.SetVolume(ctx, percent)); err != nil {
		return err
	}

	e.mu.Lock()
	e.playback.DeviceVolumePercent = percent
	e.mu.Unlock()
	return nil
}

// gateCommand rejects commands locally when the engine is not polling or no
// output device is active. No network call is made in either case.
func (e *Engine) gateCommand() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state != StatePolling {
		return spotify.ErrNotAuthenticated
	}
	if !e.playback.HasActiveDevice {
		return ErrNoActiveDevice
	}
	return nil
}

func (e *Engine) finishCommand(name string, err error) error {
	defer func() {
		time.AfterFunc(e.config.SettleDelay, e.requestRepoll)
	}()
	return e.handleCommandError(name, err)
}

func (e *Engine) handleCommandError(name string, err error) error {
	if err == nil {
		return nil
	}

	e.logger.Warn("Playback command failed", zap.String("command", name), zap.Error(err))

	if spotify.IsKind(err, spotify.KindSessionExpired) {
		if clearErr := e.session.Clear(); clearErr != nil {
			e.logger.Error("Failed to clear session", zap.Error(clearErr))
		}
	}
	return err
}

// requestRepoll pokes the event loop for an immediate reconciliation. The
// channel is buffered; a pending poke is enough.
func (e *Engine) requestRepoll() {
	select {
	case e.repoll <- struct{}{}:
	default:
	}
}
