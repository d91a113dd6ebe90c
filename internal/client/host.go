// internal/client/host.go
package client

import (
	"context"
	"time"

	"github.com/trackline/trackline/internal/handlers"
	"github.com/trackline/trackline/internal/playback"
	"github.com/trackline/trackline/internal/room"
)

// Host is the one observer that drives round progression. It runs a short
// local ticker that turns elapsed wall-clock time into tick commands, and it
// emits playback cues as the merged state crosses phase boundaries. Players
// never self-advance phases; if the host disappears, phases simply stop
// advancing.
type Host struct {
	Observer
	Playback playback.Controller

	// TickInterval paces the phase clock. Zero means 250ms.
	TickInterval time.Duration

	lastCueRound int
	lastCuePhase room.Phase
}

func (h *Host) tickInterval() time.Duration {
	if h.TickInterval > 0 {
		return h.TickInterval
	}
	return 250 * time.Millisecond
}

// Run drives the host loops until the context ends.
func (h *Host) Run(ctx context.Context) {
	h.lastCueRound = -1
	prev := h.Observer.OnUpdate
	h.Observer.OnUpdate = func(s *room.RoomState) {
		h.emitPlaybackCues(ctx, s)
		if prev != nil {
			prev(s)
		}
	}
	go h.runTicker(ctx)
	h.Observer.Run(ctx)
}

func (h *Host) runTicker(ctx context.Context) {
	ticker := h.Clock.NewTicker(h.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			res := <-Dispatch(ctx, h.Transport, h.RoomID, handlers.CommandEnvelope{
				Type: "tick",
				Now:  h.Clock.Now().UnixMilli(),
			})
			if res.Err != nil {
				h.logger().WithError(res.Err).WithField("room", h.RoomID).Warn("Tick dispatch failed")
				continue
			}
			h.merge(res.Snapshot)
		}
	}
}

// emitPlaybackCues starts audio when a round's LISTEN phase begins and
// pauses it on REVEAL. Cues fire once per (round, phase) edge regardless of
// how many redundant snapshots arrive.
func (h *Host) emitPlaybackCues(ctx context.Context, s *room.RoomState) {
	if h.Playback == nil || s == nil || s.Lifecycle != room.LifecycleRunning {
		return
	}
	if s.RoundIndex == h.lastCueRound && s.Phase == h.lastCuePhase {
		return
	}
	h.lastCueRound = s.RoundIndex
	h.lastCuePhase = s.Phase

	switch s.Phase {
	case room.PhaseListen:
		if r, ok := s.CurrentRound(); ok {
			if err := h.Playback.Play(ctx, r.MediaURI, r.StartOffsetMs); err != nil {
				h.logger().WithError(err).Warn("Playback play cue failed")
			}
		}
	case room.PhaseReveal:
		if err := h.Playback.Pause(ctx); err != nil {
			h.logger().WithError(err).Warn("Playback pause cue failed")
		}
	}
}

// StartGame asks the store to begin the game.
func (h *Host) StartGame(ctx context.Context) <-chan DispatchResult {
	return Dispatch(ctx, h.Transport, h.RoomID, handlers.CommandEnvelope{Type: "startGame"})
}

// ApplyLobbySetup reconfigures the lobby's playlists and round count.
func (h *Host) ApplyLobbySetup(ctx context.Context, playlistIDs []string, songCount int) <-chan DispatchResult {
	return Dispatch(ctx, h.Transport, h.RoomID, handlers.CommandEnvelope{
		Type:        "applyLobbySetup",
		PlaylistIDs: playlistIDs,
		SongCount:   songCount,
	})
}
