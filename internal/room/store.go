// internal/room/store.go
package room

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// RoundSource supplies the ordered round pool for a set of playlist ids.
// The catalog package provides the real implementations.
type RoundSource interface {
	LoadRounds(ctx context.Context, playlistIDs []string) ([]Round, error)
}

// Store is the keyed repository of room states. It is the only writer path:
// every command for a room is serialized through the room's entry lock as an
// atomic read-modify-write, and every accepted command publishes the new
// snapshot to that room's subscribers. Rooms are created implicitly on first
// access and never explicitly destroyed.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*roomEntry

	clock  clockwork.Clock
	source RoundSource
	logger *logrus.Logger
	tun    Tunables

	rngMu sync.Mutex
	rng   *rand.Rand
}

type roomEntry struct {
	mu    sync.Mutex
	state *RoomState

	subMu   sync.Mutex
	subs    map[uint64]chan *RoomState
	nextSub uint64
}

// NewStore builds a Store with the given collaborators. A nil logger falls
// back to the logrus standard logger.
func NewStore(clock clockwork.Clock, source RoundSource, logger *logrus.Logger, tun Tunables) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		rooms:  make(map[string]*roomEntry),
		clock:  clock,
		source: source,
		logger: logger,
		tun:    tun,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tunables returns the store's policy constant table.
func (s *Store) Tunables() Tunables { return s.tun }

func (s *Store) nowMs() int64 { return s.clock.Now().UnixMilli() }

func (s *Store) entry(roomID string) *roomEntry {
	roomID = normalizeRoomID(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[roomID]
	if !ok {
		e = &roomEntry{
			state: NewRoomState(roomID, s.nowMs()),
			subs:  make(map[uint64]chan *RoomState),
		}
		s.rooms[roomID] = e
		s.logger.WithField("room", roomID).Info("Created room")
	}
	return e
}

// mutate runs fn against the room's current state under the room lock.
// Pruning of stale participants happens on every access, before fn. When
// either step changes the state, updatedAt is stamped strictly monotonic and
// the new snapshot is published. The returned snapshot is always a deep copy.
func (s *Store) mutate(roomID string, fn func(*RoomState) bool) (*RoomState, bool) {
	e := s.entry(roomID)
	now := s.nowMs()

	e.mu.Lock()
	changed := e.state.pruneStale(now, s.tun)
	if fn != nil {
		changed = fn(e.state) || changed
	}
	if changed {
		if now <= e.state.UpdatedAt {
			now = e.state.UpdatedAt + 1
		}
		e.state.UpdatedAt = now
	}
	snapshot := e.state.Clone()
	e.mu.Unlock()

	if changed {
		e.publish(snapshot)
	}
	return snapshot, changed
}

// Snapshot returns the current state of a room, implicitly creating an empty
// lobby for an unknown room id.
func (s *Store) Snapshot(roomID string) *RoomState {
	snap, _ := s.mutate(roomID, nil)
	return snap
}

// ReplaceState is the host-originated hard overwrite. The candidate has
// already been parsed and normalized via ParseSnapshot; the room id is pinned
// to the addressed room regardless of what the payload claims.
func (s *Store) ReplaceState(roomID string, candidate *RoomState) (*RoomState, bool) {
	return s.mutate(roomID, func(st *RoomState) bool {
		replacement := candidate.Clone()
		replacement.RoomID = st.RoomID
		replacement.Normalize()
		*st = *replacement
		return true
	})
}

// UpsertParticipant adds or refreshes a participant identity.
func (s *Store) UpsertParticipant(roomID, playerID, name string) (*RoomState, bool) {
	now := s.nowMs()
	return s.mutate(roomID, func(st *RoomState) bool {
		return st.upsertParticipant(playerID, name, now, s.tun)
	})
}

// RemoveParticipant drops a participant from the room's presence list.
func (s *Store) RemoveParticipant(roomID, playerID string) (*RoomState, bool) {
	return s.mutate(roomID, func(st *RoomState) bool {
		return st.removeParticipant(playerID)
	})
}

// StartGame moves a lobby into running/LISTEN at round 0. When the lobby has
// no sampled rounds yet, the round set is assembled first from the current
// playlist selection.
func (s *Store) StartGame(ctx context.Context, roomID string) (*RoomState, bool, error) {
	snap := s.Snapshot(roomID)
	if snap.Lifecycle == LifecycleLobby && len(snap.Rounds) == 0 {
		if _, _, err := s.ApplyLobbySetup(ctx, roomID, snap.PlaylistIDs, snap.GameSongCount); err != nil {
			return snap, false, err
		}
	}
	now := s.nowMs()
	st, changed := s.mutate(roomID, func(st *RoomState) bool {
		return st.startGame(now, s.tun)
	})
	return st, changed, nil
}

// AdvancePhase cycles the running phase machine one step.
func (s *Store) AdvancePhase(roomID string) (*RoomState, bool) {
	now := s.nowMs()
	return s.mutate(roomID, func(st *RoomState) bool {
		return st.advancePhase(now, s.tun)
	})
}

// Tick catches the phase machine up to the given wall-clock instant. A zero
// now uses the store clock.
func (s *Store) Tick(roomID string, now int64) (*RoomState, bool) {
	if now <= 0 {
		now = s.nowMs()
	}
	return s.mutate(roomID, func(st *RoomState) bool {
		return st.tick(now, s.tun)
	})
}

// SubmitGuess records a player's write-once guess for a round.
func (s *Store) SubmitGuess(roomID, playerID, roundID, trackRef, artistRef string) (*RoomState, bool) {
	now := s.nowMs()
	return s.mutate(roomID, func(st *RoomState) bool {
		return st.submitGuess(playerID, roundID, trackRef, artistRef, now)
	})
}

// SubmitTimeline records or moves a player's timeline placement.
func (s *Store) SubmitTimeline(roomID, playerID, roundID string, insertIndex float64) (*RoomState, bool) {
	now := s.nowMs()
	return s.mutate(roomID, func(st *RoomState) bool {
		return st.submitTimeline(playerID, roundID, insertIndex, now)
	})
}

// UpdatePreloadReadiness merges a client readiness report.
func (s *Store) UpdatePreloadReadiness(roomID, playerID string, r PreloadReadiness) (*RoomState, bool) {
	now := s.nowMs()
	return s.mutate(roomID, func(st *RoomState) bool {
		return st.updatePreloadReadiness(playerID, r, now)
	})
}

// ApplyLobbySetup reassigns the playlist selection and round count in one
// step, re-sampling the round set. UpdatePlaylistSelection and
// UpdateRoundCount are the single-field variants.
func (s *Store) ApplyLobbySetup(ctx context.Context, roomID string, playlistIDs []string, songCount int) (*RoomState, bool, error) {
	snap := s.Snapshot(roomID)
	if snap.Lifecycle != LifecycleLobby {
		return snap, false, nil
	}
	target := snap.PlaylistIDs
	if playlistIDs != nil {
		target = playlistIDs
	}
	pool, err := s.source.LoadRounds(ctx, target)
	if err != nil {
		return snap, false, fmt.Errorf("loading rounds for room %s: %w", roomID, err)
	}
	if len(pool) == 0 {
		return snap, false, fmt.Errorf("no rounds available for room %s playlists %v", roomID, target)
	}
	st, changed := s.mutate(roomID, func(st *RoomState) bool {
		s.rngMu.Lock()
		defer s.rngMu.Unlock()
		return st.applyLobbySetup(playlistIDs, songCount, pool, s.tun, s.rng)
	})
	return st, changed, nil
}

// UpdatePlaylistSelection replaces the playlist selection, keeping the count.
func (s *Store) UpdatePlaylistSelection(ctx context.Context, roomID string, playlistIDs []string) (*RoomState, bool, error) {
	if playlistIDs == nil {
		playlistIDs = []string{}
	}
	return s.ApplyLobbySetup(ctx, roomID, playlistIDs, 0)
}

// UpdateRoundCount changes how many rounds the game samples.
func (s *Store) UpdateRoundCount(ctx context.Context, roomID string, songCount int) (*RoomState, bool, error) {
	if songCount <= 0 {
		return s.Snapshot(roomID), false, nil
	}
	return s.ApplyLobbySetup(ctx, roomID, nil, songCount)
}

// Subscribe registers a push subscriber for a room. The returned channel
// receives a deep-copied snapshot for every accepted command; the cancel
// function drops the registration. Delivery is non-blocking per subscriber:
// a slow consumer loses intermediate snapshots, never blocks the room, and
// the poll path remains the correctness backstop.
func (s *Store) Subscribe(roomID string) (<-chan *RoomState, func()) {
	e := s.entry(roomID)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	ch := make(chan *RoomState, 8)
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

func (e *roomEntry) publish(snapshot *RoomState) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snapshot:
		default:
			// Subscriber buffer full. Drop; the poll loop will catch it up.
		}
	}
}
