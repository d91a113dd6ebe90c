// internal/room/commands.go
package room

import "math/rand"

// The functions in this file are the command bodies of the state machine.
// Each one mutates the state in place and reports whether anything changed;
// they assume the per-room lock is held by the Store. Invalid input degrades
// to a no-op (changed == false) rather than an error so that a single bad
// client message can never corrupt shared state.

// pruneStale drops participants not seen within the staleness window,
// cascading removal of their preload readiness entries. Historical
// submissions and scores are kept.
func (s *RoomState) pruneStale(now int64, tun Tunables) bool {
	changed := false
	kept := s.Participants[:0]
	for _, p := range s.Participants {
		if now-p.LastSeenAt > tun.StaleAfterMs {
			delete(s.PreloadReadiness, p.ID)
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	s.Participants = kept
	return changed
}

// upsertParticipant adds or refreshes a participant. While running, ids
// outside allowedPlayerIds are rejected so late joiners stay observers.
// While in the lobby the allow list accretes automatically. Redundant
// refreshes inside the debounce window are dropped to avoid needless writes.
func (s *RoomState) upsertParticipant(id, name string, now int64, tun Tunables) bool {
	if id == "" {
		return false
	}
	if s.Lifecycle == LifecycleRunning && !s.isAllowedPlayer(id) {
		return false
	}
	for i := range s.Participants {
		p := &s.Participants[i]
		if p.ID != id {
			continue
		}
		if (name == "" || p.Name == name) && now-p.LastSeenAt < tun.PresenceDebounce {
			return false
		}
		if name != "" {
			p.Name = name
		}
		p.LastSeenAt = now
		return true
	}
	s.Participants = append(s.Participants, Participant{
		ID:         id,
		Name:       name,
		Color:      colorForIndex(len(s.Participants)),
		JoinedAt:   now,
		LastSeenAt: now,
	})
	if s.Lifecycle == LifecycleLobby && !s.isAllowedPlayer(id) {
		s.AllowedPlayerIDs = append(s.AllowedPlayerIDs, id)
	}
	return true
}

// removeParticipant drops the identity from the participant list only.
// Submissions and scores stay so a resolved game remains auditable.
func (s *RoomState) removeParticipant(id string) bool {
	for i, p := range s.Participants {
		if p.ID == id {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			delete(s.PreloadReadiness, id)
			return true
		}
	}
	return false
}

// startGame snapshots the current participants into the allow list, resets
// all per-game maps and enters running/LISTEN at round 0. Valid only from
// the lobby with a non-empty round set.
func (s *RoomState) startGame(now int64, tun Tunables) bool {
	if s.Lifecycle != LifecycleLobby || len(s.Rounds) == 0 {
		return false
	}
	allowed := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		allowed = append(allowed, p.ID)
	}
	s.AllowedPlayerIDs = allowed
	s.resetPerGameState()
	s.Lifecycle = LifecycleRunning
	s.Phase = PhaseListen
	s.RoundIndex = 0
	s.PhaseStartedAt = now
	s.PhaseEndsAt = now + tun.ListenMs
	return true
}

// advancePhase cycles LISTEN -> REVEAL -> INTERMISSION -> next LISTEN, or to
// finished after the last round's intermission. The transition out of LISTEN
// is the single point where round resolution happens.
func (s *RoomState) advancePhase(now int64, tun Tunables) bool {
	if s.Lifecycle != LifecycleRunning {
		return false
	}
	switch s.Phase {
	case PhaseListen:
		s.resolveCurrentRound(tun)
		s.Phase = PhaseReveal
		s.PhaseStartedAt = now
		s.PhaseEndsAt = now + tun.RevealMs
	case PhaseReveal:
		s.Phase = PhaseIntermission
		s.PhaseStartedAt = now
		s.PhaseEndsAt = now + tun.IntermissionMs
	case PhaseIntermission:
		if s.RoundIndex >= len(s.Rounds)-1 {
			s.Lifecycle = LifecycleFinished
			s.PhaseStartedAt = now
			s.PhaseEndsAt = now
			return true
		}
		s.RoundIndex++
		s.Phase = PhaseListen
		s.PhaseStartedAt = now
		s.PhaseEndsAt = now + tun.ListenMs
	default:
		return false
	}
	return true
}

// tick applies advancePhase while the wall clock has passed the phase
// deadline. The iteration guard bounds the catch-up work a very stale host
// clock can trigger.
func (s *RoomState) tick(now int64, tun Tunables) bool {
	changed := false
	for i := 0; i < tun.MaxTickIterations; i++ {
		if s.Lifecycle != LifecycleRunning || now < s.PhaseEndsAt {
			break
		}
		if !s.advancePhase(now, tun) {
			break
		}
		changed = true
	}
	return changed
}

// resolveCurrentRound scores the round the index points at and promotes it
// into the timeline. Idempotent per round: an existing breakdown entry
// short-circuits.
func (s *RoomState) resolveCurrentRound(tun Tunables) bool {
	r, ok := s.CurrentRound()
	if !ok {
		return false
	}
	if _, done := s.RoundBreakdowns[r.ID]; done {
		return false
	}
	entries := BuildTimelineEntries(s.TimelineRoundIDs, s.Rounds)
	perPlayer := scoreRound(s, r, entries, tun)
	for playerID, b := range perPlayer {
		s.Scores[playerID] += b.TotalPoints
	}
	s.RoundBreakdowns[r.ID] = perPlayer
	s.TimelineRoundIDs = append(s.TimelineRoundIDs, r.ID)
	return true
}

// submitGuess records a write-once guess for an eligible player.
func (s *RoomState) submitGuess(playerID, roundID, trackRef, artistRef string, now int64) bool {
	if s.Lifecycle != LifecycleRunning || !s.isAllowedPlayer(playerID) {
		return false
	}
	if _, ok := s.roundByID(roundID); !ok {
		return false
	}
	key := SubmissionKey(playerID, roundID)
	if _, exists := s.GuessSubmissions[key]; exists {
		return false
	}
	s.GuessSubmissions[key] = GuessSubmission{
		TrackRef:    trackRef,
		ArtistRef:   artistRef,
		SubmittedAt: now,
	}
	return true
}

// submitTimeline records or moves a timeline placement. Requires a prior
// guess for the same key; the insert index clamps against the current
// timeline length. Resubmitting before resolution overwrites the index but
// keeps the original submission instant. A resolved round is frozen.
func (s *RoomState) submitTimeline(playerID, roundID string, insertIndex float64, now int64) bool {
	key := SubmissionKey(playerID, roundID)
	if _, ok := s.GuessSubmissions[key]; !ok {
		return false
	}
	if _, resolved := s.RoundBreakdowns[roundID]; resolved {
		return false
	}
	entries := BuildTimelineEntries(s.TimelineRoundIDs, s.Rounds)
	idx := ClampTimelineInsertIndex(insertIndex, len(entries))
	if prev, ok := s.TimelineSubmissions[key]; ok {
		if prev.InsertIndex == idx {
			return false
		}
		s.TimelineSubmissions[key] = TimelineSubmission{InsertIndex: idx, SubmittedAt: prev.SubmittedAt}
		return true
	}
	s.TimelineSubmissions[key] = TimelineSubmission{InsertIndex: idx, SubmittedAt: now}
	return true
}

// updatePreloadReadiness merges a readiness report, short-circuiting when the
// value is unchanged.
func (s *RoomState) updatePreloadReadiness(playerID string, r PreloadReadiness, now int64) bool {
	if playerID == "" {
		return false
	}
	prev, exists := s.PreloadReadiness[playerID]
	r.UpdatedAt = now
	if exists &&
		prev.AssetsLoaded == r.AssetsLoaded &&
		prev.IndexLoaded == r.IndexLoaded &&
		prev.AssetHash == r.AssetHash {
		return false
	}
	s.PreloadReadiness[playerID] = r
	return true
}

// applyLobbySetup reassigns playlist selection and/or round count while in
// the lobby and re-samples the round set. Because the round set changes
// identity, all per-game submission/score/breakdown maps reset. Previously
// selected round ids are preferred so minor edits keep the same rounds.
func (s *RoomState) applyLobbySetup(playlistIDs []string, songCount int, pool []Round, tun Tunables, rng *rand.Rand) bool {
	if s.Lifecycle != LifecycleLobby {
		return false
	}
	if playlistIDs != nil {
		s.PlaylistIDs = append([]string{}, playlistIDs...)
	}
	if songCount > 0 {
		s.GameSongCount = songCount
	}
	if s.GameSongCount <= 0 {
		s.GameSongCount = tun.DefaultSongCount
	}
	preferred := make([]string, 0, len(s.Rounds))
	for _, r := range s.Rounds {
		preferred = append(preferred, r.ID)
	}
	s.Rounds = SampleRounds(pool, s.GameSongCount, preferred, rng)
	s.GameSongCount = len(s.Rounds)
	s.resetPerGameState()
	return true
}

func (s *RoomState) resetPerGameState() {
	s.GuessSubmissions = map[string]GuessSubmission{}
	s.TimelineSubmissions = map[string]TimelineSubmission{}
	s.TimelineRoundIDs = []string{}
	s.Scores = map[string]int{}
	s.RoundBreakdowns = map[string]map[string]FacetBreakdown{}
	s.RoundIndex = 0
}
