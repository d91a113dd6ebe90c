// internal/room/validate.go
package room

import (
	"encoding/json"
	"fmt"
)

// ParseSnapshot decodes and revalidates an inbound state snapshot. Inbound
// payloads are never trusted verbatim: structural errors (not an object,
// wrong field types) reject with an error, and a well-formed payload is then
// normalized field by field so unknown or out-of-range values default
// instead of poisoning the store.
func ParseSnapshot(data []byte) (*RoomState, error) {
	var candidate RoomState
	if err := json.Unmarshal(data, &candidate); err != nil {
		return nil, fmt.Errorf("invalid state snapshot: %w", err)
	}
	candidate.Normalize()
	return &candidate, nil
}

// Normalize clamps and defaults every field so the state satisfies the
// model's invariants regardless of where the snapshot came from.
func (s *RoomState) Normalize() {
	switch s.Lifecycle {
	case LifecycleLobby, LifecycleRunning, LifecycleFinished:
	default:
		s.Lifecycle = LifecycleLobby
	}
	switch s.Phase {
	case PhaseListen, PhaseReveal, PhaseIntermission:
	default:
		s.Phase = PhaseListen
	}

	if s.RoundIndex < 0 {
		s.RoundIndex = 0
	}
	if len(s.Rounds) > 0 && s.RoundIndex >= len(s.Rounds) {
		s.RoundIndex = len(s.Rounds) - 1
	}
	if len(s.Rounds) == 0 {
		s.RoundIndex = 0
	}

	if s.PhaseStartedAt < 0 {
		s.PhaseStartedAt = 0
	}
	if s.PhaseEndsAt < s.PhaseStartedAt {
		s.PhaseEndsAt = s.PhaseStartedAt
	}
	if s.UpdatedAt < 0 {
		s.UpdatedAt = 0
	}
	if s.GameSongCount < 0 {
		s.GameSongCount = 0
	}

	seen := make(map[string]bool, len(s.Participants))
	kept := s.Participants[:0]
	for _, p := range s.Participants {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if p.LastSeenAt < p.JoinedAt {
			p.LastSeenAt = p.JoinedAt
		}
		kept = append(kept, p)
	}
	s.Participants = kept

	if s.Participants == nil {
		s.Participants = []Participant{}
	}
	if s.AllowedPlayerIDs == nil {
		s.AllowedPlayerIDs = []string{}
	}
	if s.PlaylistIDs == nil {
		s.PlaylistIDs = []string{}
	}
	if s.Rounds == nil {
		s.Rounds = []Round{}
	}
	if s.TimelineRoundIDs == nil {
		s.TimelineRoundIDs = []string{}
	}
	if s.GuessSubmissions == nil {
		s.GuessSubmissions = map[string]GuessSubmission{}
	}
	if s.TimelineSubmissions == nil {
		s.TimelineSubmissions = map[string]TimelineSubmission{}
	}
	if s.PreloadReadiness == nil {
		s.PreloadReadiness = map[string]PreloadReadiness{}
	}
	if s.Scores == nil {
		s.Scores = map[string]int{}
	}
	if s.RoundBreakdowns == nil {
		s.RoundBreakdowns = map[string]map[string]FacetBreakdown{}
	}
}
