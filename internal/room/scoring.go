// internal/room/scoring.go
package room

import "math"

// FacetPoints computes the time-decayed award for one correct facet.
//
// Full credit at the instant the phase opened, decaying linearly to zero at
// the phase deadline, rounded to the nearest integer. The submission
// timestamp is clamped into [phaseStart, phaseEnd] first so late or early
// timestamp noise can never produce negative or over-100% credit.
func FacetPoints(ceiling int, submittedAt, phaseStart, phaseEnd int64) int {
	if ceiling <= 0 {
		return 0
	}
	at := submittedAt
	if at < phaseStart {
		at = phaseStart
	}
	if at > phaseEnd {
		at = phaseEnd
	}
	window := phaseEnd - phaseStart
	if window < 1 {
		window = 1
	}
	frac := 1 - float64(at-phaseStart)/float64(window)
	if frac < 0 {
		frac = 0
	}
	return int(math.Round(float64(ceiling) * frac))
}

// scoreRound computes the per-player breakdowns for one round against the
// timeline as it stood before the round resolved. All three facets decay from
// the guess submission timestamp, not the timeline submission's: the policy
// rewards overall round speed, not just timeline speed.
func scoreRound(s *RoomState, r Round, entries []Round, tun Tunables) map[string]FacetBreakdown {
	perPlayer := make(map[string]FacetBreakdown)
	for _, playerID := range s.AllowedPlayerIDs {
		key := SubmissionKey(playerID, r.ID)
		guess, ok := s.GuessSubmissions[key]
		if !ok {
			continue
		}
		var b FacetBreakdown
		b.TrackCorrect = guess.TrackRef != "" && guess.TrackRef == r.TrackRef
		b.ArtistCorrect = guess.ArtistRef != "" && guess.ArtistRef == r.ArtistRef
		if ts, ok := s.TimelineSubmissions[key]; ok {
			idx := ClampTimelineInsertIndex(float64(ts.InsertIndex), len(entries))
			b.TimelineCorrect = IsTimelineInsertCorrect(entries, r.Year, idx)
		}
		if b.TrackCorrect {
			b.TrackPoints = FacetPoints(tun.TrackPoints, guess.SubmittedAt, s.PhaseStartedAt, s.PhaseEndsAt)
		}
		if b.ArtistCorrect {
			b.ArtistPoints = FacetPoints(tun.ArtistPoints, guess.SubmittedAt, s.PhaseStartedAt, s.PhaseEndsAt)
		}
		if b.TimelineCorrect {
			b.TimelinePoints = FacetPoints(tun.TimelinePoints, guess.SubmittedAt, s.PhaseStartedAt, s.PhaseEndsAt)
		}
		b.TotalPoints = b.TrackPoints + b.ArtistPoints + b.TimelinePoints
		perPlayer[playerID] = b
	}
	return perPlayer
}
