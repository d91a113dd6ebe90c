// internal/room/room.go
package room

import (
	"fmt"
	"strings"
)

// Lifecycle is the coarse room state.
type Lifecycle string

const (
	LifecycleLobby    Lifecycle = "lobby"
	LifecycleRunning  Lifecycle = "running"
	LifecycleFinished Lifecycle = "finished"
)

// Phase is the sub-state of an active round. Meaningful only while running.
type Phase string

const (
	PhaseListen       Phase = "LISTEN"
	PhaseReveal       Phase = "REVEAL"
	PhaseIntermission Phase = "INTERMISSION"
)

// Participant is one connected identity in a room.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	JoinedAt   int64  `json:"joinedAt"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

// Round is one song-guessing unit with a known correct track/artist/year.
// Immutable once assigned to a room's in-progress game.
type Round struct {
	ID            string `json:"id"`
	TrackRef      string `json:"trackRef"`
	Title         string `json:"title"`
	ArtistRef     string `json:"artistRef"`
	ArtistName    string `json:"artistName"`
	Year          int    `json:"year"`
	MediaURI      string `json:"mediaUri"`
	StartOffsetMs int    `json:"startOffsetMs"`
}

// GuessSubmission is a player's write-once track/artist guess for one round.
type GuessSubmission struct {
	TrackRef    string `json:"trackRef"`
	ArtistRef   string `json:"artistRef"`
	SubmittedAt int64  `json:"submittedAt"`
}

// TimelineSubmission is a player's timeline placement for one round. The
// insert index stays mutable until the round resolves; SubmittedAt keeps the
// instant of the first submission.
type TimelineSubmission struct {
	InsertIndex int   `json:"insertIndex"`
	SubmittedAt int64 `json:"submittedAt"`
}

// PreloadReadiness tracks how far a player's client has preloaded assets.
type PreloadReadiness struct {
	AssetsLoaded bool   `json:"assetsLoaded"`
	IndexLoaded  bool   `json:"indexLoaded"`
	AssetHash    string `json:"assetHash"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// FacetBreakdown records one player's scoring outcome for one resolved round.
type FacetBreakdown struct {
	TrackCorrect    bool `json:"trackCorrect"`
	TrackPoints     int  `json:"trackPoints"`
	ArtistCorrect   bool `json:"artistCorrect"`
	ArtistPoints    int  `json:"artistPoints"`
	TimelineCorrect bool `json:"timelineCorrect"`
	TimelinePoints  int  `json:"timelinePoints"`
	TotalPoints     int  `json:"totalPoints"`
}

// RoomState is the authoritative state for one room. It is the wire contract
// every observer parses; field names are stable.
type RoomState struct {
	RoomID         string    `json:"roomId"`
	Lifecycle      Lifecycle `json:"lifecycle"`
	Phase          Phase     `json:"phase"`
	RoundIndex     int       `json:"roundIndex"`
	PhaseStartedAt int64     `json:"phaseStartedAt"`
	PhaseEndsAt    int64     `json:"phaseEndsAt"`
	UpdatedAt      int64     `json:"updatedAt"`

	Participants     []Participant `json:"participants"`
	AllowedPlayerIDs []string      `json:"allowedPlayerIds"`

	PlaylistIDs   []string `json:"playlistIds"`
	GameSongCount int      `json:"gameSongCount"`
	Rounds        []Round  `json:"rounds"`

	GuessSubmissions    map[string]GuessSubmission           `json:"guessSubmissions"`
	TimelineSubmissions map[string]TimelineSubmission        `json:"timelineSubmissions"`
	PreloadReadiness    map[string]PreloadReadiness          `json:"preloadReadiness"`
	TimelineRoundIDs    []string                             `json:"timelineRoundIds"`
	Scores              map[string]int                       `json:"scores"`
	RoundBreakdowns     map[string]map[string]FacetBreakdown `json:"roundBreakdowns"`
}

// SubmissionKey builds the map key for guess/timeline submissions.
func SubmissionKey(playerID, roundID string) string {
	return playerID + ":" + roundID
}

// NewRoomState returns an empty lobby for the given room id.
func NewRoomState(roomID string, now int64) *RoomState {
	return &RoomState{
		RoomID:              roomID,
		Lifecycle:           LifecycleLobby,
		Phase:               PhaseListen,
		RoundIndex:          0,
		PhaseStartedAt:      now,
		PhaseEndsAt:         now,
		UpdatedAt:           now,
		Participants:        []Participant{},
		AllowedPlayerIDs:    []string{},
		PlaylistIDs:         []string{},
		Rounds:              []Round{},
		GuessSubmissions:    map[string]GuessSubmission{},
		TimelineSubmissions: map[string]TimelineSubmission{},
		PreloadReadiness:    map[string]PreloadReadiness{},
		TimelineRoundIDs:    []string{},
		Scores:              map[string]int{},
		RoundBreakdowns:     map[string]map[string]FacetBreakdown{},
	}
}

// Clone returns a deep copy of the state so callers can never mutate the
// store's authoritative object through a returned snapshot.
func (s *RoomState) Clone() *RoomState {
	c := *s
	c.Participants = append([]Participant{}, s.Participants...)
	c.AllowedPlayerIDs = append([]string{}, s.AllowedPlayerIDs...)
	c.PlaylistIDs = append([]string{}, s.PlaylistIDs...)
	c.Rounds = append([]Round{}, s.Rounds...)
	c.TimelineRoundIDs = append([]string{}, s.TimelineRoundIDs...)

	c.GuessSubmissions = make(map[string]GuessSubmission, len(s.GuessSubmissions))
	for k, v := range s.GuessSubmissions {
		c.GuessSubmissions[k] = v
	}
	c.TimelineSubmissions = make(map[string]TimelineSubmission, len(s.TimelineSubmissions))
	for k, v := range s.TimelineSubmissions {
		c.TimelineSubmissions[k] = v
	}
	c.PreloadReadiness = make(map[string]PreloadReadiness, len(s.PreloadReadiness))
	for k, v := range s.PreloadReadiness {
		c.PreloadReadiness[k] = v
	}
	c.Scores = make(map[string]int, len(s.Scores))
	for k, v := range s.Scores {
		c.Scores[k] = v
	}
	c.RoundBreakdowns = make(map[string]map[string]FacetBreakdown, len(s.RoundBreakdowns))
	for roundID, perPlayer := range s.RoundBreakdowns {
		inner := make(map[string]FacetBreakdown, len(perPlayer))
		for pid, b := range perPlayer {
			inner[pid] = b
		}
		c.RoundBreakdowns[roundID] = inner
	}
	return &c
}

// Fingerprint summarizes the structural content of a snapshot. Reconciliation
// uses it to break ties between snapshots carrying the same updatedAt, which
// can happen under coarse timer granularity.
func (s *RoomState) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%d|%d|%d|%d",
		s.Lifecycle, s.Phase, s.RoundIndex, s.PhaseEndsAt,
		len(s.Participants), len(s.GuessSubmissions), len(s.TimelineSubmissions),
		len(s.TimelineRoundIDs), len(s.RoundBreakdowns))
}

// CurrentRound returns the round the roundIndex points at, if any.
func (s *RoomState) CurrentRound() (Round, bool) {
	if s.RoundIndex < 0 || s.RoundIndex >= len(s.Rounds) {
		return Round{}, false
	}
	return s.Rounds[s.RoundIndex], true
}

func (s *RoomState) roundByID(roundID string) (Round, bool) {
	for _, r := range s.Rounds {
		if r.ID == roundID {
			return r, true
		}
	}
	return Round{}, false
}

func (s *RoomState) isAllowedPlayer(playerID string) bool {
	for _, id := range s.AllowedPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// participantColors is the palette cycled through as players join.
var participantColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
}

func colorForIndex(i int) string {
	if i < 0 {
		i = 0
	}
	return participantColors[i%len(participantColors)]
}

// Tunables holds the policy constants of the state machine and scoring
// engine. Values are tunable, not structural.
type Tunables struct {
	ListenMs       int64
	RevealMs       int64
	IntermissionMs int64

	TrackPoints    int
	ArtistPoints   int
	TimelinePoints int

	StaleAfterMs      int64
	PresenceDebounce  int64
	MaxTickIterations int
	DefaultSongCount  int
}

// DefaultTunables returns the stock constant table.
func DefaultTunables() Tunables {
	return Tunables{
		ListenMs:          30000,
		RevealMs:          8000,
		IntermissionMs:    8000,
		TrackPoints:       1000,
		ArtistPoints:      600,
		TimelinePoints:    800,
		StaleAfterMs:      20000,
		PresenceDebounce:  2000,
		MaxTickIterations: 12,
		DefaultSongCount:  10,
	}
}

func normalizeRoomID(roomID string) string {
	return strings.TrimSpace(roomID)
}
