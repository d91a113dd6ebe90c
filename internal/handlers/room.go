// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trackline/trackline/internal/room"
)

// CommandEnvelope is the tagged payload accepted by the command endpoint.
// The type field selects the command; the remaining fields are per-command
// and validated before anything reaches the store.
type CommandEnvelope struct {
	Type string `json:"type"`

	PlayerID    string                 `json:"playerId,omitempty"`
	Name        string                 `json:"name,omitempty"`
	RoundID     string                 `json:"roundId,omitempty"`
	TrackRef    string                 `json:"trackRef,omitempty"`
	ArtistRef   string                 `json:"artistRef,omitempty"`
	InsertIndex *float64               `json:"insertIndex,omitempty"`
	Now         int64                  `json:"now,omitempty"`
	Readiness   *room.PreloadReadiness `json:"readiness,omitempty"`
	PlaylistIDs []string               `json:"playlistIds,omitempty"`
	SongCount   int                    `json:"songCount,omitempty"`
	State       json.RawMessage        `json:"state,omitempty"`
}

// errBadCommand marks validation failures that must surface as client errors.
var errBadCommand = errors.New("bad command")

func badCommandf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{errBadCommand}, args...)...)
}

// CreateRoomHandler mints a fresh room id and returns its lobby snapshot.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := uuid.NewString()
	snapshot := s.Store.Snapshot(roomID)
	writeJSON(w, http.StatusCreated, snapshot)
}

// RoomStateHandler returns the point-in-time snapshot of a room. Unknown
// rooms come back as implicitly created lobbies.
func (s *Server) RoomStateHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "missing room id")
		return
	}
	writeJSON(w, http.StatusOK, s.Store.Snapshot(roomID))
}

// RoomCommandHandler applies one named command against a room and returns
// the resulting snapshot. Malformed payloads are rejected here with a client
// error and no state mutation; policy rejections inside the store come back
// as the unchanged snapshot.
func (s *Server) RoomCommandHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "missing room id")
		return
	}

	var env CommandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid command payload: "+err.Error())
		return
	}

	snapshot, err := s.applyCommand(r, roomID, env)
	if err != nil {
		if errors.Is(err, errBadCommand) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			s.Logger.WithError(err).WithField("room", roomID).Error("Command failed on external dependency")
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) applyCommand(r *http.Request, roomID string, env CommandEnvelope) (*room.RoomState, error) {
	ctx := r.Context()
	switch env.Type {
	case "replaceState":
		if len(env.State) == 0 {
			return nil, badCommandf("replaceState requires a state payload")
		}
		candidate, err := room.ParseSnapshot(env.State)
		if err != nil {
			return nil, badCommandf("%v", err)
		}
		snap, _ := s.Store.ReplaceState(roomID, candidate)
		return snap, nil

	case "upsertParticipant":
		if env.PlayerID == "" {
			return nil, badCommandf("upsertParticipant requires playerId")
		}
		snap, _ := s.Store.UpsertParticipant(roomID, env.PlayerID, env.Name)
		return snap, nil

	case "removeParticipant":
		if env.PlayerID == "" {
			return nil, badCommandf("removeParticipant requires playerId")
		}
		snap, _ := s.Store.RemoveParticipant(roomID, env.PlayerID)
		return snap, nil

	case "startGame":
		snap, _, err := s.Store.StartGame(ctx, roomID)
		return snap, err

	case "advancePhase":
		snap, _ := s.Store.AdvancePhase(roomID)
		return snap, nil

	case "tick":
		snap, _ := s.Store.Tick(roomID, env.Now)
		return snap, nil

	case "submitGuess":
		if env.PlayerID == "" || env.RoundID == "" {
			return nil, badCommandf("submitGuess requires playerId and roundId")
		}
		snap, _ := s.Store.SubmitGuess(roomID, env.PlayerID, env.RoundID, env.TrackRef, env.ArtistRef)
		return snap, nil

	case "submitTimeline":
		if env.PlayerID == "" || env.RoundID == "" || env.InsertIndex == nil {
			return nil, badCommandf("submitTimeline requires playerId, roundId and insertIndex")
		}
		snap, _ := s.Store.SubmitTimeline(roomID, env.PlayerID, env.RoundID, *env.InsertIndex)
		return snap, nil

	case "updatePreloadReadiness":
		if env.PlayerID == "" || env.Readiness == nil {
			return nil, badCommandf("updatePreloadReadiness requires playerId and readiness")
		}
		snap, _ := s.Store.UpdatePreloadReadiness(roomID, env.PlayerID, *env.Readiness)
		return snap, nil

	case "updatePlaylistSelection":
		if env.PlaylistIDs == nil {
			return nil, badCommandf("updatePlaylistSelection requires playlistIds")
		}
		snap, _, err := s.Store.UpdatePlaylistSelection(ctx, roomID, env.PlaylistIDs)
		return snap, err

	case "updateRoundCount":
		if env.SongCount <= 0 {
			return nil, badCommandf("updateRoundCount requires a positive songCount")
		}
		snap, _, err := s.Store.UpdateRoundCount(ctx, roomID, env.SongCount)
		return snap, err

	case "applyLobbySetup":
		snap, _, err := s.Store.ApplyLobbySetup(ctx, roomID, env.PlaylistIDs, env.SongCount)
		return snap, err

	default:
		return nil, badCommandf("unknown command type %q", env.Type)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
