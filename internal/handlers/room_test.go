// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/trackline/internal/room"
)

// fixedSource serves a static pool, or a fixed error when set.
type fixedSource struct {
	pool []room.Round
	err  error
}

func (f *fixedSource) LoadRounds(ctx context.Context, playlistIDs []string) ([]room.Round, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]room.Round{}, f.pool...), nil
}

func testPool(n int) []room.Round {
	pool := make([]room.Round, n)
	for i := range pool {
		pool[i] = room.Round{
			ID:        fmt.Sprintf("song-%02d", i),
			TrackRef:  fmt.Sprintf("track:%02d", i),
			Title:     fmt.Sprintf("Song %02d", i),
			ArtistRef: fmt.Sprintf("artist:%02d", i),
			Year:      1960 + i,
			MediaURI:  fmt.Sprintf("media://test/%02d", i),
		}
	}
	return pool
}

func setupServer(t *testing.T, source room.RoundSource) (*httptest.Server, *room.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	store := room.NewStore(clockwork.NewRealClock(), source, logger, room.DefaultTunables())
	srv := httptest.NewServer(NewServer(store, logger).Router(nil))
	t.Cleanup(srv.Close)
	return srv, store
}

func postCommand(t *testing.T, srv *httptest.Server, roomID string, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/rooms/"+roomID+"/commands", "application/json",
		bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestCreateRoomReturnsFreshLobby(t *testing.T) {
	srv, _ := setupServer(t, &fixedSource{pool: testPool(12)})

	resp, err := http.Post(srv.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var snap room.RoomState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.NotEmpty(t, snap.RoomID)
	assert.Equal(t, room.LifecycleLobby, snap.Lifecycle)
	assert.Empty(t, snap.Participants)
}

func TestRoomStateCreatesUnknownRoomsImplicitly(t *testing.T) {
	srv, _ := setupServer(t, &fixedSource{pool: testPool(12)})

	resp, err := http.Get(srv.URL + "/rooms/some-room/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap room.RoomState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "some-room", snap.RoomID)
	assert.Equal(t, room.LifecycleLobby, snap.Lifecycle)
}

func TestCommandRoundTripReturnsUpdatedSnapshot(t *testing.T) {
	srv, _ := setupServer(t, &fixedSource{pool: testPool(12)})

	resp, body := postCommand(t, srv, "r1",
		`{"type": "upsertParticipant", "playerId": "p1", "name": "Ada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var participants []room.Participant
	require.NoError(t, json.Unmarshal(body["participants"], &participants))
	require.Len(t, participants, 1)
	assert.Equal(t, "Ada", participants[0].Name)
}

func TestCommandValidationFailuresAre400(t *testing.T) {
	srv, store := setupServer(t, &fixedSource{pool: testPool(12)})

	for name, body := range map[string]string{
		"unknown type":           `{"type": "explode"}`,
		"upsert without player":  `{"type": "upsertParticipant", "name": "Ada"}`,
		"guess without round":    `{"type": "submitGuess", "playerId": "p1"}`,
		"timeline without index": `{"type": "submitTimeline", "playerId": "p1", "roundId": "x"}`,
		"readiness without body": `{"type": "updatePreloadReadiness", "playerId": "p1"}`,
		"non-positive count":     `{"type": "updateRoundCount", "songCount": 0}`,
		"replace without state":  `{"type": "replaceState"}`,
	} {
		resp, body := postCommand(t, srv, "r1", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
		assert.NotEmpty(t, body["error"], name)
	}

	// No rejection above may have touched the room.
	assert.Empty(t, store.Snapshot("r1").Participants)
}

func TestMalformedJSONIs400(t *testing.T) {
	srv, _ := setupServer(t, &fixedSource{pool: testPool(12)})

	resp, _ := postCommand(t, srv, "r1", `{"type": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogFailureOnStartIs502(t *testing.T) {
	srv, _ := setupServer(t, &fixedSource{err: errors.New("catalog unreachable")})

	_, _ = postCommand(t, srv, "r1", `{"type": "upsertParticipant", "playerId": "p1", "name": "Ada"}`)
	resp, _ := postCommand(t, srv, "r1", `{"type": "startGame"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestReplaceStateSanitizesCandidate(t *testing.T) {
	srv, _ := setupServer(t, &fixedSource{pool: testPool(12)})

	resp, body := postCommand(t, srv, "r1", `{
		"type": "replaceState",
		"state": {"roomId": "spoofed", "lifecycle": "bogus", "updatedAt": 42}
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.JSONEq(t, `"r1"`, string(body["roomId"]), "the room id in the path wins")
	assert.JSONEq(t, `"lobby"`, string(body["lifecycle"]))
}

func TestWSReplaysSnapshotOnConnectAndPushesUpdates(t *testing.T) {
	srv, store := setupServer(t, &fixedSource{pool: testPool(12)})
	store.UpsertParticipant("ws-room", "p1", "Ada")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/rooms/ws-room/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// First frame is the replay of the current snapshot.
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	replay, err := room.ParseSnapshot(data)
	require.NoError(t, err)
	require.Len(t, replay.Participants, 1)
	assert.Equal(t, "Ada", replay.Participants[0].Name)

	// A mutation through the store is pushed to the subscriber.
	_, changed := store.UpsertParticipant("ws-room", "p2", "Grace")
	require.True(t, changed)

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	pushed, err := room.ParseSnapshot(data)
	require.NoError(t, err)
	assert.Len(t, pushed.Participants, 2)
	assert.Greater(t, pushed.UpdatedAt, replay.UpdatedAt)
}
