// internal/client/transport.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/trackline/trackline/internal/handlers"
	"github.com/trackline/trackline/internal/room"
)

// Transport is the synchronization contract an observer depends on. The
// reconciler and loops only ever see this interface, never a concrete wire
// implementation.
type Transport interface {
	// FetchState returns a point-in-time snapshot of the room.
	FetchState(ctx context.Context, roomID string) (*room.RoomState, error)
	// SendCommand applies one command and returns the resulting snapshot.
	SendCommand(ctx context.Context, roomID string, cmd handlers.CommandEnvelope) (*room.RoomState, error)
	// Subscribe attaches to the room's push channel. The cancel function
	// abandons the subscription; the channel closes when the stream ends.
	Subscribe(ctx context.Context, roomID string) (<-chan *room.RoomState, func(), error)
}

// DispatchResult is the outcome of an asynchronous command dispatch.
type DispatchResult struct {
	Snapshot *room.RoomState
	Err      error
}

// Dispatch sends a command asynchronously and returns a result channel the
// caller may consume or ignore. Ignoring the channel is an explicit caller
// choice; the primitive itself never swallows failures.
func Dispatch(ctx context.Context, t Transport, roomID string, cmd handlers.CommandEnvelope) <-chan DispatchResult {
	out := make(chan DispatchResult, 1)
	go func() {
		snap, err := t.SendCommand(ctx, roomID, cmd)
		out <- DispatchResult{Snapshot: snap, Err: err}
		close(out)
	}()
	return out
}

// HTTPTransport implements Transport against the service's HTTP and
// websocket surface.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTransport builds a transport for the given base URL, e.g.
// "http://localhost:8080".
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchState implements Transport.
func (t *HTTPTransport) FetchState(ctx context.Context, roomID string) (*room.RoomState, error) {
	url := fmt.Sprintf("%s/rooms/%s/state", t.BaseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching state for room %s: %w", roomID, err)
	}
	defer resp.Body.Close()
	return decodeSnapshotResponse(resp)
}

// SendCommand implements Transport.
func (t *HTTPTransport) SendCommand(ctx context.Context, roomID string, cmd handlers.CommandEnvelope) (*room.RoomState, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/rooms/%s/commands", t.BaseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending %s to room %s: %w", cmd.Type, roomID, err)
	}
	defer resp.Body.Close()
	return decodeSnapshotResponse(resp)
}

// Subscribe implements Transport by dialing the room's websocket push
// channel and decoding each frame into a snapshot.
func (t *HTTPTransport) Subscribe(ctx context.Context, roomID string) (<-chan *room.RoomState, func(), error) {
	url := fmt.Sprintf("%s/rooms/%s/ws", t.BaseURL, roomID)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing push channel for room %s: %w", roomID, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	out := make(chan *room.RoomState, 8)
	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		for {
			_, data, err := conn.Read(streamCtx)
			if err != nil {
				return
			}
			snapshot, err := room.ParseSnapshot(data)
			if err != nil {
				continue
			}
			select {
			case out <- snapshot:
			case <-streamCtx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

func decodeSnapshotResponse(resp *http.Response) (*room.RoomState, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("server rejected request: %s", e.Error)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return room.ParseSnapshot(data)
}
