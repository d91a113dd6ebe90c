// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/trackline/trackline/internal/middleware"
	"github.com/trackline/trackline/internal/room"
)

// keepAliveInterval paces the server-side pings that keep intermediaries
// from reaping idle push connections.
const keepAliveInterval = 15 * time.Second

// RoomWSHandler upgrades the connection to the push channel for one room.
// The current snapshot is replayed immediately on connect, every accepted
// command produces a fresh snapshot, and the subscription is torn down
// cleanly when the client goes away. Reconnecting is the client's job; no
// per-connection resume state exists.
func (s *Server) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.WithError(err).WithField("room", roomID).Warn("WebSocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler exit")
	middleware.LogPushConnect(s.Logger, r.RemoteAddr, roomID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := s.Store.Subscribe(roomID)
	defer unsubscribe()

	// Replay the current snapshot before any update can arrive.
	if err := writeSnapshot(ctx, c, s.Store.Snapshot(roomID)); err != nil {
		middleware.LogPushDisconnect(s.Logger, r.RemoteAddr, roomID, err)
		return
	}

	// Drain inbound frames so pongs and client closes are processed. The
	// push channel carries no client commands; those go over HTTP.
	go func() {
		for {
			if _, _, err := c.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			middleware.LogPushDisconnect(s.Logger, r.RemoteAddr, roomID, nil)
			c.Close(websocket.StatusNormalClosure, "bye")
			return
		case snapshot, ok := <-updates:
			if !ok {
				c.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			if err := writeSnapshot(ctx, c, snapshot); err != nil {
				middleware.LogPushDisconnect(s.Logger, r.RemoteAddr, roomID, err)
				return
			}
		case <-keepAlive.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				middleware.LogPushDisconnect(s.Logger, r.RemoteAddr, roomID, err)
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, c *websocket.Conn, snapshot *room.RoomState) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}
