// internal/client/observer.go
package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/trackline/trackline/internal/handlers"
	"github.com/trackline/trackline/internal/room"
)

// NewPlayerID mints a fresh client identity.
func NewPlayerID() string {
	return uuid.NewString()
}

// Observer runs the per-client reconciliation loops for one room. Two
// sources feed the same Reconciler on purpose: the fixed-interval poll is
// the guaranteed-eventual-consistency path, and the push subscription is the
// low-latency path. Either one failing leaves the other intact; transport
// failures are retried on the existing interval and are never fatal.
type Observer struct {
	RoomID     string
	PlayerID   string
	Name       string
	Transport  Transport
	Reconciler *Reconciler
	Clock      clockwork.Clock
	Logger     *logrus.Logger

	// PollInterval paces the pull path. Zero means 2s.
	PollInterval time.Duration
	// HeartbeatInterval paces presence refreshes. Zero means 5s.
	HeartbeatInterval time.Duration

	// OnUpdate, when set, fires after every accepted merge.
	OnUpdate func(*room.RoomState)
}

func (o *Observer) pollInterval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return 2 * time.Second
}

func (o *Observer) heartbeatInterval() time.Duration {
	if o.HeartbeatInterval > 0 {
		return o.HeartbeatInterval
	}
	return 5 * time.Second
}

func (o *Observer) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

func (o *Observer) merge(snapshot *room.RoomState) {
	if snapshot == nil {
		return
	}
	if o.Reconciler.Merge(snapshot) && o.OnUpdate != nil {
		o.OnUpdate(o.Reconciler.State())
	}
}

// Run drives the poll, subscription, and presence loops until the context
// ends.
func (o *Observer) Run(ctx context.Context) {
	go o.runSubscription(ctx)
	go o.runHeartbeat(ctx)
	o.runPoll(ctx)
}

func (o *Observer) runPoll(ctx context.Context) {
	ticker := o.Clock.NewTicker(o.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			snapshot, err := o.Transport.FetchState(ctx, o.RoomID)
			if err != nil {
				o.logger().WithError(err).WithField("room", o.RoomID).Warn("Poll failed, retrying on interval")
				continue
			}
			o.merge(snapshot)
		}
	}
}

// runSubscription keeps a push subscription alive, re-dialing after the
// stream drops. The poll loop covers any gap in between. Both a failed dial
// and a closed stream wait one interval before the next attempt so a
// restarting server is never hammered with reconnects.
func (o *Observer) runSubscription(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		updates, cancel, err := o.Transport.Subscribe(ctx, o.RoomID)
		if err != nil {
			o.logger().WithError(err).WithField("room", o.RoomID).Warn("Subscribe failed, retrying")
		} else {
			for snapshot := range updates {
				o.merge(snapshot)
			}
			cancel()
		}
		select {
		case <-ctx.Done():
			return
		case <-o.Clock.After(o.pollInterval()):
		}
	}
}

// runHeartbeat refreshes this identity's presence so the store's staleness
// pruning keeps the participant alive.
func (o *Observer) runHeartbeat(ctx context.Context) {
	if o.PlayerID == "" {
		return
	}
	send := func() {
		res := <-Dispatch(ctx, o.Transport, o.RoomID, handlers.CommandEnvelope{
			Type:     "upsertParticipant",
			PlayerID: o.PlayerID,
			Name:     o.Name,
		})
		if res.Err != nil {
			o.logger().WithError(res.Err).WithField("room", o.RoomID).Warn("Presence refresh failed")
			return
		}
		o.merge(res.Snapshot)
	}
	send()
	ticker := o.Clock.NewTicker(o.heartbeatInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			send()
		}
	}
}

// SubmitGuess issues a guess command for this observer's identity.
func (o *Observer) SubmitGuess(ctx context.Context, roundID, trackRef, artistRef string) <-chan DispatchResult {
	return Dispatch(ctx, o.Transport, o.RoomID, handlers.CommandEnvelope{
		Type:      "submitGuess",
		PlayerID:  o.PlayerID,
		RoundID:   roundID,
		TrackRef:  trackRef,
		ArtistRef: artistRef,
	})
}

// SubmitTimeline issues a timeline placement for this observer's identity.
func (o *Observer) SubmitTimeline(ctx context.Context, roundID string, insertIndex float64) <-chan DispatchResult {
	return Dispatch(ctx, o.Transport, o.RoomID, handlers.CommandEnvelope{
		Type:        "submitTimeline",
		PlayerID:    o.PlayerID,
		RoundID:     roundID,
		InsertIndex: &insertIndex,
	})
}
