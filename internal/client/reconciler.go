// internal/client/reconciler.go
package client

import (
	"sync"

	"github.com/trackline/trackline/internal/room"
)

// Reconciler merges inbound remote snapshots with local state. Both the poll
// path and the push channel can deliver snapshots out of order or
// redundantly, so every merge applies a monotonic-update-wins rule: accept
// the incoming snapshot when its updatedAt is strictly greater than the
// local one, or when the timestamps tie but the structural fingerprint
// differs. The tie case guards against a same-millisecond snapshot that
// nonetheless carries newer content under coarse timer granularity.
type Reconciler struct {
	mu    sync.Mutex
	state *room.RoomState
}

// NewReconciler starts with no local state; the first merge always wins.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Merge applies the monotonic rule and reports whether the incoming snapshot
// was accepted.
func (r *Reconciler) Merge(incoming *room.RoomState) bool {
	if incoming == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		r.state = incoming.Clone()
		return true
	}
	if incoming.UpdatedAt < r.state.UpdatedAt {
		return false
	}
	if incoming.UpdatedAt == r.state.UpdatedAt && incoming.Fingerprint() == r.state.Fingerprint() {
		return false
	}
	r.state = incoming.Clone()
	return true
}

// State returns a copy of the current local state, or nil before the first
// merge.
func (r *Reconciler) State() *room.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil
	}
	return r.state.Clone()
}
