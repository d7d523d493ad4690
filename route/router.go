// Package route applies parsed events to the shared store and counters.
package route

import (
	"time"

	"github.com/meshwatch/meshwatch/state"
	"github.com/meshwatch/meshwatch/store"
)

// Router dispatches each event to the store and counters. Domain
// validation (broadcast/zero ids, self loops) already happened in the
// parser; the router enforces the locking and error discipline: one
// transaction per event, and a failed write drops that event only.
type Router struct {
	env *state.Env
	db  *store.Store
	now func() time.Time
}

func New(env *state.Env, db *store.Store) *Router {
	return &Router{env: env, db: db, now: time.Now}
}

// Now is the router's clock, injectable in tests.
func (r *Router) Now() time.Time {
	return r.now()
}

// Apply commits one event's effects under the shared lock. A store
// failure is logged and the event dropped; it must never take down the
// ingest loop.
func (r *Router) Apply(ev state.Event) {
	now := r.now()

	r.env.Lock.Lock()
	err := r.apply(ev, now)
	r.env.Lock.Unlock()

	if err != nil {
		r.env.Log.Error("store write failed, event dropped", "event", ev, "error", err)
		return
	}
	r.env.Trace.TrySubmit(ev)
}

func (r *Router) apply(ev state.Event, now time.Time) error {
	switch e := ev.(type) {
	case state.PacketEvent:
		// Count only what the packets table actually recorded.
		if err := r.db.RecordPacket(e.From, e.Code, now); err != nil {
			return err
		}
		r.env.Counters.Increment(e.Category)
	case state.TelemetryEvent:
		if err := r.db.RecordPacket(e.From, e.Code, now); err != nil {
			return err
		}
		r.env.Counters.Increment(e.Category)
	case state.DecodeEvent:
		r.env.Counters.CountDecode(e.Encrypted)
	case state.IdentityEvent:
		return r.db.UpsertNodeIdentity(e.ID, e.ShortName, e.LongName, now)
	case state.PositionEvent:
		return r.db.UpsertNodePosition(e.ID, e.Lat, e.Lon, now)
	case state.RoleEvent:
		return r.db.UpsertNodeRole(e.ID, e.Role, e.Hardware, now)
	case state.CRCErrorEvent:
		r.env.Counters.Increment(state.CatError7)
	case state.TraceHopEvent:
		return r.db.RecordTraceHop(e.Source, e.Dest, e.SNR, e.FirstHop, now)
	}
	return nil
}
