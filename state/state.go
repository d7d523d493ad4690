package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dustin/go-broadcast"
)

// Env is the shared context object constructed once at startup and
// passed to the ingest loop, the router and the scheduler jobs. It
// replaces any process-global state.
type Env struct {
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger
	Cfg     Config

	// Lock serializes every store write, every store snapshot read and
	// every counter access between the ingest loop and scheduler jobs.
	// Update rates are human-scale, so one lock is enough.
	Lock sync.Mutex

	Counters *Counters

	// Trace fans out every applied event to live subscribers (debug
	// logging, tests). Submissions never block the ingest loop.
	Trace broadcast.Broadcaster
}

// Running reports whether shutdown has been requested. Both long-lived
// loops check this at the top of every iteration and after any blocking
// call returns.
func (e *Env) Running() bool {
	return e.Context.Err() == nil
}
