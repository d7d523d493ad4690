package route

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dustin/go-broadcast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshwatch/meshwatch/state"
	"github.com/meshwatch/meshwatch/store"
)

func testRouter(t *testing.T) (*Router, *state.Env, *store.Store) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "network.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancelCause(context.Background())
	env := &state.Env{
		Context:  ctx,
		Cancel:   cancel,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Counters: state.NewCounters(),
		Trace:    broadcast.NewBroadcaster(16),
	}
	t.Cleanup(func() {
		cancel(nil)
		env.Trace.Close()
	})

	r := New(env, db)
	r.now = func() time.Time { return time.Unix(5000, 0) }
	return r, env, db
}

func TestApplyPacketEvent(t *testing.T) {
	r, env, db := testRouter(t)

	r.Apply(state.PacketEvent{From: 0x1a2b, Code: state.PortPosition, Category: state.CatPosition})

	env.Lock.Lock()
	snap := env.Counters.Snapshot()
	env.Lock.Unlock()
	assert.Equal(t, uint64(1), snap.Counts[state.CatPosition])

	packets, err := db.Packets(time.Time{})
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, state.NodeID(0x1a2b), packets[0].Node)
	assert.Equal(t, state.PortPosition, packets[0].Code)
	assert.Equal(t, time.Unix(5000, 0), packets[0].Seen)
}

func TestApplyUncountedPacketEvent(t *testing.T) {
	r, env, db := testRouter(t)

	r.Apply(state.PacketEvent{From: 0x1a2b, Code: state.PortUnknown, Category: state.CatNone})

	packets, err := db.Packets(time.Time{})
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, state.PortUnknown, packets[0].Code)

	env.Lock.Lock()
	snap := env.Counters.Snapshot()
	env.Lock.Unlock()
	for cat, count := range snap.Counts {
		assert.Zero(t, count, "category %s", cat)
	}
}

func TestApplyTelemetryEvent(t *testing.T) {
	r, env, db := testRouter(t)

	r.Apply(state.TelemetryEvent{From: 0x1a2b, Code: state.PortPowerTelemetry, Category: state.CatPowerTelemetry})

	env.Lock.Lock()
	snap := env.Counters.Snapshot()
	env.Lock.Unlock()
	assert.Equal(t, uint64(1), snap.Counts[state.CatPowerTelemetry])

	packets, err := db.Packets(time.Time{})
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, state.PortPowerTelemetry, packets[0].Code)
}

func TestApplyDecodeAndCRCTouchCountersOnly(t *testing.T) {
	r, env, db := testRouter(t)

	r.Apply(state.DecodeEvent{Encrypted: false})
	r.Apply(state.DecodeEvent{Encrypted: true})
	r.Apply(state.CRCErrorEvent{})

	env.Lock.Lock()
	snap := env.Counters.Snapshot()
	env.Lock.Unlock()
	assert.Equal(t, uint64(1), snap.Decoded)
	assert.Equal(t, uint64(1), snap.Encrypted)
	assert.Equal(t, uint64(1), snap.Counts[state.CatError7])

	nodes, err := db.Nodes(time.Time{})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestApplyNodeEvents(t *testing.T) {
	r, _, db := testRouter(t)

	r.Apply(state.IdentityEvent{ID: 0x1a2b, ShortName: "ALC", LongName: "Alice"})
	r.Apply(state.PositionEvent{ID: 0x1a2b, Lat: 48.1, Lon: 11.3})
	r.Apply(state.RoleEvent{ID: 0x1a2b, Role: 2, Hardware: 9})

	nodes, err := db.Nodes(time.Time{})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "ALC", nodes[0].ShortName)
	require.NotNil(t, nodes[0].Lat)
	assert.Equal(t, 48.1, *nodes[0].Lat)
	assert.Equal(t, 2, nodes[0].Role)
}

func TestApplyTraceHop(t *testing.T) {
	r, _, db := testRouter(t)

	r.Apply(state.TraceHopEvent{Source: 0x1111, Dest: 0x2222, SNR: 4.5, FirstHop: true})

	links, err := db.Links(time.Time{})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 4.5, links[0].SNR)

	nodes, err := db.Nodes(time.Time{})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
}

func TestApplyBroadcastsToTrace(t *testing.T) {
	r, env, _ := testRouter(t)

	tap := make(chan interface{}, 4)
	env.Trace.Register(tap)
	defer env.Trace.Unregister(tap)

	ev := state.RoleEvent{ID: 0x1a2b, Role: 1, Hardware: 4}
	r.Apply(ev)

	select {
	case got := <-tap:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("event never reached the trace tap")
	}
}

func TestApplyStoreFailureDropsEvent(t *testing.T) {
	r, env, db := testRouter(t)

	tap := make(chan interface{}, 4)
	env.Trace.Register(tap)
	defer env.Trace.Unregister(tap)

	require.NoError(t, db.Close())

	// Must not panic and must not broadcast the dropped event.
	r.Apply(state.IdentityEvent{ID: 0x1a2b, ShortName: "ALC", LongName: "Alice"})
	select {
	case <-tap:
		t.Fatal("dropped event was broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestApplyStoreFailureDoesNotCount(t *testing.T) {
	r, env, db := testRouter(t)

	require.NoError(t, db.Close())

	r.Apply(state.PacketEvent{From: 0x1a2b, Code: state.PortPosition, Category: state.CatPosition})
	r.Apply(state.TelemetryEvent{From: 0x1a2b, Code: state.PortDeviceTelemetry, Category: state.CatDeviceTelemetry})

	env.Lock.Lock()
	snap := env.Counters.Snapshot()
	env.Lock.Unlock()
	assert.Zero(t, snap.Counts[state.CatPosition])
	assert.Zero(t, snap.Counts[state.CatDeviceTelemetry])
}
