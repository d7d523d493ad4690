package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshwatch/meshwatch/state"
	"github.com/meshwatch/meshwatch/store"
)

func TestBuildRates(t *testing.T) {
	epoch := time.Unix(10000, 0)
	now := epoch.Add(2 * time.Hour)

	cs := state.CountersSnapshot{
		Counts: map[state.Category]uint64{
			state.CatPosition: 100, // 50/h
			state.CatText:     3,   // 1.5/h, rounds up
			state.CatAdmin:    0,
		},
		Decoded:   42,
		Encrypted: 7,
		Epoch:     epoch,
	}

	rates := BuildRates(cs, now)
	assert.Equal(t, epoch, rates.Epoch)
	assert.Equal(t, 50, rates.PerHour["Position"])
	assert.Equal(t, 2, rates.PerHour["Text"])
	assert.Equal(t, 0, rates.PerHour["Admin"])
	assert.Equal(t, uint64(42), rates.Decoded)
	assert.Equal(t, uint64(7), rates.Encrypted)
}

func TestBuildRatesBeforeEpoch(t *testing.T) {
	rates := BuildRates(state.CountersSnapshot{
		Counts: map[state.Category]uint64{state.CatText: 5},
	}, time.Unix(10000, 0))

	assert.Empty(t, rates.PerHour)
}

func TestBuildRatesTinyWindow(t *testing.T) {
	epoch := time.Unix(10000, 0)
	rates := BuildRates(state.CountersSnapshot{
		Counts: map[state.Category]uint64{state.CatText: 1},
		Epoch:  epoch,
	}, epoch)

	// Sub-second uptime is clamped so the rate stays finite.
	assert.Equal(t, 3600, rates.PerHour["Text"])
}

func TestFormatSNR(t *testing.T) {
	assert.Equal(t, "4.50 dB", FormatSNR(4.5))
	assert.Equal(t, "-1.25 dB", FormatSNR(-1.25))
	assert.Equal(t, "? dB", FormatSNR(state.SNRUnknown))
}

func TestCollectNetwork(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "network.sqlite3"))
	require.NoError(t, err)
	defer db.Close()

	seen := time.Unix(20000, 0)
	require.NoError(t, db.UpsertNodeIdentity(0x1a2b, "ALC", "Alice", seen))
	require.NoError(t, db.UpsertNodeRole(0x1a2b, 2, 9, seen))
	require.NoError(t, db.RecordTraceHop(0x1a2b, 0x3c4d, state.SNRUnknown, true, seen))
	require.NoError(t, db.RecordPacket(0x1a2b, state.PortNodeInfo, seen))

	now := seen.Add(time.Hour)
	net, err := CollectNetwork(db, time.Time{}, now)
	require.NoError(t, err)

	assert.Equal(t, "all", net.Window)
	assert.Equal(t, 2, net.NodeCount)
	assert.Equal(t, 1, net.LinkCount)

	require.Len(t, net.Nodes, 2)
	alice := net.Nodes[0]
	assert.Equal(t, "00001A2B", alice.ID)
	assert.Equal(t, "ALC", alice.ShortName)
	assert.Equal(t, "Router", alice.Role)
	assert.Equal(t, 1, alice.TraceOrigins)

	wantLinks := []LinkInfo{
		{Source: "00001A2B", Dest: "00003C4D", SNR: "? dB", Seen: seen},
	}
	if diff := cmp.Diff(wantLinks, net.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, net.Packets, 1)
	assert.Equal(t, "nodeinfo", net.Packets[0].Type)
}

func TestCollectNetworkWindowed(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "network.sqlite3"))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	require.NoError(t, db.UpsertNodeIdentity(0x0001, "OLD", "Old", now.Add(-48*time.Hour)))
	require.NoError(t, db.UpsertNodeIdentity(0x0002, "NEW", "New", now))

	net, err := CollectNetwork(db, now.Add(-24*time.Hour), now)
	require.NoError(t, err)

	assert.Equal(t, "24h", net.Window)
	assert.Equal(t, 1, net.NodeCount)
	require.Len(t, net.Nodes, 1)
	assert.Equal(t, "NEW", net.Nodes[0].ShortName)
}

func TestWriteJSONReplacesAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "web")

	require.NoError(t, WriteJSON(dir, "stats.json", map[string]int{"v": 1}))
	require.NoError(t, WriteJSON(dir, "stats.json", map[string]int{"v": 2}))

	data, err := os.ReadFile(filepath.Join(dir, "stats.json"))
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got["v"])

	// No temp file left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stats.json", entries[0].Name())
}
