// Package report assembles store/counters snapshots into the data the
// external publishing side consumes. Rendering (plots, HTML) and
// transfer are not this program's concern; it writes plain JSON.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/meshwatch/meshwatch/state"
	"github.com/meshwatch/meshwatch/store"
)

// Rates holds per-category hourly packet rates computed from the
// counters since the ingestion epoch.
type Rates struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Epoch       time.Time      `json:"epoch"`
	PerHour     map[string]int `json:"per_hour"`
	Decoded     uint64         `json:"decoded"`
	Encrypted   uint64         `json:"encrypted"`
}

// NodeInfo is a node row prepared for publishing.
type NodeInfo struct {
	ID           string    `json:"id"`
	ShortName    string    `json:"short_name,omitempty"`
	LongName     string    `json:"long_name,omitempty"`
	Seen         time.Time `json:"seen"`
	Lat          *float64  `json:"lat,omitempty"`
	Lon          *float64  `json:"lon,omitempty"`
	Role         string    `json:"role"`
	Hardware     int       `json:"hardware"`
	TraceOrigins int       `json:"trace_origins"`
}

// LinkInfo is a directed edge prepared for publishing. SNR is the
// display form; "? dB" stands for the unreported sentinel.
type LinkInfo struct {
	Source string    `json:"source"`
	Dest   string    `json:"dest"`
	SNR    string    `json:"snr"`
	Seen   time.Time `json:"seen"`
}

// PacketInfo is the last occurrence of one packet type from one node.
type PacketInfo struct {
	Node string    `json:"node"`
	Type string    `json:"type"`
	Seen time.Time `json:"seen"`
}

// Network is the full periodic export.
type Network struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Window      string       `json:"window"`
	NodeCount   int          `json:"node_count"`
	LinkCount   int          `json:"link_count"`
	Nodes       []NodeInfo   `json:"nodes"`
	Links       []LinkInfo   `json:"links"`
	Packets     []PacketInfo `json:"packets"`
}

// BuildRates converts raw counts into packets-per-hour, rounded up the
// way the published statistics always were.
func BuildRates(cs state.CountersSnapshot, now time.Time) Rates {
	rates := Rates{
		GeneratedAt: now,
		Epoch:       cs.Epoch,
		PerHour:     make(map[string]int, len(cs.Counts)),
		Decoded:     cs.Decoded,
		Encrypted:   cs.Encrypted,
	}
	if cs.Epoch.IsZero() {
		return rates
	}
	elapsed := now.Sub(cs.Epoch).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	for cat, count := range cs.Counts {
		rates.PerHour[cat.String()] = int(math.Ceil(float64(count) / elapsed * 3600))
	}
	return rates
}

// CollectNetwork reads the network model scoped by since (zero = all).
// The caller holds the shared lock for the duration of the reads.
func CollectNetwork(db *store.Store, since time.Time, now time.Time) (*Network, error) {
	nodes, err := db.Nodes(since)
	if err != nil {
		return nil, err
	}
	links, err := db.Links(since)
	if err != nil {
		return nil, err
	}
	packets, err := db.Packets(since)
	if err != nil {
		return nil, err
	}

	window := "all"
	if !since.IsZero() {
		window = "24h"
	}
	net := &Network{
		GeneratedAt: now,
		Window:      window,
		NodeCount:   len(nodes),
		LinkCount:   len(links),
	}
	for _, n := range nodes {
		net.Nodes = append(net.Nodes, NodeInfo{
			ID:           n.ID.Hex(),
			ShortName:    n.ShortName,
			LongName:     n.LongName,
			Seen:         n.Seen,
			Lat:          n.Lat,
			Lon:          n.Lon,
			Role:         state.RoleName(n.Role),
			Hardware:     n.Hardware,
			TraceOrigins: n.TraceOrigins,
		})
	}
	for _, l := range links {
		net.Links = append(net.Links, LinkInfo{
			Source: l.Source.Hex(),
			Dest:   l.Dest.Hex(),
			SNR:    FormatSNR(l.SNR),
			Seen:   l.Seen,
		})
	}
	for _, p := range packets {
		net.Packets = append(net.Packets, PacketInfo{
			Node: p.Node.Hex(),
			Type: p.Code.String(),
			Seen: p.Seen,
		})
	}
	return net, nil
}

// FormatSNR renders a link SNR for display.
func FormatSNR(snr float64) string {
	if snr <= state.SNRUnknown {
		return "? dB"
	}
	return fmt.Sprintf("%.2f dB", snr)
}

// WriteJSON writes v to dir/name, replacing any previous report.
func WriteJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}
