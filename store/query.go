package store

import (
	"database/sql"
	"time"

	"github.com/meshwatch/meshwatch/state"
)

// Node is one row of the node model.
type Node struct {
	ID           state.NodeID
	ShortName    string
	LongName     string
	Seen         time.Time
	Lat          *float64
	Lon          *float64
	Role         int
	Hardware     int
	TraceOrigins int
}

// Link is one directed edge with its most recent SNR.
type Link struct {
	Source state.NodeID
	Dest   state.NodeID
	SNR    float64 // state.SNRUnknown when never reported
	Seen   time.Time
}

// Packet is the most recent occurrence of a packet type from a node.
type Packet struct {
	Node state.NodeID
	Code state.PortCode
	Seen time.Time
}

// Nodes returns nodes seen after since, or all nodes when since is the
// zero time.
func (s *Store) Nodes(since time.Time) ([]Node, error) {
	rows, err := s.db.Query(
		`SELECT id, shortname, longname, seen, latitude, longitude, role, hardware, tracestart
         FROM nodes WHERE seen > ? ORDER BY id;`, sinceUnix(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var n Node
		var id, seen int64
		var short, long sql.NullString
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&id, &short, &long, &seen, &lat, &lon, &n.Role, &n.Hardware, &n.TraceOrigins); err != nil {
			return nil, err
		}
		n.ID = state.NodeID(id)
		n.ShortName = short.String
		n.LongName = long.String
		n.Seen = time.Unix(seen, 0)
		if lat.Valid {
			n.Lat = &lat.Float64
		}
		if lon.Valid {
			n.Lon = &lon.Float64
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Links returns links seen after since, or all links when since is the
// zero time.
func (s *Store) Links(since time.Time) ([]Link, error) {
	rows, err := s.db.Query(
		`SELECT source, dest, snr, seen FROM links WHERE seen > ? ORDER BY source, dest;`,
		sinceUnix(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		var src, dst, seen int64
		if err := rows.Scan(&src, &dst, &l.SNR, &seen); err != nil {
			return nil, err
		}
		l.Source = state.NodeID(src)
		l.Dest = state.NodeID(dst)
		l.Seen = time.Unix(seen, 0)
		links = append(links, l)
	}
	return links, rows.Err()
}

// Packets returns packet occurrences seen after since, or all when
// since is the zero time.
func (s *Store) Packets(since time.Time) ([]Packet, error) {
	rows, err := s.db.Query(
		`SELECT node, type, seen FROM packets WHERE seen > ? ORDER BY node, type;`,
		sinceUnix(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packets []Packet
	for rows.Next() {
		var p Packet
		var node, code, seen int64
		if err := rows.Scan(&node, &code, &seen); err != nil {
			return nil, err
		}
		p.Node = state.NodeID(node)
		p.Code = state.PortCode(code)
		p.Seen = time.Unix(seen, 0)
		packets = append(packets, p)
	}
	return packets, rows.Err()
}

// NodeCount counts nodes seen after since.
func (s *Store) NodeCount(since time.Time) (int, error) {
	return s.count(`SELECT count(*) FROM nodes WHERE seen > ?;`, since)
}

// LinkCount counts links seen after since.
func (s *Store) LinkCount(since time.Time) (int, error) {
	return s.count(`SELECT count(*) FROM links WHERE seen > ?;`, since)
}

func (s *Store) count(query string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(query, sinceUnix(since)).Scan(&n)
	return n, err
}

// sinceUnix maps the zero time to a bound every row satisfies.
func sinceUnix(since time.Time) int64 {
	if since.IsZero() {
		return -1
	}
	return since.Unix()
}
