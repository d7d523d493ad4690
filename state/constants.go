package state

import "time"

const (
	// Broadcast is the all-ones node id, meaning "no specific recipient".
	// It never enters the node or link model.
	Broadcast NodeID = 0xFFFFFFFF

	// SNRUnknown marks a traceroute hop that carried no dB annotation.
	SNRUnknown float64 = -500
)

var (
	// PollTimeout bounds a single LineSource poll. A blocked poll delays
	// shutdown by at most this long.
	PollTimeout = 5 * time.Second

	// TickInterval is the scheduler poll resolution.
	TickInterval = time.Second

	// WarnDedupTTL suppresses repeated unknown-packet-type warnings.
	WarnDedupTTL = 10 * time.Minute

	SerialBaudRate = 115200

	DefaultJournalUnit = "meshtasticd.service"
	DefaultDatabase    = "network.sqlite3"
	DefaultReportDir   = "web"
	DefaultHourlyMin   = 10
	DefaultDailyTimes  = []string{"11:59", "23:59"}
)
