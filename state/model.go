package state

import (
	"fmt"
	"strings"
)

// NodeID is the 32-bit Meshtastic node number.
type NodeID uint32

// Valid reports whether id may enter the node/link model. Zero and the
// broadcast sentinel are always excluded.
func (id NodeID) Valid() bool {
	return id != 0 && id != Broadcast
}

func (id NodeID) Hex() string {
	return fmt.Sprintf("%08X", uint32(id))
}

// ShortHex is the last four hex digits, used as a short-name fallback.
func (id NodeID) ShortHex() string {
	return id.Hex()[4:]
}

// PortCode is the numeric packet type stored with each packet
// occurrence. Values below 256 are Meshtastic port numbers; telemetry
// subtypes occupy their own range starting at 512 because the debug log
// reports them all under port 67.
type PortCode int

const (
	PortUnknown        PortCode = 0
	PortText           PortCode = 1
	PortRemoteHardware PortCode = 2
	PortPosition       PortCode = 3
	PortNodeInfo       PortCode = 4
	PortRouting        PortCode = 5
	PortAdmin          PortCode = 6
	PortWaypoint       PortCode = 8
	PortTelemetry      PortCode = 67
	PortTraceroute     PortCode = 70

	PortDeviceTelemetry      PortCode = 512
	PortPowerTelemetry       PortCode = 513
	PortEnvironmentTelemetry PortCode = 514
	PortHostMetrics          PortCode = 515
	PortAirQuality           PortCode = 516
	PortHealthTelemetry      PortCode = 517
)

// portsByName maps the packet type spelling found in the debug log to
// its port number. There is unfortunately no standard in debug strings,
// so all telemetry spellings collapse onto the generic telemetry port.
var portsByName = map[string]PortCode{
	"unknown":              PortUnknown,
	"text msg":             PortText,
	"remotehardware":       PortRemoteHardware,
	"position":             PortPosition,
	"nodeinfo":             PortNodeInfo,
	"routing":              PortRouting,
	"admin":                PortAdmin,
	"waypoint msg":         PortWaypoint,
	"telemetry":            PortTelemetry,
	"devicetelemetry":      PortTelemetry,
	"powertelemetry":       PortTelemetry,
	"environmenttelemetry": PortTelemetry,
	"hostmetrics":          PortTelemetry,
	"traceroute":           PortTraceroute,
}

// PortForName resolves a lower-cased packet type name from the log.
func PortForName(name string) (PortCode, bool) {
	code, ok := portsByName[strings.ToLower(name)]
	return code, ok
}

func (p PortCode) String() string {
	switch p {
	case PortUnknown:
		return "unknown"
	case PortText:
		return "text msg"
	case PortRemoteHardware:
		return "remotehardware"
	case PortPosition:
		return "position"
	case PortNodeInfo:
		return "nodeinfo"
	case PortRouting:
		return "routing"
	case PortAdmin:
		return "admin"
	case PortWaypoint:
		return "waypoint msg"
	case PortTelemetry:
		return "telemetry"
	case PortTraceroute:
		return "traceroute"
	case PortDeviceTelemetry:
		return "device telemetry"
	case PortPowerTelemetry:
		return "power telemetry"
	case PortEnvironmentTelemetry:
		return "environment telemetry"
	case PortHostMetrics:
		return "host metrics"
	case PortAirQuality:
		return "air quality"
	case PortHealthTelemetry:
		return "health telemetry"
	}
	return fmt.Sprintf("port %d", int(p))
}

// Category is the closed set of counted event kinds. Keying counters by
// this enum instead of free strings means a typo is a compile error,
// not a new ad-hoc counter.
type Category int

// CatNone marks a packet that is persisted but not counted, such as
// port 0 "unknown". Counters.Increment ignores it.
const CatNone Category = -1

const (
	CatText Category = iota
	CatRemoteHardware
	CatPosition
	CatNodeInfo
	CatAdmin
	CatWaypoint
	CatTraceroute
	CatDeviceTelemetry
	CatPowerTelemetry
	CatEnvironmentTelemetry
	CatHostMetrics
	CatAirQuality
	CatHealthTelemetry
	CatError7

	numCategories
)

var categoryNames = [numCategories]string{
	CatText:                 "Text",
	CatRemoteHardware:       "Remote Hardware",
	CatPosition:             "Position",
	CatNodeInfo:             "NodeInfo",
	CatAdmin:                "Admin",
	CatWaypoint:             "Waypoint",
	CatTraceroute:           "Traceroute",
	CatDeviceTelemetry:      "Device Telemetry",
	CatPowerTelemetry:       "Power Telemetry",
	CatEnvironmentTelemetry: "Environment Telemetry",
	CatHostMetrics:          "Host Metrics",
	CatAirQuality:           "Air Quality",
	CatHealthTelemetry:      "Health Telemetry",
	CatError7:               "Error7",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return fmt.Sprintf("category %d", int(c))
	}
	return categoryNames[c]
}

// categoriesByName maps counted packet type names from the log to their
// category. Routing is deliberately absent: routing packets are not
// counted. Telemetry is absent because its category is only known after
// the detail line.
var categoriesByName = map[string]Category{
	"text msg":       CatText,
	"remotehardware": CatRemoteHardware,
	"position":       CatPosition,
	"nodeinfo":       CatNodeInfo,
	"admin":          CatAdmin,
	"waypoint msg":   CatWaypoint,
	"traceroute":     CatTraceroute,
}

// CategoryForName resolves the counter category for a non-telemetry
// packet type name.
func CategoryForName(name string) (Category, bool) {
	cat, ok := categoriesByName[strings.ToLower(name)]
	return cat, ok
}

// RoleNames are the known Meshtastic device roles, indexed by the
// numeric role reported in the log.
var RoleNames = []string{
	"Client",
	"Client Mute",
	"Router",
	"Router Client",
	"Repeater",
	"Tracker",
	"Sensor",
	"TAK",
	"Client Hidden",
	"Lost and Found",
	"TAK Tracker",
	"Router Late",
}

// RoleName maps a numeric role to its name, or "Unknown" when the role
// is outside the known set.
func RoleName(role int) string {
	if role >= 0 && role < len(RoleNames) {
		return RoleNames[role]
	}
	return "Unknown"
}

// Event is one typed observation extracted from a single log line.
type Event interface {
	event()
}

// PacketEvent records that a node emitted a packet of a counted,
// non-telemetry type.
type PacketEvent struct {
	From     NodeID
	Code     PortCode
	Category Category
}

// TelemetryEvent records a telemetry packet whose subtype was resolved
// from the detail line following the generic telemetry announcement.
type TelemetryEvent struct {
	From     NodeID
	Code     PortCode
	Category Category
}

// DecodeEvent records a decode outcome marker.
type DecodeEvent struct {
	Encrypted bool // true for "no PSK", false for "decoded message"
}

// IdentityEvent carries a node's advertised names.
type IdentityEvent struct {
	ID        NodeID
	ShortName string
	LongName  string
}

// PositionEvent carries a node's advertised position in degrees.
type PositionEvent struct {
	ID  NodeID
	Lat float64
	Lon float64
}

// RoleEvent carries a node's advertised role and hardware model.
type RoleEvent struct {
	ID       NodeID
	Role     int
	Hardware int
}

// CRCErrorEvent records a CRC mismatch (radio error -7).
type CRCErrorEvent struct{}

// TraceHopEvent is one directed edge of a traceroute line. FirstHop is
// set on the first valid hop of the line, crediting the route origin.
type TraceHopEvent struct {
	Source   NodeID
	Dest     NodeID
	SNR      float64 // SNRUnknown when the hop carried no dB annotation
	FirstHop bool
}

func (PacketEvent) event()    {}
func (TelemetryEvent) event() {}
func (DecodeEvent) event()    {}
func (IdentityEvent) event()  {}
func (PositionEvent) event()  {}
func (RoleEvent) event()      {}
func (CRCErrorEvent) event()  {}
func (TraceHopEvent) event()  {}
