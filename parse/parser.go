// Package parse extracts typed events from the free-form Meshtastic
// debug log. The grammar is a fixed set of patterns checked in priority
// order; the first match wins and a line is consumed by at most one
// rule. Telemetry packets span two lines, so the parser carries the
// pending origin id between calls.
package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jellydator/ttlcache/v3"
	"github.com/meshwatch/meshwatch/state"
)

var (
	reTraceHop = regexp.MustCompile(`([0-9abcdef]{8}) ?(\(([0-9.-]{0,6})dB\))?`)
	reNodeInfo = regexp.MustCompile(`user\s([\w\W\s]*?), id=0x([0-9abcdef]{8})`)
	rePosition = regexp.MustCompile(`POSITION node=(?P<id>[0-9abcdef]{8}).*lat=(?P<lat>[0-9]+).*lon=(?P<lon>[0-9]+)`)
	rePacketRx = regexp.MustCompile(`Received (?P<type>[A-Za-z ]+) from=(?P<from>[0-9abcdefx]+)[ ,a-z=]+[0-9abcdefx]+[ ,a-z=]+(?P<port>[0-9abcdefx]+)`)
	reDecode   = regexp.MustCompile(`decoded message|no PSK`)
	reRole     = regexp.MustCompile(`Role (?P<id>[0-9abcdef]{8}) = (?P<role>[0-9]+), HW = (?P<hw>[0-9]+)`)
)

// telemetryMarkers disambiguate which telemetry subtype the detail line
// describes. The field names are mutually exclusive across subtypes.
var telemetryMarkers = []struct {
	field    string
	code     state.PortCode
	category state.Category
}{
	{"air_util_tx", state.PortDeviceTelemetry, state.CatDeviceTelemetry},
	{"ch1_voltage", state.PortPowerTelemetry, state.CatPowerTelemetry},
	{"barometric_pressure", state.PortEnvironmentTelemetry, state.CatEnvironmentTelemetry},
	{"diskfree", state.PortHostMetrics, state.CatHostMetrics},
	{"pm10_standard", state.PortAirQuality, state.CatAirQuality},
	{"heart_bpm", state.PortHealthTelemetry, state.CatHealthTelemetry},
}

// Parser is the per-source line scanner. It is not safe for concurrent
// use; one source feeds one parser.
type Parser struct {
	log *slog.Logger

	// pending telemetry continuation: the previous line announced a
	// telemetry packet and the next line identifies its subtype.
	awaitingTelemetry bool
	telemetryFrom     state.NodeID

	unknownTypes *ttlcache.Cache[string, struct{}]
}

func New(log *slog.Logger) *Parser {
	p := &Parser{
		log: log,
		unknownTypes: ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](state.WarnDedupTTL),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
	}
	go p.unknownTypes.Start()
	return p
}

// Close stops the warning-dedup cache janitor.
func (p *Parser) Close() {
	p.unknownTypes.Stop()
}

// Line consumes one log line and returns the events it carries. Most
// rules yield zero or one event; a traceroute line yields one event per
// valid hop.
func (p *Parser) Line(line string) []state.Event {
	// A telemetry announcement consumes the following line regardless
	// of whether a known subtype field is present.
	if p.awaitingTelemetry {
		from := p.telemetryFrom
		p.awaitingTelemetry = false
		p.telemetryFrom = 0
		for _, m := range telemetryMarkers {
			if strings.Contains(line, m.field) {
				return []state.Event{state.TelemetryEvent{From: from, Code: m.code, Category: m.category}}
			}
		}
		return nil
	}

	if m := rePacketRx.FindStringSubmatch(line); m != nil {
		return p.packetReceived(m)
	}

	if m := reDecode.FindString(line); m != "" {
		return []state.Event{state.DecodeEvent{Encrypted: m == "no PSK"}}
	}

	if m := reNodeInfo.FindStringSubmatch(line); m != nil {
		return nodeInfo(m)
	}

	if m := rePosition.FindStringSubmatch(line); m != nil {
		return position(m)
	}

	if m := reRole.FindStringSubmatch(line); m != nil {
		return role(m)
	}

	if strings.Contains(line, "error=-7") {
		return []state.Event{state.CRCErrorEvent{}}
	}

	if strings.HasPrefix(line, "#Start") || strings.HasPrefix(line, "|") || strings.HasPrefix(line, "#Back") {
		return traceHops(line)
	}

	return nil
}

func (p *Parser) packetReceived(m []string) []state.Event {
	typ := strings.ToLower(m[rePacketRx.SubexpIndex("type")])
	if typ == "routing" {
		// Routing packets are deliberately excluded from counting.
		return nil
	}
	from, ok := parseID(m[rePacketRx.SubexpIndex("from")])
	if !ok || !from.Valid() {
		return nil
	}
	code, ok := state.PortForName(typ)
	if !ok {
		if !p.unknownTypes.Has(typ) {
			p.unknownTypes.Set(typ, struct{}{}, ttlcache.DefaultTTL)
			p.log.Warn("unknown packet type", "type", typ, "from", from.Hex())
		}
		return nil
	}
	if code == state.PortTelemetry {
		// Need one more line to tell which kind of telemetry this is.
		p.awaitingTelemetry = true
		p.telemetryFrom = from
		return nil
	}
	// Every name in the port table yields an event; "unknown" (port 0)
	// is persisted but has no counter category.
	cat, ok := state.CategoryForName(typ)
	if !ok {
		cat = state.CatNone
	}
	return []state.Event{state.PacketEvent{From: from, Code: code, Category: cat}}
}

func nodeInfo(m []string) []state.Event {
	id, ok := parseID(m[2])
	if !ok || !id.Valid() {
		return nil
	}
	// Names arrive as "Long Name / #SHORT"; split on the last slash.
	name := m[1]
	long := name
	short := ""
	if i := strings.LastIndex(name, "/"); i >= 0 {
		long = name[:i]
		short = name[i+1:]
	}
	short = strings.Trim(short, " #")
	if short == "" {
		short = id.ShortHex()
	}
	long = strings.Trim(long, " #")
	if long == "" {
		long = id.Hex()
	}
	return []state.Event{state.IdentityEvent{ID: id, ShortName: short, LongName: long}}
}

func position(m []string) []state.Event {
	id, ok := parseID(m[rePosition.SubexpIndex("id")])
	if !ok || !id.Valid() {
		return nil
	}
	lat, err1 := strconv.ParseInt(m[rePosition.SubexpIndex("lat")], 10, 64)
	lon, err2 := strconv.ParseInt(m[rePosition.SubexpIndex("lon")], 10, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return []state.Event{state.PositionEvent{
		ID:  id,
		Lat: float64(lat) * 1e-7,
		Lon: float64(lon) * 1e-7,
	}}
}

func role(m []string) []state.Event {
	id, ok := parseID(m[reRole.SubexpIndex("id")])
	if !ok || !id.Valid() {
		return nil
	}
	roleNum, err1 := strconv.Atoi(m[reRole.SubexpIndex("role")])
	hw, err2 := strconv.Atoi(m[reRole.SubexpIndex("hw")])
	if err1 != nil || err2 != nil {
		return nil
	}
	return []state.Event{state.RoleEvent{ID: id, Role: roleNum, Hardware: hw}}
}

// traceHops splits a route report into directed two-node hops. The
// leading marker segment ("#Start", "|", "#Back") carries no node id
// and simply produces no pair.
func traceHops(line string) []state.Event {
	var events []state.Event
	segments := strings.Split(line, ">")
	first := true
	consumed := false
	for n := 0; n < len(segments)-1; n++ {
		srcConsumed := consumed
		consumed = false
		src := reTraceHop.FindStringSubmatch(segments[n])
		dst := reTraceHop.FindStringSubmatch(strings.TrimSpace(segments[n+1]))
		if src == nil || dst == nil {
			continue
		}
		source, ok1 := parseID(src[1])
		dest, ok2 := parseID(dst[1])
		if !ok1 || !ok2 {
			continue
		}
		if !source.Valid() || !dest.Valid() || source == dest {
			continue
		}
		// The dB annotation trails the receiving node. When the route
		// marker swallowed it, it is left on the sending segment; that
		// fallback only applies while the sending segment's annotation
		// has not already served as the previous hop's SNR.
		snr := state.SNRUnknown
		if dst[3] != "" {
			if v, err := strconv.ParseFloat(dst[3], 64); err == nil {
				snr = v
				consumed = true
			}
		} else if !srcConsumed && src[3] != "" {
			if v, err := strconv.ParseFloat(src[3], 64); err == nil {
				snr = v
			}
		}
		events = append(events, state.TraceHopEvent{
			Source:   source,
			Dest:     dest,
			SNR:      snr,
			FirstHop: first,
		})
		first = false
	}
	return events
}

func parseID(s string) (state.NodeID, bool) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return state.NodeID(v), true
}
