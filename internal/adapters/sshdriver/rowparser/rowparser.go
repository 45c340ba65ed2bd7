// Package rowparser classifies and decodes the lines a RouterOS scan or
// sniff table redraws over an interactive SSH shell.
//
// There is no original_source/ reference for this behaviour: mt-ssh.c (which
// would hold the real column layout and report format) is absent from the
// retrieval pack, only mt-ssh.h's enums survive. This package is designed
// directly from spec.md's prose description of the table/report contract --
// stable column offsets discovered from a header row, and a sniffer summary
// emitted as a single snapshot line -- rather than ported from reference C.
package rowparser

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

// Kind classifies one committed terminal line.
type Kind int

const (
	KindOther Kind = iota
	KindHeader
	KindNetwork
	KindSniffer
	KindPrompt
)

// header column labels, matched case-insensitively against a candidate
// header row. Order doesn't matter for discovery; offsets are recorded by
// where each label actually starts in that particular row.
var headerLabels = []string{
	"ADDRESS", "SSID", "CHANNEL", "FREQ", "FLAGS",
	"SIGNAL", "NOISE", "RADIO-NAME", "ROUTEROS-VER", "LAST-SEEN",
}

// Header records the byte offset of each known column within a header row,
// discovered once and reused for every subsequent tabular row until the next
// redraw cycle sends a new header.
type Header struct {
	offsets map[string]int
	order   []string // labels present, in ascending offset order
	width   int
}

// DiscoverHeader recognises a header row: one containing both ADDRESS and
// SSID labels, the two columns every RouterOS scan/sniff table always
// carries. It returns ok=false for anything else.
func DiscoverHeader(line string) (Header, bool) {
	upper := strings.ToUpper(line)
	if !strings.Contains(upper, "ADDRESS") || !strings.Contains(upper, "SSID") {
		return Header{}, false
	}

	h := Header{offsets: make(map[string]int)}
	for _, label := range headerLabels {
		if idx := strings.Index(upper, label); idx >= 0 {
			h.offsets[label] = idx
		}
	}
	if len(h.offsets) < 2 {
		return Header{}, false
	}

	h.order = make([]string, 0, len(h.offsets))
	for label := range h.offsets {
		h.order = append(h.order, label)
	}
	sortByOffset(h.order, h.offsets)
	h.width = len(line)
	return h, true
}

func sortByOffset(labels []string, offsets map[string]int) {
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0 && offsets[labels[j-1]] > offsets[labels[j]]; j-- {
			labels[j-1], labels[j] = labels[j], labels[j-1]
		}
	}
}

// field extracts the substring belonging to label: from its own offset up to
// the next known column's offset (or end of line for the last column).
func (h Header) field(line, label string) (string, bool) {
	start, ok := h.offsets[label]
	if !ok {
		return "", false
	}
	end := len(line)
	for _, other := range h.order {
		off := h.offsets[other]
		if off > start && off < end {
			end = off
		}
	}
	if start >= len(line) {
		return "", true
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end]), true
}

// Classify inspects one committed line against an already-discovered header
// (nil if none has been seen yet this redraw cycle) and reports what kind of
// line it is.
func Classify(line string, hdr *Header) Kind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return KindOther
	}
	if _, isHeader := DiscoverHeader(line); isHeader {
		return KindHeader
	}
	if IsPrompt(trimmed) {
		return KindPrompt
	}
	if IsSnifferSummary(trimmed) {
		return KindSniffer
	}
	if hdr != nil {
		if _, parsed := ParseNetworkRow(line, *hdr, time.Now()); parsed {
			return KindNetwork
		}
	}
	return KindOther
}

// IsPrompt recognises a RouterOS CLI prompt line, e.g. "[admin@router] >".
func IsPrompt(line string) bool {
	return strings.HasPrefix(line, "[") && strings.Contains(line, "] >")
}

// sniffer-summary keys, printed as a single key=value snapshot line. No
// original_source/ reference exists for the exact report format; this is the
// key=value rendering spec.md's prose implies ("emitted as a single snapshot
// message").
var snifferKeys = []string{
	"packets", "memory-size", "memory-saved", "memory-over-limit",
	"stream-dropped", "stream-sent", "file-limit", "memory-limit",
}

// IsSnifferSummary reports whether line carries at least two recognised
// sniffer-report keys.
func IsSnifferSummary(line string) bool {
	lower := strings.ToLower(line)
	count := 0
	for _, key := range snifferKeys {
		if strings.Contains(lower, key+"=") {
			count++
		}
	}
	return count >= 2
}

// ParseSnifferRow decodes a key=value sniffer summary line.
func ParseSnifferRow(line string) (SnifferStats, bool) {
	values := make(map[string]int)
	for _, tok := range strings.Fields(line) {
		kv := strings.SplitN(tok, "=", 2)
		if len(kv) != 2 {
			continue
		}
		n, err := strconv.Atoi(kv[1])
		if err != nil {
			continue
		}
		values[strings.ToLower(kv[0])] = n
	}
	if len(values) < 2 {
		return SnifferStats{}, false
	}
	return SnifferStats{
		ProcessedPackets:     values["packets"],
		MemorySize:           values["memory-size"],
		MemorySavedPackets:   values["memory-saved"],
		MemoryOverLimitPkts:  values["memory-over-limit"],
		StreamDroppedPackets: values["stream-dropped"],
		StreamSentPackets:    values["stream-sent"],
		RealFileLimit:        values["file-limit"],
		RealMemoryLimit:      values["memory-limit"],
	}, true
}

// SnifferStats is one decoded sniffer-summary snapshot. sshdriver.SnifferStats
// is a type alias of this so the row parser and the driver share one
// definition.
type SnifferStats struct {
	ProcessedPackets     int
	MemorySize           int
	MemorySavedPackets   int
	MemoryOverLimitPkts  int
	StreamDroppedPackets int
	StreamSentPackets    int
	RealFileLimit        int
	RealMemoryLimit      int
}

// flagLetters are the single-character scan-table flags this parser
// recognises, in no particular order; "A" (active) is intentionally absent,
// since Activity is a consolidation-model concept, not a property a sample
// carries.
const flagLetters = "PRNTWB"

// ParseNetworkRow decodes one tabular row into a NetworkRecord using the
// column offsets hdr discovered from the header row. now stamps both
// FirstSeen and LastSeen, since this path doesn't have a separate
// "last-seen" column value more precise than "now the row redrew".
func ParseNetworkRow(line string, hdr Header, now time.Time) (domain.NetworkRecord, bool) {
	addrField, ok := hdr.field(line, "ADDRESS")
	if !ok || len(addrField) < 12 {
		return domain.NetworkRecord{}, false
	}
	addr, ok := parseAddress(addrField)
	if !ok {
		return domain.NetworkRecord{}, false
	}

	rec := *domain.NewNetworkRecord(addr)
	rec.FirstSeen = now
	rec.LastSeen = now

	if v, ok := hdr.field(line, "SSID"); ok {
		rec.SSID = v
	}
	if v, ok := hdr.field(line, "CHANNEL"); ok {
		rec.Channel = v
	}
	if v, ok := hdr.field(line, "RADIO-NAME"); ok {
		rec.RadioName = v
	}
	if v, ok := hdr.field(line, "ROUTEROS-VER"); ok {
		rec.RouterOSVer = v
	}
	if v, ok := hdr.field(line, "FREQ"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			rec.Frequency = n
		}
	}
	if v, ok := hdr.field(line, "SIGNAL"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			rec.RSSI = int8(n)
		}
	}
	if v, ok := hdr.field(line, "NOISE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			rec.Noise = int8(n)
		}
	}
	if v, ok := hdr.field(line, "FLAGS"); ok {
		applyFlags(&rec, v)
	}

	rec.Latitude = math.NaN()
	rec.Longitude = math.NaN()
	rec.Altitude = math.NaN()
	rec.Accuracy = math.NaN()
	rec.Azimuth = math.NaN()
	rec.Distance = math.NaN()

	return rec, true
}

func applyFlags(rec *domain.NetworkRecord, flags string) {
	upper := strings.ToUpper(flags)
	has := func(c byte) domain.Tri {
		return domain.TriFromBool(strings.IndexByte(upper, c) >= 0)
	}
	for i := 0; i < len(flagLetters); i++ {
		switch flagLetters[i] {
		case 'P':
			rec.Privacy = has('P')
		case 'R':
			rec.RouterOS = has('R')
		case 'N':
			rec.Nstreme = has('N')
		case 'T':
			rec.TDMA = has('T')
		case 'W':
			rec.WDS = has('W')
		case 'B':
			rec.Bridge = has('B')
		}
	}
}

// parseAddress decodes a bare 12-hex-digit BSSID with no separators, the
// form RouterOS prints in its scan table's ADDRESS column.
func parseAddress(s string) ([6]byte, bool) {
	var addr [6]byte
	s = strings.ReplaceAll(s, ":", "")
	if len(s) < 12 {
		return addr, false
	}
	s = s[:12]
	for i := 0; i < 6; i++ {
		n, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return addr, false
		}
		addr[i] = byte(n)
	}
	return addr, true
}
