// Package domain holds the pure, infrastructure-free types shared by every
// component of the aggregator: the network record produced by consolidation
// (C5), the samples fed into it by the TZSP receiver (C2) and SSH driver
// (C3), and the small value types (Tri, WPSState, ActivityState) that give
// those records their shape.
package domain

import (
	"math"
	"time"
)

// NoSignal is the sentinel RSSI/noise value meaning "not reported", mirroring
// the original model's MODEL_NO_SIGNAL (G_MININT8).
const NoSignal int8 = math.MinInt8

// WPSState distinguishes "no WPS IE seen", "WPS seen on a beacon" (no
// device details available) and "WPS seen on a probe response" (full
// manufacturer/model/serial detail available), matching the original
// receiver's wps=1/wps=2 distinction.
type WPSState int8

const (
	WPSAbsent WPSState = iota
	WPSBeaconOnly
	WPSProbeResponse
)

func (s WPSState) String() string {
	switch s {
	case WPSProbeResponse:
		return "probe-response"
	case WPSBeaconOnly:
		return "beacon"
	default:
		return "absent"
	}
}

// ActivityState is the three-valued lifecycle a network record moves
// through between heartbeats: New records are promoted to Active once
// new_timeout elapses since their last sample (or as soon as a fresh sample
// arrives), and any record is demoted to Inactive once active_timeout
// elapses without a fresh sample.
type ActivityState int8

const (
	StateInactive ActivityState = iota
	StateActive
	StateNew
)

func (s ActivityState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateNew:
		return "new"
	default:
		return "inactive"
	}
}

// UpdateKind reports what changed when a sample was merged into the table,
// so an observer can decide whether to re-render, highlight or alarm.
type UpdateKind int8

const (
	UpdateOnlyInactive UpdateKind = iota
	UpdateExisting
	UpdateNew
	UpdateNewHighlight
	UpdateNewAlarm
)

// WPSDetails carries the richer probe-response-only WPS fields beyond the
// bare WPSState tri-state, analogous to the teacher's WPSInfo shape.
type WPSDetails struct {
	Manufacturer  string
	Model         string
	ModelNumber   string
	Serial        string
	DeviceName    string
	State         string // "unconfigured" | "configured"
	Version       string // "1.0" | "2.0"
	Locked        bool
	ConfigMethods []string
}

// NV2Info carries NV2/TDMA-specific beacon fields that have no equivalent
// in a standard 802.11 beacon (queue depth, frame priority, short guard
// interval), kept as a side annotation rather than overloading the generic
// flags set.
type NV2Info struct {
	SGI           Tri
	FramePriority int
	QueueCount    int
}

// Signal is one timestamped observation of a network's RSSI/noise pair,
// optionally annotated with a GPS fix taken at the moment of the sample.
type Signal struct {
	Timestamp time.Time
	RSSI      int8
	Noise     int8
	Latitude  float64 // NaN if no fix was available
	Longitude float64
	Altitude  float64
	Accuracy  float64
	Azimuth   float64
	Distance  float64
}

// HasSignal reports whether RSSI was actually captured.
func (s Signal) HasSignal() bool { return s.RSSI != NoSignal }

// SignalList is a small, timestamp-ordered append-only list of samples.
// Merge keeps the ordering invariant instead of re-sorting the whole list
// on every update.
type SignalList struct {
	items []Signal
}

func (l *SignalList) Append(s Signal) {
	l.items = append(l.items, s)
}

func (l *SignalList) Items() []Signal { return l.items }

func (l *SignalList) Len() int { return len(l.items) }

func (l *SignalList) Last() (Signal, bool) {
	if len(l.items) == 0 {
		return Signal{}, false
	}
	return l.items[len(l.items)-1], true
}

// Merge folds other's samples into the receiver, preserving non-decreasing
// timestamp order. Both lists are assumed already ordered.
func (l *SignalList) Merge(other *SignalList) {
	if other == nil || len(other.items) == 0 {
		return
	}
	if len(l.items) == 0 {
		l.items = append(l.items, other.items...)
		return
	}
	merged := make([]Signal, 0, len(l.items)+len(other.items))
	i, j := 0, 0
	for i < len(l.items) && j < len(other.items) {
		if l.items[i].Timestamp.After(other.items[j].Timestamp) {
			merged = append(merged, other.items[j])
			j++
		} else {
			merged = append(merged, l.items[i])
			i++
		}
	}
	merged = append(merged, l.items[i:]...)
	merged = append(merged, other.items[j:]...)
	l.items = merged
}

// NetworkRecord is the consolidated, BSSID-keyed view of one wireless
// network observed by any of the producers (TZSP, SSH scan table, SSH
// sniffer). Unset scalar fields take the sentinel defaults described on
// NewNetworkRecord; these are never re-zeroed by a later, less-informative
// merge.
type NetworkRecord struct {
	Address   [6]byte // BSSID, the table key
	Frequency int     // kHz
	Channel   string  // e.g. "36" or "36-Ce"
	Mode      string  // e.g. "ac", "an", "g", "b"
	Streams   int8    // MIMO spatial stream count, -1 if unknown

	SSID      string
	RadioName string

	RSSI  int8
	Noise int8

	RouterOSVer string

	Privacy   Tri
	RouterOS  Tri
	Nstreme   Tri
	TDMA      Tri
	WDS       Tri
	Bridge    Tri
	Routing   Tri // airmax/airmax-ac "routing" style flags (PTP/PTMP/Mixed) folded to Tri
	AirMax    Tri
	AirMaxAC  Tri
	PTP       Tri
	PTMP      Tri
	Mixed     Tri

	WPS        WPSState
	WPSDetails *WPSDetails

	NV2 *NV2Info

	Latitude  float64 // NaN if never annotated
	Longitude float64
	Altitude  float64
	Accuracy  float64
	Azimuth   float64
	Distance  float64

	FirstSeen time.Time
	LastSeen  time.Time

	Signals SignalList

	Activity ActivityState
}

// NewNetworkRecord builds a record carrying the original's sentinel
// defaults: -1/unknown tri-states, NoSignal RSSI/noise, NaN geo fields.
func NewNetworkRecord(address [6]byte) *NetworkRecord {
	return &NetworkRecord{
		Address:   address,
		Streams:   -1,
		RSSI:      NoSignal,
		Noise:     NoSignal,
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
		Altitude:  math.NaN(),
		Accuracy:  math.NaN(),
		Azimuth:   math.NaN(),
		Distance:  math.NaN(),
		Activity:  StateNew,
	}
}

// Merge folds incoming (a newer observation of the same BSSID) into the
// receiver following the scalar-merge rules of the consolidation model:
// lastseen takes the max, firstseen takes the min, non-empty/known values
// win over empty/unknown ones, and the sample lists merge in timestamp
// order.
func (n *NetworkRecord) Merge(incoming *NetworkRecord) {
	if incoming.FirstSeen.Before(n.FirstSeen) || n.FirstSeen.IsZero() {
		n.FirstSeen = incoming.FirstSeen
	}
	if incoming.LastSeen.After(n.LastSeen) {
		n.LastSeen = incoming.LastSeen
	}

	n.Frequency = mergeIntPreferNonZero(n.Frequency, incoming.Frequency)
	n.Channel = mergeStringPreferNonEmpty(n.Channel, incoming.Channel)
	n.Mode = mergeStringPreferNonEmpty(n.Mode, incoming.Mode)
	if incoming.Streams >= 0 {
		n.Streams = incoming.Streams
	}
	n.SSID = mergeStringPreferNonEmptyNonHidden(n.SSID, incoming.SSID)
	n.RadioName = mergeStringPreferNonEmpty(n.RadioName, incoming.RadioName)
	n.RouterOSVer = mergeStringPreferNonEmpty(n.RouterOSVer, incoming.RouterOSVer)

	if incoming.RSSI != NoSignal {
		n.RSSI = incoming.RSSI
	}
	if incoming.Noise != NoSignal {
		n.Noise = incoming.Noise
	}

	n.Privacy = n.Privacy.Merge(incoming.Privacy)
	n.RouterOS = n.RouterOS.Merge(incoming.RouterOS)
	n.Nstreme = n.Nstreme.Merge(incoming.Nstreme)
	n.TDMA = n.TDMA.Merge(incoming.TDMA)
	n.WDS = n.WDS.Merge(incoming.WDS)
	n.Bridge = n.Bridge.Merge(incoming.Bridge)
	n.Routing = n.Routing.Merge(incoming.Routing)
	n.AirMax = n.AirMax.Merge(incoming.AirMax)
	n.AirMaxAC = n.AirMaxAC.Merge(incoming.AirMaxAC)
	n.PTP = n.PTP.Merge(incoming.PTP)
	n.PTMP = n.PTMP.Merge(incoming.PTMP)
	n.Mixed = n.Mixed.Merge(incoming.Mixed)

	if incoming.WPS > n.WPS {
		n.WPS = incoming.WPS
	}
	if incoming.WPSDetails != nil {
		n.WPSDetails = incoming.WPSDetails
	}
	if incoming.NV2 != nil {
		n.NV2 = incoming.NV2
	}

	if !math.IsNaN(incoming.Latitude) {
		n.Latitude = incoming.Latitude
		n.Longitude = incoming.Longitude
		n.Altitude = incoming.Altitude
		n.Accuracy = incoming.Accuracy
		n.Azimuth = incoming.Azimuth
		n.Distance = incoming.Distance
	}

	n.Signals.Merge(&incoming.Signals)
}

func mergeIntPreferNonZero(current, incoming int) int {
	if incoming != 0 {
		return incoming
	}
	return current
}

func mergeStringPreferNonEmpty(current, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return current
}

const hiddenSSID = "<hidden>"

func mergeStringPreferNonEmptyNonHidden(current, incoming string) string {
	if incoming != "" && incoming != hiddenSSID {
		return incoming
	}
	if current == "" {
		return incoming
	}
	return current
}
