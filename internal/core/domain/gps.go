package domain

import "math"

// GPSMode mirrors gpsd's TPV mode field: the kind of fix currently held.
type GPSMode int8

const (
	GPSModeInvalid GPSMode = iota
	GPSModeNone
	GPSMode2D
	GPSMode3D
)

func (m GPSMode) String() string {
	switch m {
	case GPSMode2D:
		return "2D"
	case GPSMode3D:
		return "3D"
	case GPSModeNone:
		return "none"
	default:
		return "invalid"
	}
}

// GPSFix is one gpsd TPV report, carrying every field the protocol defines.
// Fields gpsd omitted from the report are NaN, following the reference
// client's NAN-initialized gpsd_data_t.
type GPSFix struct {
	Device string
	Mode   GPSMode
	Time   int64 // unix seconds, -1 if absent

	Ept float64
	Lat float64
	Lon float64
	Alt float64
	Epx float64
	Epy float64
	Epv float64

	Track float64
	Speed float64
	Climb float64
	Eps   float64
	Epc   float64
}

// NewGPSFix returns a fix with every field at its "absent" sentinel.
func NewGPSFix() GPSFix {
	return GPSFix{
		Mode: GPSModeInvalid,
		Time: -1,
		Ept:  math.NaN(),
		Lat:  math.NaN(),
		Lon:  math.NaN(),
		Alt:  math.NaN(),
		Epx:  math.NaN(),
		Epy:  math.NaN(),
		Epv:  math.NaN(),

		Track: math.NaN(),
		Speed: math.NaN(),
		Climb: math.NaN(),
		Eps:   math.NaN(),
		Epc:   math.NaN(),
	}
}

// HasFix reports whether the report carries a usable 2D/3D position.
func (f GPSFix) HasFix() bool {
	return f.Mode == GPSMode2D || f.Mode == GPSMode3D
}

// GPSDState is the connection lifecycle a gpsd client moves through, kept
// separate from GPSMode: a client can be OK (stream established, handshake
// complete) while gpsd itself reports GPSModeNone because the receiver has
// no satellites in view.
type GPSDState int8

const (
	GPSDOff GPSDState = iota
	GPSDOpening
	GPSDAwaiting
	GPSDNoFix
	GPSDOK
)

func (s GPSDState) String() string {
	switch s {
	case GPSDOpening:
		return "opening"
	case GPSDAwaiting:
		return "awaiting"
	case GPSDNoFix:
		return "no-fix"
	case GPSDOK:
		return "ok"
	default:
		return "off"
	}
}
