// Package ie decodes 802.11 management frames and their Information
// Elements, including the reverse-engineered MikroTik/Ubiquiti/WPS/Cambium
// vendor extensions ridden inside beacons and probe responses.
package ie

import (
	"bytes"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

const (
	headerLen  = 24
	addrDst    = 4
	addrSrc    = 10
	addrBSSID  = 16
	mgmtHeader = 12
	mgmtTagLen = 2

	capsLo = 10
	capsHi = 11
)

// Frame kinds recognized out of a raw 802.11 management frame.
type FrameKind int8

const (
	FrameInvalid FrameKind = iota
	FrameUnknown
	FrameBeacon
	FrameProbeResponse
)

const (
	tagSSID      = 0x00
	tagRates     = 0x01
	tagChannel   = 0x03
	tagHTCaps    = 0x2D
	tagRatesExt  = 0x32
	tagHTInfo    = 0x3D
	tagCisco     = 0x85
	tagVHTCaps   = 0xBF
	tagVHTInfo   = 0xC0
	tagVendorIE  = 0xDD
	tagExt       = 0xFF
	tagExtHECaps = 0x23
)

const (
	capsPrivacy = 1 << 4
)

var broadcast = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Frame is the decoded result of a beacon or probe-response management
// frame, carrying every field the vendor-IE and HT/VHT/HE parsers can fill
// in. Zero values mean "not present", mirroring the reference decoder's
// calloc-then-fill approach.
type Frame struct {
	Kind FrameKind
	Src  [6]byte

	Caps uint16

	Channel int // -1 if absent

	DSSSRates uint8
	OFDMRates uint8

	HT        bool
	HTChains  int
	HTChan    uint8
	HTMode    uint8
	VHT       bool
	VHTChains int
	VHTMode   uint8
	VHTChan0  uint8
	VHTChan1  uint8
	HE        bool

	SSID      string
	RadioName string // from Cisco CCX radio-name tag, if present

	Mikrotik *MikrotikInfo
	AirMax   bool
	AirMaxAC *AirMaxACInfo
	WPS      *WPSElement
}

// WPSElement records that a WPS IE was seen; Details is always decoded but
// callers should only surface manufacturer/model/serial when the carrying
// frame was a probe response, matching the reference receiver's disclosure
// rule.
type WPSElement struct {
	Details *domain.WPSDetails
}

// classifyFrame inspects the frame-control byte and destination address to
// decide whether this is a beacon, probe response, or something else.
func classifyFrame(data []byte) FrameKind {
	if len(data) < headerLen {
		return FrameInvalid
	}
	switch data[0] {
	case 0x80:
		if !bytes.Equal(data[addrDst:addrDst+6], broadcast[:]) {
			return FrameUnknown
		}
		return FrameBeacon
	case 0x50:
		return FrameProbeResponse
	default:
		return FrameUnknown
	}
}

// ParseFrame decodes an 802.11 beacon or probe-response frame (stripped of
// the TZSP encapsulation, i.e. starting at the frame-control byte). It
// returns (nil, FrameInvalid/FrameUnknown) for anything that is too short
// or is not one of the two frame kinds this scanner consolidates.
func ParseFrame(data []byte) (*Frame, FrameKind) {
	kind := classifyFrame(data)
	if kind == FrameInvalid || kind == FrameUnknown {
		return nil, kind
	}

	f := &Frame{Kind: kind, Channel: -1}
	copy(f.Src[:], data[addrSrc:addrSrc+6])

	var bssid [6]byte
	copy(bssid[:], data[addrBSSID:addrBSSID+6])

	body := data[headerLen:]
	if len(body) < capsHi+1 {
		return f, kind
	}
	f.Caps = uint16(body[capsHi])<<8 | uint16(body[capsLo])

	offset := mgmtHeader
	IterateIEs(body[offset:], func(id int, val []byte) {
		f.processTag(byte(id), val, bssid)
	})
	return f, kind
}

// IsPrivacy reports the RSN/WEP capability bit from the fixed capability
// field, independent of any vendor IE.
func (f *Frame) IsPrivacy() bool { return f.Caps&capsPrivacy != 0 }

func (f *Frame) processTag(tagType byte, data []byte, bssid [6]byte) {
	switch tagType {
	case tagSSID:
		if f.SSID == "" && len(data) > 0 && data[0] != 0 {
			f.SSID = string(data)
		}
	case tagRates, tagRatesExt:
		f.processRates(data)
	case tagChannel:
		if len(data) == 1 {
			f.Channel = int(data[0])
		}
	case tagHTCaps:
		if len(data) == 26 {
			switch {
			case data[6] != 0:
				f.HTChains = 4
			case data[5] != 0:
				f.HTChains = 3
			case data[4] != 0:
				f.HTChains = 2
			case data[3] != 0:
				f.HTChains = 1
			}
		}
	case tagHTInfo:
		if len(data) == 22 {
			f.HT = true
			f.HTChan = data[0]
			f.HTMode = data[1]
		}
	case tagCisco:
		if len(data) >= 26 && f.RadioName == "" {
			f.RadioName = string(bytes.TrimRight(data[10:26], "\x00"))
		}
	case tagVHTCaps:
		if len(data) == 12 {
			f.VHTChains = vhtChains(uint16(data[9])<<8 | uint16(data[8]))
		}
	case tagVHTInfo:
		if len(data) == 5 {
			f.VHT = true
			f.VHTMode = data[0]
			f.VHTChan0 = data[1]
			f.VHTChan1 = data[2]
		}
	case tagVendorIE:
		f.processVendor(data, bssid)
	case tagExt:
		if len(data) > 0 && data[0] == tagExtHECaps {
			f.HE = true
		}
	}
}

func (f *Frame) processRates(data []byte) {
	for _, b := range data {
		rate := b &^ 0x80
		switch rate {
		case 2, 4, 11, 22:
			f.DSSSRates |= 1
		case 12, 18, 24, 36, 48, 72, 96, 108:
			f.OFDMRates |= 1
		}
	}
}

var ouiEpigram = [3]byte{0x00, 0x90, 0x4c}

func (f *Frame) processVendor(data []byte, bssid [6]byte) {
	if len(data) == 26 && bytes.Equal(data[0:3], ouiEpigram[:]) && data[3] == 0x34 && !f.HT {
		f.HT = true
		f.HTChan = data[4]
		f.HTMode = data[5]
	}

	if f.Mikrotik == nil {
		f.Mikrotik = parseMikrotik(data)
	}
	if !f.AirMax {
		f.AirMax = parseAirMax(data)
	}
	if f.AirMaxAC == nil {
		f.AirMaxAC = parseAirMaxAC(data, bssid)
	}
	if f.WPS == nil {
		if raw := parseWPSVendorIE(data); raw != nil {
			f.WPS = &WPSElement{Details: raw}
		}
	}
}

// Chains returns the higher of the VHT/HT spatial-stream chain counts, or
// -1 if neither was present.
func (f *Frame) Chains() int {
	if f.VHTChains > f.HTChains {
		if f.VHTChains == 0 {
			return -1
		}
		return f.VHTChains
	}
	if f.HTChains == 0 {
		return -1
	}
	return f.HTChains
}

const (
	vhtModeHT   = 0
	vhtMode80   = 1
	vhtMode160  = 2
	vhtMode2x80 = 3
)

// ExtChannel derives the secondary-channel/width annotation string exactly
// as the reference decoder does: VHT 80 MHz center-frequency offsets map to
// "Ceee"/"eCee"/"eeCe"/"eeeC", 160/2x80 report themselves, and plain HT
// falls back to "Ce"/"eC". Returns "" when neither VHT nor HT carries an
// extension channel.
func (f *Frame) ExtChannel() string {
	if f.VHT && f.HT && f.VHTMode != vhtModeHT {
		switch f.VHTMode {
		case vhtMode80:
			diff := int(f.VHTChan0) - int(f.HTChan)
			switch diff {
			case 6:
				return "Ceee"
			case 2:
				return "eCee"
			case -2:
				return "eeCe"
			case -6:
				return "eeeC"
			}
			return "?"
		case vhtMode160:
			return "160"
		case vhtMode2x80:
			return "2x80"
		}
		return "?"
	}
	if f.HT && f.HTMode&(1<<2) != 0 {
		if f.HTMode&(1<<0) != 0 && f.HTMode&(1<<1) != 0 {
			return "eC"
		}
		if f.HTMode&(1<<0) != 0 {
			return "Ce"
		}
		return "?"
	}
	return ""
}

func vhtChains(txMCSMap uint16) int {
	fields := []uint16{0xC000, 0x3000, 0x0C00, 0x0300, 0x00C0, 0x0030, 0x000C, 0x0003}
	shifts := []uint{14, 12, 10, 8, 6, 4, 2, 0}
	for i, mask := range fields {
		if (txMCSMap&mask)>>shifts[i] != 0x03 {
			return 8 - i
		}
	}
	return 0
}
