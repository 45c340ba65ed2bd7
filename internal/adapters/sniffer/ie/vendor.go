package ie

import (
	"bytes"
	"strconv"
)

// MikrotikInfo is the decoded MikroTik vendor IE (OUI 00:0C:42), reverse
// engineered from beacons emitted by RouterOS wireless interfaces.
type MikrotikInfo struct {
	Nstreme      bool
	FastFrames   bool
	WDS          bool
	Bridge       bool
	MRU          uint16
	FramerLimit  uint16
	Frequency    uint16 // MHz
	RadioName    string
	RouterOSVer  string
}

var mikrotikMagic = [6]byte{0x00, 0x0c, 0x42, 0x00, 0x00, 0x00}

const (
	mikrotikHeaderLen = 6
	mikrotikTagHeader = 2
	mikrotikTagData   = 0x01
	mikrotikTagLen    = 30
	mikrotikTagFreq   = 0x05
	mikrotikFreqLen   = 2

	mtFlags1          = 0
	mtFlags2          = 1
	mtVersionRev      = 4
	mtVersionType     = 5
	mtVersionMinor    = 6
	mtVersionMajor    = 7
	mtMRULow          = 8
	mtMRUHigh         = 9
	mtRadioName       = 10
	mtRadioNameLen    = 16
	mtFramerLimitLow  = 26
	mtFramerLimitHigh = 27
)

const (
	mtFlags1Nstreme    = 1 << 0
	mtFlags1FastFrames = 1 << 1
	mtFlags1DoingWDS   = 1 << 2
	mtFlags2Bridge     = 1 << 4
)

// parseMikrotik decodes a vendor-specific IE payload as a MikroTik IE,
// returning nil if the magic header doesn't match.
func parseMikrotik(ie []byte) *MikrotikInfo {
	if len(ie) < mikrotikHeaderLen || !bytes.Equal(ie[:mikrotikHeaderLen], mikrotikMagic[:]) {
		return nil
	}
	info := &MikrotikInfo{}
	offset := mikrotikHeaderLen
	limit := len(ie)
	for offset+mikrotikTagHeader <= limit {
		tagType := ie[offset]
		length := int(ie[offset+1])
		if offset+mikrotikTagHeader+length > limit {
			break
		}
		val := ie[offset+mikrotikTagHeader : offset+mikrotikTagHeader+length]
		switch {
		case tagType == mikrotikTagData && length == mikrotikTagLen:
			info.Nstreme = val[mtFlags1]&mtFlags1Nstreme != 0
			info.FastFrames = val[mtFlags1]&mtFlags1FastFrames != 0
			info.WDS = val[mtFlags1]&mtFlags1DoingWDS != 0
			info.Bridge = val[mtFlags2]&mtFlags2Bridge != 0
			if info.RouterOSVer == "" {
				info.RouterOSVer = mikrotikVersionString(val[mtVersionMajor], val[mtVersionMinor], val[mtVersionType], val[mtVersionRev])
			}
			info.MRU = uint16(val[mtMRUHigh])<<8 | uint16(val[mtMRULow])
			if info.RadioName == "" && val[mtRadioName] != 0 {
				info.RadioName = string(bytes.TrimRight(val[mtRadioName:mtRadioName+mtRadioNameLen], "\x00"))
			}
			info.FramerLimit = uint16(val[mtFramerLimitHigh])<<8 | uint16(val[mtFramerLimitLow])
		case tagType == mikrotikTagFreq && length == mikrotikFreqLen:
			info.Frequency = uint16(val[1])<<8 | uint16(val[0])
		}
		offset += mikrotikTagHeader + length
	}
	return info
}

// mikrotikVersionString formats the RouterOS version fields carried in the
// MikroTik vendor IE. The reference implementation's formatting routine was
// not available in the retrieval pack; this follows its field layout
// (major.minor, with an optional pre-release type/revision suffix).
func mikrotikVersionString(major, minor, verType, rev byte) string {
	s := strconv.Itoa(int(major)) + "." + strconv.Itoa(int(minor))
	if verType != 0 {
		suffix := "rc"
		if verType == 1 {
			suffix = "beta"
		}
		s += suffix + strconv.Itoa(int(rev))
	}
	return s
}

// --- Ubiquiti AirMax (legacy, presence-only) ---

var airmaxMagic = [6]byte{0x00, 0x15, 0x6d, 0xff, 0xff, 0xff}

const airmaxLen = 38

// parseAirMax reports whether the vendor IE matches the (undocumented,
// presence-only) legacy Ubiquiti AirMax magic sequence.
func parseAirMax(ie []byte) bool {
	return len(ie) == airmaxLen && bytes.Equal(ie[:6], airmaxMagic[:])
}

// --- Ubiquiti AirMax-AC ---

// AirMaxACInfo is the decrypted payload of the Ubiquiti AirMax-AC vendor
// IE: an AES-128-ECB-encrypted block keyed by an HMAC-SHA1 derived from the
// frame's BSSID, containing the link mode and an inner radioname/ssid TLV.
type AirMaxACInfo struct {
	PTP       bool
	PTMP      bool
	Mixed     bool
	RadioName string
	SSID      string
}

var airmaxACMagic = [9]byte{0x00, 0x27, 0x22, 0xff, 0xff, 0xff, 0x02, 0x01, 0x00}

const (
	airmaxACModeOffset  = 17
	airmaxACInnerOffset = 22
	airmaxACModePTP     = 1 << 0
	airmaxACModePTMP    = 1 << 1
)

const (
	airmaxACInnerRadioName = 0x01
	airmaxACInnerSSID      = 0x02
)
