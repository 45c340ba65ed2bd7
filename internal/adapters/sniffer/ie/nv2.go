package ie

import "bytes"

// NV2Beacon is the decoded NV2/TDMA management beacon that MikroTik's
// Nstreme2 protocol rides inside an 802.11 data frame (rather than a real
// management beacon), reverse engineered from captures.
type NV2Beacon struct {
	SSID      string
	RadioName string
	RouterOSVer string

	Frequency uint16 // MHz

	SGI           bool
	Bridge        bool
	Privacy       bool
	WDS           bool
	FramePriority bool
	QueueCount    int

	Chains  int
	Is80211N bool
	VHT      bool
	VHTChan  uint8
}

const (
	nv2MgmtHeaderLen = 8
	nv2MgmtTagLen    = 4
	nv2MgmtTagTDMA   = 0x0000
	nv2MgmtTagBeacon = 0x0005

	nv2BeaconTagLen      = 2
	nv2BeaconTagSSID     = 0x00
	nv2BeaconTagRadio    = 0x01
	nv2BeaconTagInfo     = 0x02
	nv2BeaconTagVersion  = 0x03
	nv2BeaconTagHTExt    = 0x07
	nv2BeaconTag80211AC  = 0x0A

	nv2BeaconInfoLen    = 10
	nv2BeaconVersionLen = 4
	nv2BeaconACLen      = 3
)

const (
	nv2Flags1SGI       = 1 << 6
	nv2Flags1Bridge    = 1 << 5
	nv2Flags1Privacy   = 1 << 4
	nv2Flags1WDS       = 1 << 3
	nv2Flags1FramePrio = 1 << 1
	nv2Flags1QCountH   = 1 << 0

	nv2Flags2QCountM = 1 << 7
	nv2Flags2QCountL = 1 << 6
	nv2Flags2ChainsH = 1 << 5
	nv2Flags2ChainsL = 1 << 4
	nv2Flags2N       = 1 << 0
)

var nv2Broadcast = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ParseNV2 looks for a MikroTik NV2 TDMA beacon riding an 802.11 data
// frame. data must start at the frame-control byte (post-TZSP-decap, as
// with ParseFrame); src receives the frame's source address when a beacon
// is found.
func ParseNV2(data []byte) (*NV2Beacon, [6]byte, bool) {
	var src [6]byte
	if len(data) <= headerLen+nv2MgmtHeaderLen+nv2MgmtTagLen {
		return nil, src, false
	}
	if data[0] != 0x08 || data[1] != 0x90 {
		return nil, src, false
	}
	if !bytes.Equal(data[addrDst:addrDst+6], nv2Broadcast[:]) {
		return nil, src, false
	}
	copy(src[:], data[addrSrc:addrSrc+6])

	body := data[headerLen:]
	limit := len(body)
	for i := nv2MgmtHeaderLen; i+nv2MgmtTagLen <= limit; {
		tagType := int(body[i])<<8 | int(body[i+1])
		tagLen := int(body[i+2])<<8 | int(body[i+3])
		if tagLen == 0 {
			i += nv2MgmtTagLen
			continue
		}
		if i+nv2MgmtTagLen+tagLen > limit {
			break
		}
		if tagType == nv2MgmtTagBeacon {
			b := parseNV2Beacon(body[i+nv2MgmtTagLen : i+nv2MgmtTagLen+tagLen])
			return b, src, b != nil
		}
		i += nv2MgmtTagLen + tagLen
	}
	return nil, src, false
}

func parseNV2Beacon(data []byte) *NV2Beacon {
	b := &NV2Beacon{Chains: -1}
	limit := len(data)
	for i := 0; i+nv2BeaconTagLen <= limit; {
		tagType := data[i]
		tagLen := int(data[i+1])
		if tagLen == 0 {
			i += nv2BeaconTagLen
			continue
		}
		if i+nv2BeaconTagLen+tagLen > limit {
			break
		}
		val := data[i+nv2BeaconTagLen : i+nv2BeaconTagLen+tagLen]
		switch {
		case tagType == nv2BeaconTagSSID && b.SSID == "":
			b.SSID = string(val)
		case tagType == nv2BeaconTagRadio && b.RadioName == "":
			b.RadioName = string(val)
		case tagType == nv2BeaconTagInfo && tagLen == nv2BeaconInfoLen:
			b.Frequency = uint16(val[0])<<8 | uint16(val[1])
			flags1 := val[2]
			flags2 := val[3]
			b.SGI = flags1&nv2Flags1SGI != 0
			b.Bridge = flags1&nv2Flags1Bridge != 0
			b.Privacy = flags1&nv2Flags1Privacy != 0
			b.WDS = flags1&nv2Flags1WDS != 0
			b.FramePriority = flags1&nv2Flags1FramePrio != 0
			qcH := int(flags1 & nv2Flags1QCountH)
			qcML := int(flags2&(nv2Flags2QCountM|nv2Flags2QCountL)) >> 6
			b.QueueCount = (qcH << 2) | qcML
			b.Is80211N = flags2&nv2Flags2N != 0
			chains := (int(flags2&nv2Flags2ChainsH) >> 5 << 1) | (int(flags2&nv2Flags2ChainsL) >> 4)
			b.Chains = chains + 1
		case tagType == nv2BeaconTagVersion && tagLen == nv2BeaconVersionLen && b.RouterOSVer == "":
			b.RouterOSVer = mikrotikVersionString(val[0], val[1], val[2], val[3])
		case tagType == nv2BeaconTag80211AC && tagLen == nv2BeaconACLen:
			b.VHT = true
			b.VHTChan = val[0]
		}
		i += nv2BeaconTagLen + tagLen
	}
	return b
}
