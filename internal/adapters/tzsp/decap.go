// Package tzsp receives TZSP-encapsulated 802.11 beacon and probe-response
// frames over UDP and turns each one into a domain.NetworkRecord sample,
// dispatching the frame body to the NV2, mac80211 and Cambium parsers in the
// same priority order as the reference receiver.
package tzsp

import "encoding/binary"

const (
	tzspHeaderLen = 4
	tzspVersion   = 0x01
	tzspType      = 0x00
	tzspProto     = 0x12

	tzspTagPadding    = 0x00
	tzspTagEnd        = 0x01
	tzspTagSignal     = 0x0A
	tzspTagRate       = 0x0C
	tzspTagFCS        = 0x11
	tzspTagChannel    = 0x12
	tzspTagLength     = 0x29
	tzspTagSensorMAC  = 0x3C
)

// tags holds the handful of TZSP tag values the receiver actually consumes.
// rssi/channel/sensorMAC are nil when the corresponding tag was absent.
type tags struct {
	rssi      *int8
	channel   *uint8
	sensorMAC []byte
}

// decapTZSP strips the 4-byte TZSP header and walks its tag list, returning
// the enclosed 802.11 frame and the tags of interest. It returns ok=false on
// any header mismatch or malformed tag list, mirroring decap_tzsp's
// all-or-nothing contract.
func decapTZSP(packet []byte) (frame []byte, t tags, ok bool) {
	if len(packet) <= tzspHeaderLen {
		return nil, tags{}, false
	}
	if packet[0] != tzspVersion || packet[1] != tzspType {
		return nil, tags{}, false
	}
	if binary.BigEndian.Uint16(packet[2:4]) != tzspProto {
		return nil, tags{}, false
	}
	return processTags(packet[tzspHeaderLen:])
}

func processTags(data []byte) (frame []byte, t tags, ok bool) {
	i := 0
	limit := len(data)

	for i < limit {
		tag := data[i]
		i++

		if tag == tzspTagPadding {
			continue
		}
		if i >= limit {
			return nil, tags{}, false
		}
		if tag == tzspTagEnd {
			return data[i:], t, true
		}

		tagLen := int(data[i])
		i++
		if i+tagLen >= limit {
			return nil, tags{}, false
		}
		tagData := data[i : i+tagLen]

		switch {
		case tag == tzspTagFCS && tagLen == 1:
			if tagData[0] != 0 {
				return nil, tags{}, false
			}
		case tag == tzspTagSignal && tagLen == 1:
			v := int8(tagData[0])
			t.rssi = &v
		case tag == tzspTagChannel && tagLen == 1:
			v := tagData[0]
			t.channel = &v
		case tag == tzspTagSensorMAC && tagLen == 6:
			t.sensorMAC = tagData
		}

		i += tagLen
	}
	return nil, tags{}, false
}
