package ie

import (
	"bytes"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

var wpsMagic = [4]byte{0x00, 0x50, 0xf2, 0x04}

const wpsHeaderLen = 4

// parseWPSVendorIE checks the vendor-IE magic (OUI 00:50:F2, vendor type
// 0x04) and, on match, decodes the WPS Data Element that follows it.
func parseWPSVendorIE(ie []byte) *domain.WPSDetails {
	if len(ie) < wpsHeaderLen || !bytes.Equal(ie[:wpsHeaderLen], wpsMagic[:]) {
		return nil
	}
	return ParseWPSAttributes(ie[wpsHeaderLen:])
}

// WPS attribute tags, 2-byte type + 2-byte length, big-endian, as laid out
// inside the WPS vendor IE's data element (OUI 00:50:F2, vendor type 0x04).
const (
	wpsAttrStateVal       = 0x1044
	wpsAttrManufacturer   = 0x1021
	wpsAttrModelName      = 0x1023
	wpsAttrModelNumber    = 0x1024
	wpsAttrSerialNumber   = 0x1042
	wpsAttrDeviceName     = 0x1011
	wpsAttrVersion        = 0x104A
	wpsAttrAPSetupLocked  = 0x1057
	wpsAttrDevicePasswdID = 0x1012
)

// ParseWPSAttributes walks the attribute list of a WPS Data Element (the
// payload following the OUI/vendor-type header of the WPS vendor IE) and
// fills a domain.WPSDetails. Earlier occurrences of a given attribute win,
// matching the reference decoder's first-match-wins semantics.
func ParseWPSAttributes(data []byte) *domain.WPSDetails {
	info := &domain.WPSDetails{}
	offset := 0
	limit := len(data)

	for offset < limit {
		if offset+4 > limit {
			break
		}
		attrType := (int(data[offset]) << 8) | int(data[offset+1])
		attrLen := (int(data[offset+2]) << 8) | int(data[offset+3])
		offset += 4

		if offset+attrLen > limit {
			break
		}
		val := data[offset : offset+attrLen]

		switch attrType {
		case wpsAttrManufacturer:
			if info.Manufacturer == "" {
				info.Manufacturer = string(val)
			}
		case wpsAttrModelName:
			if info.Model == "" {
				info.Model = string(val)
			}
		case wpsAttrModelNumber:
			if info.ModelNumber == "" {
				info.ModelNumber = string(val)
			}
		case wpsAttrSerialNumber:
			if info.Serial == "" {
				info.Serial = string(val)
			}
		case wpsAttrDeviceName:
			if info.DeviceName == "" {
				info.DeviceName = string(val)
			}
		case wpsAttrStateVal:
			if len(val) > 0 && info.State == "" {
				switch val[0] {
				case 0x01:
					info.State = "unconfigured"
				case 0x02:
					info.State = "configured"
				}
			}
		case wpsAttrVersion:
			if len(val) > 0 && info.Version == "" {
				if val[0] == 0x10 {
					info.Version = "1.0"
				} else if val[0] >= 0x20 {
					info.Version = "2.0"
				}
			}
		case wpsAttrAPSetupLocked:
			if len(val) > 0 && val[0] == 0x01 {
				info.Locked = true
			}
		case wpsAttrDevicePasswdID:
			if len(val) >= 2 {
				pwdID := (int(val[0]) << 8) | int(val[1])
				switch pwdID {
				case 0x0000:
					info.ConfigMethods = append(info.ConfigMethods, "PIN")
				case 0x0004:
					info.ConfigMethods = append(info.ConfigMethods, "PBC")
				}
			}
		}

		offset += attrLen
	}

	return info
}
