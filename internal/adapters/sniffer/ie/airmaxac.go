package ie

import (
	"bytes"
	"crypto/aes"
	"crypto/hmac"
	"crypto/sha1"
)

const (
	airmaxACHeaderLen     = 10
	airmaxACDataLenIdx    = 9
	airmaxACDataHeaderLen = 22
	airmaxACAddr1         = 2
	airmaxACAddr2         = 8
)

var airmaxACHMACKey = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// parseAirMaxAC decrypts and decodes the Ubiquiti AirMax-AC vendor IE. The
// 128-bit AES key is the first 16 bytes of HMAC-SHA1(key=0xFFFFFFFFFFFF,
// msg=bssid); the decrypted block is accepted only if it contains two
// copies of the frame's own BSSID at the expected offsets, which doubles as
// both an integrity check and a confirmation the derived key was correct.
func parseAirMaxAC(ie []byte, bssid [6]byte) *AirMaxACInfo {
	if len(ie) < airmaxACHeaderLen+airmaxACDataHeaderLen {
		return nil
	}
	if !bytes.Equal(ie[:len(airmaxACMagic)], airmaxACMagic[:]) {
		return nil
	}

	dataLen := int(ie[airmaxACDataLenIdx])
	if dataLen%16 != 0 {
		return nil
	}
	// the IE's declared data length must exactly account for the bytes
	// remaining after the header
	if airmaxACHeaderLen+dataLen != len(ie) {
		return nil
	}

	mac := hmac.New(sha1.New, airmaxACHMACKey[:])
	mac.Write(bssid[:])
	digest := mac.Sum(nil)

	block, err := aes.NewCipher(digest[:16])
	if err != nil {
		return nil
	}

	plain := make([]byte, dataLen)
	for i := 0; i < dataLen; i += 16 {
		block.Decrypt(plain[i:i+16], ie[airmaxACHeaderLen+i:airmaxACHeaderLen+i+16])
	}

	if len(plain) < airmaxACDataHeaderLen {
		return nil
	}
	if !bytes.Equal(plain[airmaxACAddr1:airmaxACAddr1+6], bssid[:]) ||
		!bytes.Equal(plain[airmaxACAddr2:airmaxACAddr2+6], bssid[:]) {
		return nil
	}

	info := &AirMaxACInfo{}
	mode := plain[airmaxACModeOffset]
	info.PTP = mode&airmaxACModePTP != 0
	info.PTMP = mode&airmaxACModePTMP != 0
	info.Mixed = mode&(1<<2) != 0 && mode&(1<<3) != 0 && mode&(1<<4) != 0

	offset := airmaxACDataHeaderLen
	for offset+2 <= len(plain) {
		tagType := plain[offset]
		if tagType == 0x00 {
			break
		}
		tagLen := int(plain[offset+1])
		if offset+2+tagLen > len(plain) {
			break
		}
		val := plain[offset+2 : offset+2+tagLen]
		switch tagType {
		case airmaxACInnerRadioName:
			if info.RadioName == "" && tagLen > 0 {
				info.RadioName = string(val)
			}
		case airmaxACInnerSSID:
			if info.SSID == "" && tagLen > 0 {
				info.SSID = string(val)
			}
		}
		offset += 2 + tagLen
	}
	return info
}
