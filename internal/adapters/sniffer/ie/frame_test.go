package ie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beaconHeader(bssid [6]byte) []byte {
	h := make([]byte, headerLen)
	h[0] = 0x80 // beacon
	h[1] = 0x00
	for i := 0; i < 6; i++ {
		h[addrDst+i] = 0xFF
	}
	copy(h[addrSrc:addrSrc+6], bssid[:])
	copy(h[addrBSSID:addrBSSID+6], bssid[:])
	return h
}

func tlv(id byte, data []byte) []byte {
	return append([]byte{id, byte(len(data))}, data...)
}

func TestParseFrame_BeaconSSIDAndChannel(t *testing.T) {
	bssid := [6]byte{0x00, 0x0c, 0x42, 0x11, 0x22, 0x33}
	body := make([]byte, 12) // fixed fields: timestamp(8)+interval(2)+caps(2)
	body = append(body, tlv(tagSSID, []byte("TestNet"))...)
	body = append(body, tlv(tagChannel, []byte{36})...)

	frame := append(beaconHeader(bssid), body...)

	f, kind := ParseFrame(frame)
	require.NotNil(t, f)
	assert.Equal(t, FrameBeacon, kind)
	assert.Equal(t, "TestNet", f.SSID)
	assert.Equal(t, 36, f.Channel)
	assert.Equal(t, bssid, f.Src)
}

func TestParseFrame_HiddenSSID(t *testing.T) {
	bssid := [6]byte{0x00, 0x0c, 0x42, 0x00, 0x00, 0x01}
	body := make([]byte, 12)
	body = append(body, tlv(tagSSID, []byte{0x00})...)
	frame := append(beaconHeader(bssid), body...)

	f, _ := ParseFrame(frame)
	require.NotNil(t, f)
	assert.Equal(t, "", f.SSID)
}

func TestParseFrame_NonBroadcastDestinationIsUnknown(t *testing.T) {
	bssid := [6]byte{0x00, 0x0c, 0x42, 0x00, 0x00, 0x02}
	h := beaconHeader(bssid)
	h[addrDst] = 0x01 // not broadcast
	frame := append(h, make([]byte, 12)...)

	f, kind := ParseFrame(frame)
	assert.Nil(t, f)
	assert.Equal(t, FrameUnknown, kind)
}

func TestParseFrame_ProbeResponseAcceptsAnyDestination(t *testing.T) {
	bssid := [6]byte{0x00, 0x0c, 0x42, 0x00, 0x00, 0x03}
	h := make([]byte, headerLen)
	h[0] = 0x50
	copy(h[addrSrc:addrSrc+6], bssid[:])
	frame := append(h, make([]byte, 12)...)

	f, kind := ParseFrame(frame)
	require.NotNil(t, f)
	assert.Equal(t, FrameProbeResponse, kind)
}

func TestParseFrame_TooShortIsInvalid(t *testing.T) {
	f, kind := ParseFrame(make([]byte, 10))
	assert.Nil(t, f)
	assert.Equal(t, FrameInvalid, kind)
}

func TestParseFrame_HTInfoExtensionChannel(t *testing.T) {
	bssid := [6]byte{0x00, 0x0c, 0x42, 0x00, 0x00, 0x04}
	htInfo := make([]byte, 22)
	htInfo[0] = 44           // primary channel
	htInfo[1] = 0b00000101   // subset1: bit0 (secondary above) + bit2 (any ext present)
	body := make([]byte, 12)
	body = append(body, tlv(tagHTInfo, htInfo)...)
	frame := append(beaconHeader(bssid), body...)

	f, _ := ParseFrame(frame)
	require.NotNil(t, f)
	assert.True(t, f.HT)
	assert.Equal(t, "Ce", f.ExtChannel())
}

func TestParseFrame_VHTChainsFromTxMCSMap(t *testing.T) {
	bssid := [6]byte{0x00, 0x0c, 0x42, 0x00, 0x00, 0x05}
	vhtCaps := make([]byte, 12)
	// tx_mcs_map at bytes 8-9 (little endian in the IE, high byte is byte 9)
	// all fields 0x03 (unsupported) except the lowest (1 chain) -> chains=1
	vhtCaps[8] = 0xFC
	vhtCaps[9] = 0xFF
	body := make([]byte, 12)
	body = append(body, tlv(tagVHTCaps, vhtCaps)...)
	frame := append(beaconHeader(bssid), body...)

	f, _ := ParseFrame(frame)
	require.NotNil(t, f)
	assert.Equal(t, 1, f.VHTChains)
}

func TestParseFrame_MikrotikVendorIE(t *testing.T) {
	bssid := [6]byte{0x00, 0x0c, 0x42, 0xAA, 0xBB, 0xCC}
	data := make([]byte, mikrotikTagLen)
	data[mtFlags1] = mtFlags1Nstreme | mtFlags1DoingWDS
	data[mtFlags2] = mtFlags2Bridge
	data[mtVersionMajor] = 6
	data[mtVersionMinor] = 41
	copy(data[mtRadioName:], []byte("radio-1"))

	vendor := append([]byte{}, mikrotikMagic[:]...)
	vendor = append(vendor, byte(mikrotikTagData), byte(len(data)))
	vendor = append(vendor, data...)

	body := make([]byte, 12)
	body = append(body, tlv(tagVendorIE, vendor)...)
	frame := append(beaconHeader(bssid), body...)

	f, _ := ParseFrame(frame)
	require.NotNil(t, f)
	require.NotNil(t, f.Mikrotik)
	assert.True(t, f.Mikrotik.Nstreme)
	assert.True(t, f.Mikrotik.WDS)
	assert.True(t, f.Mikrotik.Bridge)
	assert.Equal(t, "radio-1", f.Mikrotik.RadioName)
	assert.Equal(t, "6.41", f.Mikrotik.RouterOSVer)
}

func TestParseFrame_WPSVendorIEOnProbeResponse(t *testing.T) {
	bssid := [6]byte{0x00, 0x50, 0xf2, 0x00, 0x00, 0x01}
	attr := func(tag uint16, val string) []byte {
		b := []byte{byte(tag >> 8), byte(tag), byte(len(val) >> 8), byte(len(val))}
		return append(b, []byte(val)...)
	}
	var data []byte
	data = append(data, attr(wpsAttrManufacturer, "Acme")...)
	data = append(data, attr(wpsAttrModelName, "Router9000")...)

	vendor := append([]byte{}, wpsMagic[:]...)
	vendor = append(vendor, data...)

	h := make([]byte, headerLen)
	h[0] = 0x50
	copy(h[addrSrc:addrSrc+6], bssid[:])
	body := make([]byte, 12)
	body = append(body, tlv(tagVendorIE, vendor)...)
	frame := append(h, body...)

	f, _ := ParseFrame(frame)
	require.NotNil(t, f)
	require.NotNil(t, f.WPS)
	assert.Equal(t, "Acme", f.WPS.Details.Manufacturer)
	assert.Equal(t, "Router9000", f.WPS.Details.Model)
}
