package rowparser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerLine = "ADDRESS           SSID            CHANNEL  FREQ  FLAGS  SIGNAL  NOISE  RADIO-NAME   ROUTEROS-VER  LAST-SEEN"

func buildHeader(t *testing.T) Header {
	t.Helper()
	hdr, ok := DiscoverHeader(headerLine)
	require.True(t, ok)
	return hdr
}

func TestDiscoverHeader_RecognisesAddressAndSSID(t *testing.T) {
	hdr, ok := DiscoverHeader(headerLine)
	require.True(t, ok)
	assert.NotZero(t, hdr.width)
}

func TestDiscoverHeader_RejectsNonHeaderLine(t *testing.T) {
	_, ok := DiscoverHeader("just some scan output with no columns")
	assert.False(t, ok)
}

func TestClassify_HeaderRow(t *testing.T) {
	assert.Equal(t, KindHeader, Classify(headerLine, nil))
}

func TestClassify_PromptRow(t *testing.T) {
	assert.Equal(t, KindPrompt, Classify("[admin@MikroTik] >", nil))
}

func TestClassify_SnifferRow(t *testing.T) {
	line := "packets=120 memory-size=4096 stream-sent=50"
	assert.Equal(t, KindSniffer, Classify(line, nil))
}

func TestClassify_NetworkRowRequiresHeader(t *testing.T) {
	hdr := buildHeader(t)
	row := padColumns(hdr, map[string]string{
		"ADDRESS": "001122334455",
		"SSID":    "home-net",
		"CHANNEL": "36",
		"FREQ":    "5180",
		"FLAGS":   "PR",
		"SIGNAL":  "-60",
		"NOISE":   "-95",
	})
	assert.Equal(t, KindNetwork, Classify(row, &hdr))
	assert.Equal(t, KindOther, Classify(row, nil))
}

func TestParseNetworkRow_DecodesFields(t *testing.T) {
	hdr := buildHeader(t)
	row := padColumns(hdr, map[string]string{
		"ADDRESS": "AABBCCDDEEFF",
		"SSID":    "guest",
		"CHANNEL": "149",
		"FREQ":    "5745",
		"FLAGS":   "PBN",
		"SIGNAL":  "-72",
		"NOISE":   "-100",
	})

	rec, ok := ParseNetworkRow(row, hdr, time.Unix(1000, 0))
	require.True(t, ok)
	assert.Equal(t, [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, rec.Address)
	assert.Equal(t, "guest", rec.SSID)
	assert.Equal(t, "149", rec.Channel)
	assert.Equal(t, 5745, rec.Frequency)
	assert.Equal(t, int8(-72), rec.RSSI)
	assert.Equal(t, int8(-100), rec.Noise)

	priv, known := rec.Privacy.Bool()
	require.True(t, known)
	assert.True(t, priv)

	wds, known := rec.WDS.Bool()
	require.True(t, known)
	assert.False(t, wds)
}

func TestParseNetworkRow_RejectsShortAddress(t *testing.T) {
	hdr := buildHeader(t)
	row := padColumns(hdr, map[string]string{"ADDRESS": "AABB", "SSID": "x"})
	_, ok := ParseNetworkRow(row, hdr, time.Now())
	assert.False(t, ok)
}

func TestIsSnifferSummary_RequiresAtLeastTwoKeys(t *testing.T) {
	assert.False(t, IsSnifferSummary("packets=10"))
	assert.True(t, IsSnifferSummary("packets=10 memory-size=20"))
}

func TestParseSnifferRow_DecodesKnownKeys(t *testing.T) {
	stats, ok := ParseSnifferRow("packets=10 memory-size=2048 stream-dropped=3 stream-sent=7")
	require.True(t, ok)
	assert.Equal(t, 10, stats.ProcessedPackets)
	assert.Equal(t, 2048, stats.MemorySize)
	assert.Equal(t, 3, stats.StreamDroppedPackets)
	assert.Equal(t, 7, stats.StreamSentPackets)
}

func TestIsPrompt(t *testing.T) {
	assert.True(t, IsPrompt("[admin@router] > "))
	assert.False(t, IsPrompt("not a prompt"))
}

// padColumns builds a synthetic tabular row by placing each value at its
// discovered header offset, space-padding everything else, so tests exercise
// the same offset-driven slicing the real redraw would produce.
func padColumns(hdr Header, values map[string]string) string {
	width := hdr.width
	for label, v := range values {
		if off := hdr.offsets[label]; off+len(v) > width {
			width = off + len(v)
		}
	}
	buf := make([]byte, width)
	for i := range buf {
		buf[i] = ' '
	}
	for label, v := range values {
		off := hdr.offsets[label]
		copy(buf[off:], v)
	}
	return string(buf)
}
