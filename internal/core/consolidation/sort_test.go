package consolidation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func recordWith(addr byte, freq int, rssi int8, ssid string, lastSeen time.Time) domain.NetworkRecord {
	rec := domain.NewNetworkRecord([6]byte{addr})
	rec.Frequency = freq
	rec.RSSI = rssi
	rec.SSID = ssid
	rec.LastSeen = lastSeen
	return *rec
}

func TestSorted_ByFrequencyAscending(t *testing.T) {
	now := time.Now()
	recs := []domain.NetworkRecord{
		recordWith(3, 5805, -50, "c", now),
		recordWith(1, 5180, -60, "a", now),
		recordWith(2, 5500, -70, "b", now),
	}

	out := Sorted(recs, SortByFrequency, false)

	assert.Equal(t, []int{5180, 5500, 5805}, []int{out[0].Frequency, out[1].Frequency, out[2].Frequency})
	// original slice is untouched
	assert.Equal(t, 5805, recs[0].Frequency)
}

func TestSorted_ByRSSIDescending(t *testing.T) {
	now := time.Now()
	recs := []domain.NetworkRecord{
		recordWith(1, 0, -80, "weak", now),
		recordWith(2, 0, -40, "strong", now),
		recordWith(3, 0, -60, "mid", now),
	}

	out := Sorted(recs, SortByRSSI, true)

	assert.Equal(t, "strong", out[0].SSID)
	assert.Equal(t, "mid", out[1].SSID)
	assert.Equal(t, "weak", out[2].SSID)
}

func TestSorted_ByAddressIsDefault(t *testing.T) {
	recs := []domain.NetworkRecord{
		recordWith(2, 0, 0, "", time.Time{}),
		recordWith(1, 0, 0, "", time.Time{}),
	}

	out := Sorted(recs, SortByAddress, false)

	assert.Equal(t, byte(1), out[0].Address[0])
	assert.Equal(t, byte(2), out[1].Address[0])
}

func TestSortGate_StartsEnabled(t *testing.T) {
	var gate SortGate
	assert.True(t, gate.Enabled())

	gate.Disable()
	assert.False(t, gate.Enabled())

	gate.Enable()
	assert.True(t, gate.Enabled())
}
