package consolidation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func TestClipSignal_ClampsBelowFloor(t *testing.T) {
	s := sample([6]byte{1}, time.Now(), -120)
	clipSignal(&s)
	assert.Equal(t, int8(defaultClipFloor), s.RSSI)
}

func TestClipSignal_LeavesSentinelAlone(t *testing.T) {
	s := sample([6]byte{1}, time.Now(), domain.NoSignal)
	clipSignal(&s)
	assert.Equal(t, domain.NoSignal, s.RSSI)
}

func TestTable_ClipInvalidSignalAppliesDuringMerge(t *testing.T) {
	cfg := Config{ClipInvalidSignal: true}
	tbl, cancel := newTestTable(t, cfg)
	defer cancel()

	addr := [6]byte{7, 7, 7, 7, 7, 7}
	tbl.Stage(sample(addr, time.Now(), -110))
	tbl.Drain()

	rec, ok := tbl.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, int8(defaultClipFloor), rec.RSSI)
}

func TestTable_MultipleStagedSamplesSameAddressKeepHighestPriorityKind(t *testing.T) {
	highlightAddr := [6]byte{8, 8, 8, 8, 8, 8}
	cfg := Config{
		Predicates: Predicates{
			Highlight: func(a [6]byte) bool { return a == highlightAddr },
		},
	}
	tbl, cancel := newTestTable(t, cfg)
	defer cancel()

	t0 := time.Now().Add(-time.Second)
	t1 := time.Now()
	tbl.Stage(sample(highlightAddr, t0, -50))
	tbl.Stage(sample(highlightAddr, t1, -40))

	events := tbl.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.UpdateNewHighlight, events[0].Kind)
}

func TestTable_DrainWithNothingStagedStillAgeScans(t *testing.T) {
	cfg := Config{ActiveTimeout: 5 * time.Millisecond, NewTimeout: time.Millisecond}
	tbl, cancel := newTestTable(t, cfg)
	defer cancel()

	addr := [6]byte{6, 6, 6, 6, 6, 6}
	tbl.Stage(sample(addr, time.Now(), -40))
	tbl.Drain()

	time.Sleep(10 * time.Millisecond)
	events := tbl.Drain()

	require.Len(t, events, 1)
	assert.Equal(t, domain.UpdateOnlyInactive, events[0].Kind)
}
