package consolidation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func newTestTable(t *testing.T, cfg Config) (*Table, context.CancelFunc) {
	t.Helper()
	tbl := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go tbl.Run(ctx)
	return tbl, cancel
}

func sample(addr [6]byte, lastSeen time.Time, rssi int8) domain.NetworkRecord {
	rec := *domain.NewNetworkRecord(addr)
	rec.FirstSeen = lastSeen
	rec.LastSeen = lastSeen
	rec.RSSI = rssi
	rec.SSID = "lab"
	return rec
}

func TestTable_StageThenDrainInsertsNew(t *testing.T) {
	tbl, cancel := newTestTable(t, Config{})
	defer cancel()

	addr := [6]byte{0, 1, 2, 3, 4, 5}
	tbl.Stage(sample(addr, time.Now(), -40))

	events := tbl.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.UpdateNew, events[0].Kind)
	assert.Equal(t, addr, events[0].Record.Address)

	rec, ok := tbl.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, domain.StateNew, rec.Activity)
	assert.Equal(t, "lab", rec.SSID)
}

func TestTable_StageIsInertUntilDrain(t *testing.T) {
	tbl, cancel := newTestTable(t, Config{})
	defer cancel()

	addr := [6]byte{1, 1, 1, 1, 1, 1}
	tbl.Stage(sample(addr, time.Now(), -50))

	_, ok := tbl.Lookup(addr)
	assert.False(t, ok, "a staged sample must not merge before Drain runs")

	tbl.Drain()
	_, ok = tbl.Lookup(addr)
	assert.True(t, ok)
}

func TestTable_SecondSampleMergesAndPromotesActive(t *testing.T) {
	tbl, cancel := newTestTable(t, Config{})
	defer cancel()

	addr := [6]byte{2, 2, 2, 2, 2, 2}
	t0 := time.Now().Add(-time.Minute)
	t1 := time.Now()

	tbl.Stage(sample(addr, t0, -60))
	tbl.Drain()

	second := sample(addr, t1, -30)
	second.SSID = ""
	tbl.Stage(second)
	events := tbl.Drain()

	require.Len(t, events, 1)
	assert.Equal(t, domain.UpdateExisting, events[0].Kind)

	rec, ok := tbl.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, domain.StateActive, rec.Activity)
	assert.Equal(t, int8(-30), rec.RSSI)
	assert.Equal(t, "lab", rec.SSID, "ssid must survive a merge where the newer sample omits it")
	assert.Equal(t, t0.Unix(), rec.FirstSeen.Unix())
	assert.Equal(t, t1.Unix(), rec.LastSeen.Unix())
}

func TestTable_AlarmPredicateRaisesUpdateKind(t *testing.T) {
	alarmAddr := [6]byte{9, 9, 9, 9, 9, 9}
	cfg := Config{
		Predicates: Predicates{
			Alarm: func(a [6]byte) bool { return a == alarmAddr },
		},
	}
	tbl, cancel := newTestTable(t, cfg)
	defer cancel()

	tbl.Stage(sample(alarmAddr, time.Now(), -40))
	events := tbl.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.UpdateNewAlarm, events[0].Kind)
}

func TestTable_BlacklistedAddressNeverEntersTable(t *testing.T) {
	blocked := [6]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}
	cfg := Config{
		Predicates: Predicates{
			Blacklist: func(a [6]byte) bool { return a == blocked },
		},
	}
	tbl, cancel := newTestTable(t, cfg)
	defer cancel()

	tbl.Stage(sample(blocked, time.Now(), -40))
	events := tbl.Drain()
	assert.Empty(t, events)

	_, ok := tbl.Lookup(blocked)
	assert.False(t, ok)
}

func TestTable_AgeScanDemotesToInactive(t *testing.T) {
	cfg := Config{ActiveTimeout: 10 * time.Millisecond, NewTimeout: 5 * time.Millisecond}
	tbl, cancel := newTestTable(t, cfg)
	defer cancel()

	addr := [6]byte{3, 3, 3, 3, 3, 3}
	tbl.Stage(sample(addr, time.Now(), -40))
	tbl.Drain()

	time.Sleep(20 * time.Millisecond)
	tbl.Drain()

	rec, ok := tbl.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, domain.StateInactive, rec.Activity)
}

func TestTable_ClearEmptiesTable(t *testing.T) {
	tbl, cancel := newTestTable(t, Config{})
	defer cancel()

	addr := [6]byte{4, 4, 4, 4, 4, 4}
	tbl.Stage(sample(addr, time.Now(), -40))
	tbl.Drain()

	tbl.Clear()
	snap := tbl.Snapshot()
	assert.Empty(t, snap)
}

func TestTable_RecordSignalsDisabledDropsSampleHistory(t *testing.T) {
	tbl, cancel := newTestTable(t, Config{RecordSignals: false})
	defer cancel()

	addr := [6]byte{5, 5, 5, 5, 5, 5}
	s := sample(addr, time.Now(), -40)
	s.Signals.Append(domain.Signal{Timestamp: time.Now(), RSSI: -40, Noise: domain.NoSignal})
	tbl.Stage(s)
	tbl.Drain()

	rec, ok := tbl.Lookup(addr)
	require.True(t, ok)
	assert.Equal(t, 0, rec.Signals.Len())
}
