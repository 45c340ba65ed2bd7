package consolidation

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func buildRecord(addr [6]byte) domain.NetworkRecord {
	rec := *domain.NewNetworkRecord(addr)
	rec.Frequency = 5180000
	rec.Channel = "36"
	rec.Mode = "ac"
	rec.SSID = "office"
	rec.RadioName = "ap1"
	rec.RSSI = -45
	rec.Noise = -95
	rec.RouterOSVer = "7.15"
	rec.Privacy = domain.TriTrue
	rec.RouterOS = domain.TriTrue
	rec.TDMA = domain.TriFalse
	rec.FirstSeen = time.Unix(1000, 0).UTC()
	rec.LastSeen = time.Unix(2000, 0).UTC()
	rec.Latitude = 52.1
	rec.Longitude = 21.0
	rec.Altitude = 100
	rec.Accuracy = 5
	rec.Azimuth = 90
	rec.Signals.Append(domain.Signal{
		Timestamp: time.Unix(1500, 0).UTC(),
		RSSI:      -50,
		Noise:     domain.NoSignal,
		Latitude:  52.1,
		Longitude: 21.0,
		Altitude:  math.NaN(),
		Accuracy:  math.NaN(),
		Azimuth:   math.NaN(),
		Distance:  math.NaN(),
	})
	return rec
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.json")

	addr := [6]byte{0x00, 0x11, 0x22, 0xAA, 0xBB, 0xCC}
	rec := buildRecord(addr)

	require.NoError(t, Save(path, []domain.NetworkRecord{rec}, StripOptions{}))

	var loaded []domain.NetworkRecord
	require.NoError(t, Load(path, func(r domain.NetworkRecord) {
		loaded = append(loaded, r)
	}))

	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, "001122AABBCC", encodeAddress(addr))
	assert.Equal(t, rec.Frequency, got.Frequency)
	assert.Equal(t, rec.SSID, got.SSID)
	assert.Equal(t, rec.RSSI, got.RSSI)
	assert.Equal(t, rec.FirstSeen.Unix(), got.FirstSeen.Unix())
	assert.Equal(t, rec.LastSeen.Unix(), got.LastSeen.Unix())
	assert.InDelta(t, rec.Latitude, got.Latitude, 0.0001)
	require.Equal(t, 1, got.Signals.Len())
	assert.Equal(t, int8(-50), got.Signals.Items()[0].RSSI)

	v, known := got.Privacy.Bool()
	assert.True(t, known)
	assert.True(t, v)
}

func TestSaveLoad_GzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.json.gz")

	rec := buildRecord([6]byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, Save(path, []domain.NetworkRecord{rec}, StripOptions{}))

	var count int
	require.NoError(t, Load(path, func(domain.NetworkRecord) { count++ }))
	assert.Equal(t, 1, count)
}

func TestSave_StripOptionsOmitSamplesAndGPS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stripped.json")

	rec := buildRecord([6]byte{9, 9, 9, 9, 9, 9})
	require.NoError(t, Save(path, []domain.NetworkRecord{rec}, StripOptions{DropSignals: true, DropGPS: true, DropAzimuth: true}))

	var loaded domain.NetworkRecord
	require.NoError(t, Load(path, func(r domain.NetworkRecord) { loaded = r }))

	assert.Equal(t, 0, loaded.Signals.Len())
	assert.True(t, math.IsNaN(loaded.Latitude))
	assert.True(t, math.IsNaN(loaded.Azimuth))
}

func TestSave_EmptyRecordListReplacesFileWithEmptyArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.json")

	rec := buildRecord([6]byte{1, 1, 1, 1, 1, 1})
	require.NoError(t, Save(path, []domain.NetworkRecord{rec}, StripOptions{}))

	// A record count of zero still succeeds and produces a valid empty
	// array; this exercises the no-record path without needing to force
	// an artificial encode error.
	require.NoError(t, Save(path, nil, StripOptions{}))

	var count int
	require.NoError(t, Load(path, func(domain.NetworkRecord) { count++ }))
	assert.Equal(t, 0, count)
}
