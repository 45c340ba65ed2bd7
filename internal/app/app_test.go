package app

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wmap/internal/config"
	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TZSPPort:        0, // ephemeral: avoid colliding with a real receiver in CI
		GPSDHost:        "127.0.0.1",
		GPSDPort:        0,
		StaticLatitude:  40.4168,
		StaticLongitude: -3.7038,
		ActiveTimeout:   time.Second,
		NewTimeout:      time.Second,
		RecordSignals:   true,
		UIObserverAddr:  "127.0.0.1:0",
		StatusAPIAddr:   "127.0.0.1:0",
		AuditDBPath:     ":memory:",
		SSHTargets: []config.SSHTarget{
			{Name: "router1", Host: "127.0.0.1", Port: 0},
		},
	}
}

func TestNew_BootstrapsEveryComponent(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(cfg)
	require.NoError(t, err)

	assert.NotNil(t, application.Table)
	assert.NotNil(t, application.AuditService)
	assert.NotNil(t, application.AuditStore)
	assert.NotNil(t, application.Observer)
	assert.NotNil(t, application.StatusServer)
	assert.NotNil(t, application.GPSD)
	assert.Len(t, application.Producers, 2) // TZSP receiver + one SSH target
	assert.Len(t, application.sshDrivers, 1)
}

func TestGPSAnnotator_FallsBackToStaticLocationBeforeAnyFix(t *testing.T) {
	a := newGPSAnnotator(40.4168, -3.7038)

	rec := domain.NetworkRecord{}
	a.annotate(&rec)

	assert.InDelta(t, 40.4168, rec.Latitude, 0.0001)
	assert.InDelta(t, -3.7038, rec.Longitude, 0.0001)
	assert.True(t, math.IsNaN(rec.Altitude))
}

func TestGPSAnnotator_UsesLatestFixOnceOneArrives(t *testing.T) {
	a := newGPSAnnotator(0, 0)

	fix := domain.NewGPSFix()
	fix.Mode = domain.GPSMode3D
	fix.Lat = 52.1
	fix.Lon = 21.0
	fix.Alt = 100
	a.update(fix)

	rec := domain.NetworkRecord{}
	a.annotate(&rec)

	assert.InDelta(t, 52.1, rec.Latitude, 0.0001)
	assert.InDelta(t, 21.0, rec.Longitude, 0.0001)
	assert.InDelta(t, 100, rec.Altitude, 0.0001)
}

func TestGPSAnnotator_IgnoresFixWithoutAFix(t *testing.T) {
	a := newGPSAnnotator(1, 2)

	noFix := domain.NewGPSFix()
	noFix.Mode = domain.GPSModeNone
	a.update(noFix)

	rec := domain.NetworkRecord{}
	a.annotate(&rec)

	assert.InDelta(t, 1, rec.Latitude, 0.0001)
	assert.InDelta(t, 2, rec.Longitude, 0.0001)
}

func TestApplication_ReceiverClosesWithoutRun(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Only exercise the producers that open real resources (TZSP binds a
	// UDP socket in NewReceiver); skip Run to avoid standing up the full
	// SSH/gpsd/HTTP stack in a unit test.
	assert.NoError(t, application.Producers[0].Close())
	_ = ctx
}
