// Package app is the Facade that wires C1-C5 and the ambient transports
// together, following the teacher's own Application bootstrap/Run shape in
// internal/app/app.go: a staged bootstrap building each component, then a
// Run that launches every goroutine and blocks until ctx is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/lcalzada-xor/wmap/internal/adapters/gpsd"
	"github.com/lcalzada-xor/wmap/internal/adapters/sshdriver"
	"github.com/lcalzada-xor/wmap/internal/adapters/statusapi"
	"github.com/lcalzada-xor/wmap/internal/adapters/storage"
	"github.com/lcalzada-xor/wmap/internal/adapters/tzsp"
	"github.com/lcalzada-xor/wmap/internal/adapters/uiobserver"
	"github.com/lcalzada-xor/wmap/internal/config"
	"github.com/lcalzada-xor/wmap/internal/core/consolidation"
	"github.com/lcalzada-xor/wmap/internal/core/domain"
	"github.com/lcalzada-xor/wmap/internal/core/ports"
	"github.com/lcalzada-xor/wmap/internal/core/services/audit"
	"github.com/lcalzada-xor/wmap/internal/geo"
	"github.com/lcalzada-xor/wmap/internal/telemetry"
)

// heartbeatInterval paces the consolidation table's drain cycle; spec.md's
// "once per redraw cycle" boundary is approximated the same way
// sshdriver.redrawInterval is.
const heartbeatInterval = 3 * time.Second

// Application orchestrates the producers (C2/C3/C4), the consolidation
// table (C5) and the ambient transports (uiobserver, statusapi, the audit
// trail) as one process.
type Application struct {
	Config *config.Config

	Table        *consolidation.Table
	Producers    []ports.Producer
	sshDrivers   []*sshdriver.Driver
	GPSD         *gpsd.Client
	AuditStore   *storage.AuditStore
	AuditService *audit.AuditService
	Observer     *uiobserver.Broadcaster
	StatusServer *statusapi.Server

	gps            gpsAnnotator
	sortGate       consolidation.SortGate
	shutdownTracer func(context.Context) error
}

// New builds an Application from cfg and bootstraps every component. It
// does not start any goroutines; call Run for that.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	app.shutdownTracer = shutdownTracer

	auditStore, err := storage.NewAuditStore(app.Config.AuditDBPath)
	if err != nil {
		return fmt.Errorf("failed to init audit store: %w", err)
	}
	app.AuditStore = auditStore
	app.AuditService = audit.NewAuditService(auditStore)

	app.Table = consolidation.New(consolidation.Config{
		ActiveTimeout:     app.Config.ActiveTimeout,
		NewTimeout:        app.Config.NewTimeout,
		RecordSignals:     app.Config.RecordSignals,
		ClipInvalidSignal: app.Config.ClipInvalidSignal,
		Predicates: consolidation.Predicates{
			Blacklist: config.AddrListPredicate(app.Config.Blacklist),
			Highlight: config.AddrListPredicate(app.Config.Highlight),
			Alarm:     config.AddrListPredicate(app.Config.Alarm),
		},
	})

	app.Observer = uiobserver.New()
	app.StatusServer = statusapi.NewServer(app.Config.StatusAPIAddr, app.Table)

	app.gps = newGPSAnnotator(app.Config.StaticLatitude, app.Config.StaticLongitude)

	receiver, err := tzsp.NewReceiver(tzsp.Config{
		Port:          app.Config.TZSPPort,
		SensorHWAddr:  app.Config.TZSPSensorHWAddr,
		FrequencyBase: app.Config.TZSPFrequencyBase,
		ChannelWidth:  app.Config.TZSPChannelWidth,
	})
	if err != nil {
		return fmt.Errorf("failed to init TZSP receiver: %w", err)
	}
	app.Producers = append(app.Producers, receiver)

	app.bootstrapSSHDrivers()

	app.GPSD = gpsd.NewClient(gpsd.Config{
		Host:      app.Config.GPSDHost,
		Port:      app.Config.GPSDPort,
		Reconnect: app.Config.GPSDReconnect,
	})
	app.GPSD.SetAuditFunc(app.AuditService.Log)

	return nil
}

// loadPersistenceLog replays a prior run's persistence log into the table
// before any producer starts, the way the original's
// mtscan_model_disable_sorting brackets a bulk load: any in-memory view
// built from Snapshot should hold off re-sorting until every record from
// the log has been staged, not on each one individually.
func (app *Application) loadPersistenceLog() {
	if app.Config.PersistenceLogPath == "" {
		return
	}
	if _, err := os.Stat(app.Config.PersistenceLogPath); errors.Is(err, os.ErrNotExist) {
		return
	}

	app.sortGate.Disable()
	defer app.sortGate.Enable()

	count := 0
	err := consolidation.Load(app.Config.PersistenceLogPath, func(rec domain.NetworkRecord) {
		app.Table.Stage(rec)
		count++
	})
	if err != nil {
		log.Printf("persistence load failed: %v", err)
		return
	}
	log.Printf("replayed %d records from %s", count, app.Config.PersistenceLogPath)
}

func (app *Application) bootstrapSSHDrivers() {
	for _, target := range app.Config.SSHTargets {
		name := target.Name
		cfg := sshdriver.Config{
			Name:             name,
			Hostname:         target.Host,
			Port:             target.Port,
			Login:            app.Config.SSHLogin,
			Password:         app.Config.SSHPassword,
			Interface:        app.Config.SSHInterface,
			Duration:         app.Config.SSHDuration,
			Mode:             sshdriver.ModeScanner,
			SkipVerification: app.Config.SSHSkipVerification,
		}

		driver := sshdriver.New(cfg, app.makeStatusCallback(name))
		driver.SetAuditFunc(app.AuditService.Log)

		app.sshDrivers = append(app.sshDrivers, driver)
		app.Producers = append(app.Producers, driver)
	}
}

// makeStatusCallback bridges sshdriver's Info/State notifications to the
// UI observer's on_state/on_disconnect callback contract.
func (app *Application) makeStatusCallback(name string) sshdriver.StatusCallback {
	return func(info sshdriver.Info) {
		if info.Type == sshdriver.InfoFailure {
			app.Observer.NotifyDisconnect(name, info.Data)
			return
		}
		app.Observer.NotifyState(name, fmt.Sprintf("%v", info.Type))
	}
}

// Run starts every producer, the consolidation dispatcher, the heartbeat
// drain loop, the gpsd consumer, and both ambient HTTP/websocket servers.
// It blocks until ctx is cancelled or an unrecoverable component error
// occurs.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("starting components")

	errChan := make(chan error, 8)

	go func() {
		if err := app.Table.Run(ctx); err != nil {
			errChan <- fmt.Errorf("consolidation table: %w", err)
		}
	}()

	app.loadPersistenceLog()
	app.primeSSHDrivers()

	for _, p := range app.Producers {
		producer := p
		go func() {
			if err := producer.Start(ctx); err != nil {
				errChan <- fmt.Errorf("producer: %w", err)
			}
		}()
		go app.pumpProducer(ctx, producer)
	}

	go func() {
		if err := app.GPSD.Start(ctx); err != nil {
			errChan <- fmt.Errorf("gpsd: %w", err)
		}
	}()
	go app.pumpGPSD(ctx)

	go app.runHeartbeat(ctx)

	go func() {
		if err := app.StatusServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("status api: %w", err)
		}
	}()

	go func() {
		if err := app.Observer.Run(ctx, app.Config.UIObserverAddr); err != nil {
			errChan <- fmt.Errorf("ui observer: %w", err)
		}
	}()

	slog.Info("ready")

	select {
	case <-ctx.Done():
		slog.Info("termination signal received")
	case err := <-errChan:
		return err
	}

	return app.cleanup()
}

// primeSSHDrivers enqueues an initial scan-list push (if configured)
// followed by a scan command, once the shell has had time to settle --
// mirroring the teacher's own settle-then-drive pattern in
// initNetworkDriver's post-monitor-mode sleep.
func (app *Application) primeSSHDrivers() {
	for _, d := range app.sshDrivers {
		driver := d
		go func() {
			time.Sleep(2 * time.Second)
			if app.Config.SSHScanList != "" {
				driver.Enqueue(sshdriver.Command{Type: sshdriver.CmdScanlist, Data: app.Config.SSHScanList})
			}
			driver.Enqueue(sshdriver.Command{Type: sshdriver.CmdScan})
		}()
	}
}

// pumpProducer forwards one producer's decoded records into the
// consolidation table's staging buffer, annotating each with the latest
// known GPS fix first (spec.md's "GPS annotation at sample time").
func (app *Application) pumpProducer(ctx context.Context, p ports.Producer) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-p.Records():
			if !ok {
				return
			}
			app.gps.annotate(&rec)
			app.Table.Stage(rec)
		}
	}
}

// pumpGPSD keeps the annotator's latest fix current and republishes state
// transitions to the UI observer.
func (app *Application) pumpGPSD(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-app.GPSD.Events():
			if !ok {
				return
			}
			if ev.Fix != nil {
				app.gps.update(*ev.Fix)
			}
			app.Observer.NotifyState("gpsd", ev.State.String())
		}
	}
}

// runHeartbeat drains the consolidation table once per heartbeatInterval
// and publishes every resulting update to the UI observer, matching
// spec.md's "once per redraw cycle" drain boundary.
func (app *Application) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events := app.Table.Drain()
			for _, ev := range events {
				app.Observer.NotifyNetwork(ev.Kind, ev.Record)
			}
			app.Observer.NotifyHeartbeat()
		}
	}
}

func (app *Application) cleanup() error {
	slog.Info("cleaning up resources")

	if app.shutdownTracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.shutdownTracer(shutdownCtx); err != nil {
			log.Printf("tracer shutdown error: %v", err)
		}
	}

	if err := app.savePersistenceLog(); err != nil {
		log.Printf("persistence save failed: %v", err)
	}

	for _, p := range app.Producers {
		if err := p.Close(); err != nil {
			log.Printf("producer close error: %v", err)
		}
	}
	if err := app.GPSD.Close(); err != nil {
		log.Printf("gpsd close error: %v", err)
	}
	if err := app.AuditStore.Close(); err != nil {
		log.Printf("audit store close error: %v", err)
	}

	return nil
}

func (app *Application) savePersistenceLog() error {
	if app.Config.PersistenceLogPath == "" {
		return nil
	}
	records := app.Table.Snapshot()
	return consolidation.Save(app.Config.PersistenceLogPath, records, consolidation.StripOptions{})
}

// gpsAnnotator tracks the most recent usable gpsd fix and falls back to a
// fixed observer location when none has arrived yet, the way the teacher's
// geo.StaticProvider stands in for a live GPS feed. Azimuth/Distance stay
// NaN: neither gpsd nor the producers supply enough information (a second
// reference point, or a bearing) to compute them, so that part of
// spec.md's geo annotation is left unset rather than guessed.
type gpsAnnotator struct {
	fallback geo.Provider

	mu     chan struct{} // 1-buffered mutex so Annotate never blocks on a channel send
	latest domain.GPSFix
	hasFix bool
}

func newGPSAnnotator(lat, lon float64) gpsAnnotator {
	a := gpsAnnotator{
		fallback: geo.NewStaticProvider(lat, lon),
		mu:       make(chan struct{}, 1),
	}
	a.mu <- struct{}{}
	return a
}

func (a *gpsAnnotator) update(fix domain.GPSFix) {
	if !fix.HasFix() {
		return
	}
	<-a.mu
	a.latest = fix
	a.hasFix = true
	a.mu <- struct{}{}
}

func (a *gpsAnnotator) annotate(rec *domain.NetworkRecord) {
	<-a.mu
	fix, hasFix := a.latest, a.hasFix
	a.mu <- struct{}{}

	if hasFix {
		rec.Latitude = fix.Lat
		rec.Longitude = fix.Lon
		rec.Altitude = fix.Alt
		rec.Accuracy = fix.Epx
		return
	}

	loc := a.fallback.GetLocation()
	rec.Latitude = loc.Latitude
	rec.Longitude = loc.Longitude
	rec.Altitude = math.NaN()
	rec.Accuracy = math.NaN()
}
