// Package config loads the process-wide configuration described in
// spec.md §6's "config predicates" section from flags and environment
// variables -- no config file, no singleton, exactly the flag+env pattern
// the teacher's own config.go uses, generalized to this module's
// components (TZSP receiver, gpsd client, one or more SSH drivers, the
// consolidation table's predicates/timeouts, and the ambient transports).
package config

import (
	"flag"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SSHTarget configures one SSH-driven router. Multiple targets share the
// process-wide Login/Password/Interface/Duration/SkipVerification/ScanList;
// a single-router deployment lists just one host in WMAP_SSH_TARGETS.
type SSHTarget struct {
	Name string
	Host string
	Port int
}

// Config holds all application configuration. Every field is populated
// once at startup by Load; nothing here is mutated afterward, matching
// spec.md §9's "explicit-value configuration, no singleton" note.
type Config struct {
	// TZSP receiver (C2).
	TZSPPort          uint16
	TZSPSensorHWAddr  [6]byte
	TZSPFrequencyBase int
	TZSPChannelWidth  int

	// GPSD client (C4).
	GPSDHost      string
	GPSDPort      int
	GPSDReconnect time.Duration

	// StaticLatitude/StaticLongitude annotate samples when gpsd has never
	// produced a fix, the way the teacher's geo.StaticProvider stands in
	// for a live GPS feed.
	StaticLatitude  float64
	StaticLongitude float64

	// SSH driver(s) (C3). One shared credential set drives every target.
	SSHTargets          []SSHTarget
	SSHLogin            string
	SSHPassword         string
	SSHInterface        string
	SSHDuration         int
	SSHSkipVerification bool
	SSHScanList         string

	// Consolidation model (C5).
	ActiveTimeout     time.Duration
	NewTimeout        time.Duration
	RecordSignals     bool
	ClipInvalidSignal bool
	FallbackEncoding  string
	Blacklist         []net.HardwareAddr
	Highlight         []net.HardwareAddr
	Alarm             []net.HardwareAddr

	// Persistence (C5 save/load).
	PersistenceLogPath string

	// Ambient transports.
	UIObserverAddr string
	StatusAPIAddr  string
	AuditDBPath    string

	Debug bool
}

// Load parses command line flags and environment variables to populate
// Config. Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	tzspPort := getEnvInt("WMAP_TZSP_PORT", 37008)
	sensorMAC := getEnv("WMAP_TZSP_SENSOR_MAC", "")
	tzspFreqBase := getEnvInt("WMAP_TZSP_FREQ_BASE", 5000)
	tzspChanWidth := getEnvInt("WMAP_TZSP_CHAN_WIDTH", 20)

	cfg.GPSDHost = getEnv("WMAP_GPSD_HOST", "127.0.0.1")
	gpsdPort := getEnvInt("WMAP_GPSD_PORT", 2947)
	gpsdReconnect := getEnvInt("WMAP_GPSD_RECONNECT_SECONDS", 5)
	cfg.StaticLatitude = getEnvFloat("WMAP_LAT", 40.4168)
	cfg.StaticLongitude = getEnvFloat("WMAP_LNG", -3.7038)

	sshTargets := getEnv("WMAP_SSH_TARGETS", "")
	cfg.SSHLogin = getEnv("WMAP_SSH_LOGIN", "admin")
	cfg.SSHPassword = getEnv("WMAP_SSH_PASSWORD", "")
	cfg.SSHInterface = getEnv("WMAP_SSH_INTERFACE", "wlan1")
	sshDuration := getEnvInt("WMAP_SSH_DURATION", 0)
	cfg.SSHSkipVerification = getEnvBool("WMAP_SSH_SKIP_VERIFICATION", false)
	cfg.SSHScanList = getEnv("WMAP_SSH_SCANLIST", "")

	activeTimeout := getEnvInt("WMAP_ACTIVE_TIMEOUT_SECONDS", 2)
	newTimeout := getEnvInt("WMAP_NEW_TIMEOUT_SECONDS", 2)
	cfg.RecordSignals = getEnvBool("WMAP_RECORD_SIGNALS", true)
	cfg.ClipInvalidSignal = getEnvBool("WMAP_CLIP_INVALID_SIGNAL", true)
	cfg.FallbackEncoding = getEnv("WMAP_FALLBACK_ENCODING", "ISO-8859-1")
	blacklist := getEnv("WMAP_BLACKLIST", "")
	highlight := getEnv("WMAP_HIGHLIGHT", "")
	alarm := getEnv("WMAP_ALARM", "")

	cfg.PersistenceLogPath = getEnv("WMAP_LOG_PATH", getDefaultDataPath("wmap.log"))

	cfg.UIObserverAddr = getEnv("WMAP_UI_ADDR", ":8090")
	cfg.StatusAPIAddr = getEnv("WMAP_STATUS_ADDR", ":8091")
	cfg.AuditDBPath = getEnv("WMAP_AUDIT_DB", getDefaultDataPath("audit.db"))

	flag.IntVar(&tzspPort, "tzsp-port", tzspPort, "UDP port the TZSP receiver listens on")
	flag.StringVar(&sensorMAC, "tzsp-sensor-mac", sensorMAC, "Sensor MAC address to match in TZSP frames (frames from any other sensor, or with no sensor tag, are dropped)")
	flag.IntVar(&tzspFreqBase, "tzsp-freq-base", tzspFreqBase, "TZSP frequency reconstruction base in MHz (2407 or 5000)")
	flag.IntVar(&tzspChanWidth, "tzsp-chan-width", tzspChanWidth, "Cosmetic channel width prefix in MHz")

	flag.StringVar(&cfg.GPSDHost, "gpsd-host", cfg.GPSDHost, "gpsd host")
	flag.IntVar(&gpsdPort, "gpsd-port", gpsdPort, "gpsd port")
	flag.IntVar(&gpsdReconnect, "gpsd-reconnect", gpsdReconnect, "gpsd reconnect delay in seconds (0 disables reconnection)")
	flag.Float64Var(&cfg.StaticLatitude, "lat", cfg.StaticLatitude, "fallback latitude used when gpsd has no fix yet")
	flag.Float64Var(&cfg.StaticLongitude, "lng", cfg.StaticLongitude, "fallback longitude used when gpsd has no fix yet")

	flag.StringVar(&sshTargets, "ssh-targets", sshTargets, "comma-separated SSH targets as name@host:port")
	flag.StringVar(&cfg.SSHLogin, "ssh-login", cfg.SSHLogin, "SSH login shared by every target")
	flag.StringVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "SSH password shared by every target")
	flag.StringVar(&cfg.SSHInterface, "ssh-interface", cfg.SSHInterface, "wireless interface to scan/sniff over SSH")
	flag.IntVar(&sshDuration, "ssh-duration", sshDuration, "scan/sniff duration in seconds (0 is unbounded)")
	flag.BoolVar(&cfg.SSHSkipVerification, "ssh-skip-verification", cfg.SSHSkipVerification, "accept any SSH host key without prompting")
	flag.StringVar(&cfg.SSHScanList, "ssh-scanlist", cfg.SSHScanList, "initial scan-list expression, e.g. 5180-5320,5500")

	flag.IntVar(&activeTimeout, "active-timeout", activeTimeout, "seconds of silence before a record is marked inactive")
	flag.IntVar(&newTimeout, "new-timeout", newTimeout, "seconds a record stays flagged new after first sighting")
	flag.BoolVar(&cfg.RecordSignals, "record-signals", cfg.RecordSignals, "keep per-sample signal history")
	flag.BoolVar(&cfg.ClipInvalidSignal, "clip-invalid-signal", cfg.ClipInvalidSignal, "clamp RSSI readings at or below -100 dBm to -99 (noise is left as reported)")
	flag.StringVar(&cfg.FallbackEncoding, "fallback-encoding", cfg.FallbackEncoding, "encoding label for SSIDs that are not valid UTF-8 (stored only; no transcoding is applied)")
	flag.StringVar(&blacklist, "blacklist", blacklist, "comma-separated MAC addresses to exclude from the table entirely")
	flag.StringVar(&highlight, "highlight", highlight, "comma-separated MAC addresses to flag as highlighted on first sighting")
	flag.StringVar(&alarm, "alarm", alarm, "comma-separated MAC addresses to flag as alarms on first sighting")

	flag.StringVar(&cfg.PersistenceLogPath, "log-path", cfg.PersistenceLogPath, "path to the line-delimited JSON persistence log (.gz for gzip framing)")

	flag.StringVar(&cfg.UIObserverAddr, "ui-addr", cfg.UIObserverAddr, "listen address for the UI observer websocket")
	flag.StringVar(&cfg.StatusAPIAddr, "status-addr", cfg.StatusAPIAddr, "listen address for /healthz, /metrics and /status")
	flag.StringVar(&cfg.AuditDBPath, "audit-db", cfg.AuditDBPath, "path to the audit trail SQLite database")

	flag.BoolVar(&cfg.Debug, "debug", false, "enable verbose debug logging")

	flag.Parse()

	cfg.TZSPPort = uint16(tzspPort)
	cfg.TZSPFrequencyBase = tzspFreqBase
	cfg.TZSPChannelWidth = tzspChanWidth
	if mac, err := net.ParseMAC(sensorMAC); err == nil {
		copy(cfg.TZSPSensorHWAddr[:], mac)
	} else if sensorMAC != "" {
		log.Printf("config: ignoring invalid -tzsp-sensor-mac %q: %v", sensorMAC, err)
	}

	cfg.GPSDPort = gpsdPort
	cfg.GPSDReconnect = time.Duration(gpsdReconnect) * time.Second

	cfg.SSHTargets = parseSSHTargets(sshTargets)
	cfg.SSHDuration = sshDuration

	cfg.ActiveTimeout = time.Duration(activeTimeout) * time.Second
	cfg.NewTimeout = time.Duration(newTimeout) * time.Second
	cfg.Blacklist = parseMACList(blacklist)
	cfg.Highlight = parseMACList(highlight)
	cfg.Alarm = parseMACList(alarm)

	return cfg
}

// parseSSHTargets parses "name@host:port" entries, falling back to the
// bare host as both name and host when no "@" is present and to port 22
// when none is given.
func parseSSHTargets(s string) []SSHTarget {
	var targets []SSHTarget
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name := part
		hostport := part
		if idx := strings.Index(part, "@"); idx >= 0 {
			name = part[:idx]
			hostport = part[idx+1:]
		}

		host, portStr, err := net.SplitHostPort(hostport)
		port := 22
		if err != nil {
			host = hostport
		} else if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}

		if name == part {
			name = host
		}
		targets = append(targets, SSHTarget{Name: name, Host: host, Port: port})
	}
	return targets
}

// parseMACList turns a comma-separated list of MAC addresses into the
// net.HardwareAddr slice that AddrListPredicate builds a blacklist/
// highlight/alarm func over. Malformed entries are skipped with a
// warning rather than aborting startup.
func parseMACList(s string) []net.HardwareAddr {
	var macs []net.HardwareAddr
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mac, err := net.ParseMAC(part)
		if err != nil {
			log.Printf("config: ignoring invalid MAC address %q: %v", part, err)
			continue
		}
		macs = append(macs, mac)
	}
	return macs
}

// AddrListPredicate builds the func(addr [6]byte) bool shape
// consolidation.Predicates expects out of a parsed MAC list, the way
// spec.md §6 describes blacklist/highlight/alarm being supplied by
// external configuration.
func AddrListPredicate(macs []net.HardwareAddr) func(addr [6]byte) bool {
	if len(macs) == 0 {
		return nil
	}
	set := make(map[[6]byte]struct{}, len(macs))
	for _, mac := range macs {
		var key [6]byte
		copy(key[:], mac)
		set[key] = struct{}{}
	}
	return func(addr [6]byte) bool {
		_, ok := set[addr]
		return ok
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDataPath returns name inside ~/.wmap, creating the directory
// if it doesn't exist yet.
func getDefaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("config: could not get user home directory, using current dir: %v", err)
		return name
	}

	wmapDir := filepath.Join(home, ".wmap")
	if err := os.MkdirAll(wmapDir, 0755); err != nil {
		log.Printf("config: could not create .wmap directory, using current dir: %v", err)
		return name
	}

	return filepath.Join(wmapDir, name)
}
