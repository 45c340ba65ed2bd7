package tzsp

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"net"
	"time"

	"github.com/lcalzada-xor/wmap/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wmap/internal/core/domain"
	"github.com/lcalzada-xor/wmap/internal/telemetry"
)

// recvBufferBytes matches the reference socket's SO_RCVBUF tuning: TZSP
// bursts arrive in short, dense batches during a channel sweep and the
// default kernel buffer drops packets under load.
const recvBufferBytes = 1 << 20

const maxDatagram = 65535

// Config selects the listening port, the sensor this receiver accepts
// packets from, and the frequency-base/channel-width annotation applied to
// every decoded record (mirroring the reference receiver's per-interface
// configuration).
type Config struct {
	Port          uint16
	SensorHWAddr  [6]byte
	FrequencyBase int // MHz, 2407 or 5000
	ChannelWidth  int // MHz, cosmetic channel-string prefix
}

// Receiver listens for TZSP-encapsulated beacons/probe-responses on a UDP
// socket and turns each into a domain.NetworkRecord, grounded in the
// reference tzsp-receiver.c dispatch order: NV2 first, then mac80211, with
// Cambium as the final fallback for frames neither recognizes.
type Receiver struct {
	cfg  Config
	conn *net.UDPConn
	out  chan domain.NetworkRecord
}

// NewReceiver binds the UDP listening socket immediately so that callers can
// detect a bind failure (port in use, insufficient privilege) before Start
// is called.
func NewReceiver(cfg Config) (*Receiver, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(cfg.Port)})
	if err != nil {
		return nil, fmt.Errorf("tzsp: listen on port %d: %w", cfg.Port, err)
	}

	if err := conn.SetReadBuffer(recvBufferBytes); err != nil {
		log.Printf("tzsp: could not raise receive buffer on port %d: %v", cfg.Port, err)
	}

	return &Receiver{
		cfg:  cfg,
		conn: conn,
		out:  make(chan domain.NetworkRecord, 256),
	}, nil
}

func (r *Receiver) Records() <-chan domain.NetworkRecord { return r.out }

// Start reads datagrams until ctx is cancelled, decoding each one and
// pushing a domain.NetworkRecord onto Records(). Malformed or unrecognized
// packets are silently dropped, matching the reference receiver's
// fail-closed parsing.
func (r *Receiver) Start(ctx context.Context) error {
	defer close(r.out)

	go func() {
		<-ctx.Done()
		_ = r.conn.SetReadDeadline(time.Now())
	}()

	buf := make([]byte, maxDatagram)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("tzsp: read: %w", err)
		}

		record, ok := r.decode(buf[:n])
		if !ok {
			continue
		}
		select {
		case r.out <- record:
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Receiver) Close() error {
	return r.conn.Close()
}

// decode runs one UDP datagram through TZSP decapsulation, sensor-address
// filtering and the NV2/mac80211/Cambium frame dispatch, returning a fully
// annotated NetworkRecord on success.
func (r *Receiver) decode(packet []byte) (domain.NetworkRecord, bool) {
	now := time.Now()
	frame, t, ok := decapTZSP(packet)
	if !ok {
		telemetry.TZSPPacketsDropped.WithLabelValues("malformed_header").Inc()
		return domain.NetworkRecord{}, false
	}

	// Pre-6.41 TZSP packets carry no sensor address; those are unidentifiable
	// and discarded, as the reference receiver does.
	if t.sensorMAC == nil || !bytes.Equal(t.sensorMAC, r.cfg.SensorHWAddr[:]) {
		telemetry.TZSPPacketsDropped.WithLabelValues("sensor_mismatch").Inc()
		return domain.NetworkRecord{}, false
	}

	if nv2, src, ok := ie.ParseNV2(frame); ok {
		return r.fromNV2(nv2, src, t, now), true
	}

	if f, kind := ie.ParseFrame(frame); f != nil {
		if kind != ie.FrameBeacon && kind != ie.FrameProbeResponse {
			telemetry.TZSPPacketsDropped.WithLabelValues("unwanted_frame_kind").Inc()
			return domain.NetworkRecord{}, false
		}
		return r.fromMAC80211(f, kind, t, now), true
	}

	if cam, src, ok := ie.ParseCambium(frame); ok {
		return r.fromCambium(cam, src, t, now), true
	}

	telemetry.TZSPPacketsDropped.WithLabelValues("unrecognized_protocol").Inc()
	return domain.NetworkRecord{}, false
}

func (r *Receiver) fromMAC80211(f *ie.Frame, kind ie.FrameKind, t tags, now time.Time) domain.NetworkRecord {
	rec := domain.NewNetworkRecord(f.Src)
	rec.FirstSeen, rec.LastSeen = now, now
	rec.Privacy = domain.TriFromBool(f.IsPrivacy())

	if f.Mikrotik != nil {
		rec.RadioName = f.Mikrotik.RadioName
		rec.RouterOSVer = f.Mikrotik.RouterOSVer
		rec.Frequency = int(f.Mikrotik.Frequency) * 1000
		rec.RouterOS = domain.TriTrue
		rec.Nstreme = domain.TriFromBool(f.Mikrotik.Nstreme)
		rec.TDMA = domain.TriFalse
		rec.WDS = domain.TriFromBool(f.Mikrotik.WDS)
		rec.Bridge = domain.TriFromBool(f.Mikrotik.Bridge)
	}

	if f.AirMax {
		rec.AirMax = domain.TriTrue
	}
	if f.AirMaxAC != nil {
		rec.AirMax = domain.TriTrue
		rec.AirMaxAC = domain.TriTrue
		if rec.SSID == "" {
			rec.SSID = f.AirMaxAC.SSID
		}
		if rec.RadioName == "" {
			rec.RadioName = f.AirMaxAC.RadioName
		}
		rec.PTP = domain.TriFromBool(f.AirMaxAC.PTP)
		rec.PTMP = domain.TriFromBool(f.AirMaxAC.PTMP)
		rec.Mixed = domain.TriFromBool(f.AirMaxAC.Mixed)
	}

	if f.WPS != nil {
		rec.WPS = domain.WPSBeaconOnly
		if kind == ie.FrameProbeResponse {
			rec.WPS = domain.WPSProbeResponse
			rec.WPSDetails = f.WPS.Details
		}
	}

	if rec.Frequency == 0 {
		rec.Frequency = reconstructFrequency(r.cfg.FrequencyBase, f.Channel, t.channel)
	}

	if rec.SSID == "" {
		rec.SSID = f.SSID
	}
	if rec.RadioName == "" {
		rec.RadioName = f.RadioName
	}

	rec.Streams = chainsToStreams(f.Chains())

	if ext := f.ExtChannel(); ext != "" {
		rec.Channel = fmt.Sprintf("%d-%s", r.cfg.ChannelWidth, ext)
	} else {
		rec.Channel = fmt.Sprintf("%d", r.cfg.ChannelWidth)
	}

	rec.Mode = mac80211Mode(f, rec.Frequency)
	appendSignalSample(rec, now, t.rssi)
	return *rec
}

func (r *Receiver) fromNV2(b *ie.NV2Beacon, src [6]byte, t tags, now time.Time) domain.NetworkRecord {
	rec := domain.NewNetworkRecord(src)
	rec.FirstSeen, rec.LastSeen = now, now

	rec.SSID = b.SSID
	rec.RadioName = b.RadioName
	rec.RouterOSVer = b.RouterOSVer
	if b.Frequency != 0 {
		rec.Frequency = int(b.Frequency) * 1000
	}
	rec.Privacy = domain.TriFromBool(b.Privacy)
	rec.RouterOS = domain.TriTrue
	rec.Nstreme = domain.TriFalse
	rec.TDMA = domain.TriTrue
	rec.WDS = domain.TriFromBool(b.WDS)
	rec.Bridge = domain.TriFromBool(b.Bridge)
	rec.NV2 = &domain.NV2Info{
		SGI:           domain.TriFromBool(b.SGI),
		FramePriority: boolToInt(b.FramePriority),
		QueueCount:    b.QueueCount,
	}

	if ext := nv2ExtChannel(b); ext != "" {
		rec.Channel = fmt.Sprintf("%d-%s", r.cfg.ChannelWidth, ext)
	} else {
		rec.Channel = fmt.Sprintf("%d", r.cfg.ChannelWidth)
	}
	rec.Streams = chainsToStreams(b.Chains)

	switch {
	case b.VHT:
		rec.Mode = "ac"
	case b.Is80211N:
		if int(b.Frequency) < 3000 {
			rec.Mode = "gn"
		} else {
			rec.Mode = "an"
		}
	case int(b.Frequency) < 3000:
		rec.Mode = "b"
	default:
		rec.Mode = "a"
	}

	appendSignalSample(rec, now, t.rssi)
	return *rec
}

func (r *Receiver) fromCambium(b *ie.CambiumBeacon, src [6]byte, t tags, now time.Time) domain.NetworkRecord {
	rec := domain.NewNetworkRecord(src)
	rec.FirstSeen, rec.LastSeen = now, now
	rec.SSID = b.SSID

	if b.Frequency != 0 {
		rec.Frequency = int(b.Frequency) * 1000
	} else {
		rec.Frequency = reconstructCambiumFrequency(r.cfg.FrequencyBase, t.channel)
	}

	appendSignalSample(rec, now, t.rssi)
	return *rec
}

// appendSignalSample records a signal sample only when the TZSP signal tag
// (0x0A) was actually present in the packet. A packet without that tag
// carries no RSSI information at all, so folding a sentinel-RSSI sample into
// Signals would let a no-signal reading pollute the sample list even with
// record_signals enabled.
func appendSignalSample(rec *domain.NetworkRecord, now time.Time, rssi *int8) {
	if rssi == nil {
		return
	}
	rec.Signals.Append(domain.Signal{
		Timestamp: now,
		RSSI:      *rssi,
		Noise:     domain.NoSignal,
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
		Altitude:  math.NaN(),
		Accuracy:  math.NaN(),
		Azimuth:   math.NaN(),
		Distance:  math.NaN(),
	})
}

func chainsToStreams(chains int) int8 {
	if chains <= 0 {
		return -1
	}
	return int8(chains)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// mac80211Mode mirrors mac80211_net_is_{he,vht,ht,ofdm,dsss} precedence:
// the highest PHY mode actually observed wins, and HT/OFDM are further
// split into "g"/"a" variants by band.
func mac80211Mode(f *ie.Frame, frequencyKHz int) string {
	below2_4GHz := frequencyKHz != 0 && frequencyKHz < 3000000
	switch {
	case f.HE:
		return "ax"
	case f.VHT:
		return "ac"
	case f.HT:
		if below2_4GHz {
			return "gn"
		}
		return "an"
	case f.OFDMRates != 0:
		if below2_4GHz {
			return "g"
		}
		return "a"
	case f.DSSSRates != 0:
		return "b"
	default:
		return ""
	}
}

func nv2ExtChannel(b *ie.NV2Beacon) string {
	// The NV2 beacon's 80211AC tag only carries a channel-offset byte, not
	// the richer VHT-mode encoding mac80211 IEs use; absent further capture
	// data to reverse the offset->label mapping, only presence is reported.
	if b.VHT {
		return "vht"
	}
	return ""
}
