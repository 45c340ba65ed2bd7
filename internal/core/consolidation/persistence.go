package consolidation

import (
	"compress/gzip"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

// StripOptions selects which optional data a save omits, matching the
// original log format's per-field strip flags.
type StripOptions struct {
	DropSignals bool
	DropGPS     bool
	DropAzimuth bool
}

// wireRecord is the on-disk encoding: compact keys, BSSID as a bare
// 12-hex-digit uppercase string, NaN geo fields omitted rather than
// encoded (encoding/json refuses to marshal NaN at all), everything else
// matching the field list in the log-file format.
type wireRecord struct {
	Address string   `json:"address"`
	Freq    int      `json:"freq,omitempty"`
	Chan    string   `json:"chan,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	SSID    string   `json:"ssid,omitempty"`
	Name    string   `json:"name,omitempty"`
	RSSI    *int8    `json:"s,omitempty"`
	Noise   *int8    `json:"n,omitempty"`
	Priv    *bool    `json:"priv,omitempty"`
	ROS     *bool    `json:"ros,omitempty"`
	NS      *bool    `json:"ns,omitempty"`
	TDMA    *bool    `json:"tdma,omitempty"`
	WDS     *bool    `json:"wds,omitempty"`
	BR      *bool    `json:"br,omitempty"`
	ROSV    string   `json:"rosv,omitempty"`
	First   int64    `json:"first"`
	Last    int64    `json:"last"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	Alt     *float64 `json:"alt,omitempty"`
	Acc     *float64 `json:"acc,omitempty"`
	Azi     *float64 `json:"azi,omitempty"`
	Dist    *float64 `json:"dist,omitempty"`

	Signals []wireSignal `json:"signals,omitempty"`
}

type wireSignal struct {
	T    int64    `json:"t"`
	RSSI int8     `json:"s"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	Alt  *float64 `json:"alt,omitempty"`
	Acc  *float64 `json:"acc,omitempty"`
	Azi  *float64 `json:"azi,omitempty"`
}

func encodeAddress(addr [6]byte) string {
	return strings.ToUpper(hex.EncodeToString(addr[:]))
}

func decodeAddress(s string) ([6]byte, error) {
	var addr [6]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 6 {
		return addr, fmt.Errorf("malformed address %q", s)
	}
	copy(addr[:], b)
	return addr, nil
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatVal(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func triPtr(t domain.Tri) *bool {
	v, known := t.Bool()
	if !known {
		return nil
	}
	return &v
}

func triFromPtr(p *bool) domain.Tri {
	if p == nil {
		return domain.TriUnknown
	}
	return domain.TriFromBool(*p)
}

func toWire(rec domain.NetworkRecord, opts StripOptions) wireRecord {
	w := wireRecord{
		Address: encodeAddress(rec.Address),
		Freq:    rec.Frequency,
		Chan:    rec.Channel,
		Mode:    rec.Mode,
		SSID:    rec.SSID,
		Name:    rec.RadioName,
		ROSV:    rec.RouterOSVer,
		First:   rec.FirstSeen.Unix(),
		Last:    rec.LastSeen.Unix(),
		Priv:    triPtr(rec.Privacy),
		ROS:     triPtr(rec.RouterOS),
		NS:      triPtr(rec.Nstreme),
		TDMA:    triPtr(rec.TDMA),
		WDS:     triPtr(rec.WDS),
		BR:      triPtr(rec.Bridge),
	}
	if rec.RSSI != domain.NoSignal {
		w.RSSI = &rec.RSSI
	}
	if rec.Noise != domain.NoSignal {
		w.Noise = &rec.Noise
	}
	if !opts.DropGPS {
		w.Lat = floatPtr(rec.Latitude)
		w.Lon = floatPtr(rec.Longitude)
		w.Alt = floatPtr(rec.Altitude)
		w.Acc = floatPtr(rec.Accuracy)
		w.Dist = floatPtr(rec.Distance)
	}
	if !opts.DropAzimuth {
		w.Azi = floatPtr(rec.Azimuth)
	}
	if !opts.DropSignals {
		items := rec.Signals.Items()
		w.Signals = make([]wireSignal, 0, len(items))
		for _, s := range items {
			ws := wireSignal{T: s.Timestamp.Unix(), RSSI: s.RSSI}
			if !opts.DropGPS {
				ws.Lat = floatPtr(s.Latitude)
				ws.Lon = floatPtr(s.Longitude)
				ws.Alt = floatPtr(s.Altitude)
				ws.Acc = floatPtr(s.Accuracy)
			}
			if !opts.DropAzimuth {
				ws.Azi = floatPtr(s.Azimuth)
			}
			w.Signals = append(w.Signals, ws)
		}
	}
	return w
}

func fromWire(w wireRecord) (domain.NetworkRecord, error) {
	addr, err := decodeAddress(w.Address)
	if err != nil {
		return domain.NetworkRecord{}, err
	}
	rec := *domain.NewNetworkRecord(addr)
	rec.Frequency = w.Freq
	rec.Channel = w.Chan
	rec.Mode = w.Mode
	rec.SSID = w.SSID
	rec.RadioName = w.Name
	rec.RouterOSVer = w.ROSV
	rec.FirstSeen = time.Unix(w.First, 0).UTC()
	rec.LastSeen = time.Unix(w.Last, 0).UTC()
	rec.Privacy = triFromPtr(w.Priv)
	rec.RouterOS = triFromPtr(w.ROS)
	rec.Nstreme = triFromPtr(w.NS)
	rec.TDMA = triFromPtr(w.TDMA)
	rec.WDS = triFromPtr(w.WDS)
	rec.Bridge = triFromPtr(w.BR)
	if w.RSSI != nil {
		rec.RSSI = *w.RSSI
	}
	if w.Noise != nil {
		rec.Noise = *w.Noise
	}
	rec.Latitude = floatVal(w.Lat)
	rec.Longitude = floatVal(w.Lon)
	rec.Altitude = floatVal(w.Alt)
	rec.Accuracy = floatVal(w.Acc)
	rec.Azimuth = floatVal(w.Azi)
	rec.Distance = floatVal(w.Dist)

	for _, ws := range w.Signals {
		rec.Signals.Append(domain.Signal{
			Timestamp: time.Unix(ws.T, 0).UTC(),
			RSSI:      ws.RSSI,
			Noise:     domain.NoSignal,
			Latitude:  floatVal(ws.Lat),
			Longitude: floatVal(ws.Lon),
			Altitude:  floatVal(ws.Alt),
			Accuracy:  floatVal(ws.Acc),
			Azimuth:   floatVal(ws.Azi),
			Distance:  math.NaN(),
		})
	}
	rec.Activity = domain.StateNew
	return rec, nil
}

// Save writes records as a single JSON array to path, gzip-framing the
// output iff path ends in ".gz". A failed write never touches any
// previously saved file at path: the new content is written to a sibling
// temp file and renamed into place only on success.
func Save(path string, records []domain.NetworkRecord, opts StripOptions) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmp)
		}
	}()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	enc := json.NewEncoder(w)
	if _, err = io.WriteString(w, "["); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	for i, rec := range records {
		if i > 0 {
			if _, err = io.WriteString(w, ","); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
		if err = enc.Encode(toWire(rec, opts)); err != nil {
			return fmt.Errorf("encode %s: %w", encodeAddress(rec.Address), err)
		}
	}
	if _, err = io.WriteString(w, "]"); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return fmt.Errorf("gzip close: %w", err)
		}
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// Load streams path's JSON array one record at a time through onRecord,
// the same incremental-parse contract the original log reader offered so
// a caller can merge into a live table without holding the whole file in
// memory at once.
func Load(path string, onRecord func(domain.NetworkRecord)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil { // opening '['
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for dec.More() {
		var w wireRecord
		if err := dec.Decode(&w); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		rec, err := fromWire(w)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		onRecord(rec)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
