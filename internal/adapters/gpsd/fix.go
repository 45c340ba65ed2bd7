package gpsd

import (
	"time"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func toFix(m tpvMessage) domain.GPSFix {
	f := domain.NewGPSFix()
	f.Device = m.Device
	f.Mode = domain.GPSMode(m.Mode)

	if m.Time != "" {
		if t, err := time.Parse(time.RFC3339, m.Time); err == nil {
			f.Time = t.Unix()
		}
	}

	assign(&f.Ept, m.Ept)
	assign(&f.Lat, m.Lat)
	assign(&f.Lon, m.Lon)
	assign(&f.Alt, m.Alt)
	assign(&f.Epx, m.Epx)
	assign(&f.Epy, m.Epy)
	assign(&f.Epv, m.Epv)
	assign(&f.Track, m.Track)
	assign(&f.Speed, m.Speed)
	assign(&f.Climb, m.Climb)
	assign(&f.Eps, m.Eps)
	assign(&f.Epc, m.Epc)

	return f
}

func assign(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
