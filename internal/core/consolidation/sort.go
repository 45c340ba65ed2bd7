package consolidation

import (
	"bytes"
	"sort"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

// SortKey names the single column the table is currently ordered by,
// matching the original's single-column sort (address, frequency, rssi,
// last-seen, ...) rather than a full multi-key comparator chain.
type SortKey int

const (
	SortByAddress SortKey = iota
	SortByFrequency
	SortByRSSI
	SortByLastSeen
	SortBySSID
)

// Sorted returns recs ordered by key; descending reverses the comparison
// (used for rssi and last-seen, where the strongest/most recent usually
// belongs first).
func Sorted(recs []domain.NetworkRecord, key SortKey, descending bool) []domain.NetworkRecord {
	out := make([]domain.NetworkRecord, len(recs))
	copy(out, recs)

	less := comparator(key)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func comparator(key SortKey) func(a, b domain.NetworkRecord) bool {
	switch key {
	case SortByFrequency:
		return func(a, b domain.NetworkRecord) bool { return a.Frequency < b.Frequency }
	case SortByRSSI:
		return func(a, b domain.NetworkRecord) bool { return a.RSSI < b.RSSI }
	case SortByLastSeen:
		return func(a, b domain.NetworkRecord) bool { return a.LastSeen.Before(b.LastSeen) }
	case SortBySSID:
		return func(a, b domain.NetworkRecord) bool { return a.SSID < b.SSID }
	default:
		return func(a, b domain.NetworkRecord) bool { return bytes.Compare(a.Address[:], b.Address[:]) < 0 }
	}
}

// SortGate's Disable and Enable bracket a bulk load (log replay, scan
// table refresh) so callers don't pay for a sort on every single insert --
// the equivalent of the original's mtscan_model_disable_sorting. The table
// itself never sorts internally; these only gate whether callers should
// bother re-sorting a view built from Snapshot on every intermediate
// insert versus once at the end.
type SortGate struct {
	disabled bool
}

func (g *SortGate) Disable() { g.disabled = true }
func (g *SortGate) Enable()  { g.disabled = false }
func (g *SortGate) Enabled() bool {
	return !g.disabled
}
