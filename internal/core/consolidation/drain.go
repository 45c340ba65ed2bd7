package consolidation

import (
	"time"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
	"github.com/lcalzada-xor/wmap/internal/core/ports"
	"github.com/lcalzada-xor/wmap/internal/telemetry"
)

// updateKindNone marks a staged sample that mergeOne refused outright (a
// blacklisted address): it never enters the events map, distinct from
// UpdateOnlyInactive which is a real, reportable event.
const updateKindNone domain.UpdateKind = -1

// drain is the heartbeat body: merge every staged sample into the table in
// arrival order, then age-scan every record. Only ever called from the
// dispatcher goroutine.
func (t *Table) drain() []ports.UpdateEvent {
	staged := t.staging
	t.staging = nil

	events := make(map[[6]byte]domain.UpdateKind, len(staged))

	for _, sample := range staged {
		kind := t.mergeOne(sample)
		if kind == updateKindNone {
			continue
		}
		if existing, ok := events[sample.Address]; !ok || kind > existing {
			events[sample.Address] = kind
		}
	}

	now := time.Now()
	t.ageScan(now, events)

	out := make([]ports.UpdateEvent, 0, len(events))
	for addr, kind := range events {
		e := t.records[addr]
		if e == nil {
			continue
		}
		out = append(out, ports.UpdateEvent{Kind: kind, Record: *e.record})
	}
	telemetry.ConsolidationDrainSize.Observe(float64(len(out)))
	return out
}

// mergeOne folds a single staged sample into the table, following the
// consolidation rules: insert-as-New on first sight, otherwise merge
// scalars/samples and promote Inactive/Active back to Active. The returned
// UpdateKind is the single highest-priority reason this address changed;
// higher values (NewAlarm, NewHighlight) win over plain Update so a
// caller that only wants to react once per address never misses the most
// important reason.
func (t *Table) mergeOne(sample domain.NetworkRecord) domain.UpdateKind {
	if t.cfg.Predicates.blacklisted(sample.Address) {
		return updateKindNone
	}
	if t.cfg.ClipInvalidSignal {
		clipSignal(&sample)
	}
	if !t.cfg.RecordSignals {
		sample.Signals = domain.SignalList{}
	}

	e, existed := t.records[sample.Address]
	if !existed {
		rec := domain.NewNetworkRecord(sample.Address)
		rec.Merge(&sample)
		if sample.FirstSeen.IsZero() {
			rec.FirstSeen = sample.LastSeen
		}
		if rec.LastSeen.IsZero() {
			rec.LastSeen = rec.FirstSeen
		}
		rec.Activity = domain.StateNew
		e = &entry{record: rec}
		t.records[sample.Address] = e
		t.active[sample.Address] = struct{}{}
		return t.newUpdateKind(sample.Address)
	}

	before := e.record.LastSeen
	e.record.Merge(&sample)

	if e.record.LastSeen.After(before) {
		e.record.Activity = domain.StateActive
		t.active[sample.Address] = struct{}{}
		return domain.UpdateExisting
	}
	return domain.UpdateOnlyInactive
}

func (t *Table) newUpdateKind(addr [6]byte) domain.UpdateKind {
	switch {
	case t.cfg.Predicates.alarmed(addr):
		return domain.UpdateNewAlarm
	case t.cfg.Predicates.highlighted(addr):
		return domain.UpdateNewHighlight
	default:
		return domain.UpdateNew
	}
}

// ageScan demotes New entries whose new_timeout has elapsed to Active, and
// demotes Active/New entries whose active_timeout has elapsed to Inactive
// (removing them from the active set). Only the move to Inactive is
// reported, as UpdateOnlyInactive unless the address already has an event
// from this drain, so a UI can repaint a greyed-out row without treating
// it as a fresh alarm-worthy event; New -> Active is not reported.
func (t *Table) ageScan(now time.Time, events map[[6]byte]domain.UpdateKind) {
	for addr, e := range t.records {
		rec := e.record
		age := now.Sub(rec.LastSeen)

		switch rec.Activity {
		case domain.StateNew:
			if age >= t.cfg.NewTimeout {
				rec.Activity = domain.StateActive
			}
		case domain.StateActive:
			// no-op; handled by the shared active_timeout check below
		}

		if rec.Activity != domain.StateInactive && age >= t.cfg.ActiveTimeout {
			rec.Activity = domain.StateInactive
			delete(t.active, addr)
			if _, alreadyReported := events[addr]; !alreadyReported {
				events[addr] = domain.UpdateOnlyInactive
			}
		}
	}
}

// clipSignal guards against a known RouterOS bug where a scan table
// reports an rssi of -100 dBm or below; such values are clamped to -99 rather
// than trusted.
func clipSignal(sample *domain.NetworkRecord) {
	if sample.RSSI != domain.NoSignal && sample.RSSI < defaultClipFloor {
		sample.RSSI = defaultClipFloor
	}
	last, ok := sample.Signals.Last()
	if ok && last.HasSignal() && last.RSSI < defaultClipFloor {
		items := sample.Signals.Items()
		items[len(items)-1].RSSI = defaultClipFloor
	}
}
