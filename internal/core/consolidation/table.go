// Package consolidation implements the single-writer network table (C5):
// producers hand it samples, a heartbeat drains and merges them, and an age
// scan moves records through the New -> Active -> Inactive lifecycle. All
// of that mutation is serialized onto one dispatcher goroutine, mirroring
// the teacher's channel-pump style in internal/app/app.go's
// runDeviceWorkers/runAlertPump but collapsed to a single ordered consumer:
// the teacher fans merges out across runtime.NumCPU() workers because its
// device merges are commutative, but a heartbeat drain here must observe
// staged samples in the order producers appended them, so this table never
// fans out.
package consolidation

import (
	"context"
	"time"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
	"github.com/lcalzada-xor/wmap/internal/core/ports"
)

const (
	defaultActiveTimeout = 2 * time.Second
	defaultNewTimeout    = 2 * time.Second
	defaultClipFloor     = -99 // RouterOS has been observed to report rssi < -100 spuriously
)

// Predicates are owned by external configuration (blacklist/highlight/alarm
// address lists); the table only ever reads through them.
type Predicates struct {
	Blacklist func(address [6]byte) bool
	Highlight func(address [6]byte) bool
	Alarm     func(address [6]byte) bool
}

func (p Predicates) blacklisted(addr [6]byte) bool {
	return p.Blacklist != nil && p.Blacklist(addr)
}

func (p Predicates) highlighted(addr [6]byte) bool {
	return p.Highlight != nil && p.Highlight(addr)
}

func (p Predicates) alarmed(addr [6]byte) bool {
	return p.Alarm != nil && p.Alarm(addr)
}

// Config carries the tunables the original exposed through its
// configuration dialog: the two age thresholds, whether to retain sample
// history at all, the RouterOS rssi-clipping workaround, and the address
// predicates.
type Config struct {
	ActiveTimeout     time.Duration // 0 -> defaultActiveTimeout
	NewTimeout        time.Duration // 0 -> defaultNewTimeout
	RecordSignals     bool
	ClipInvalidSignal bool
	Predicates        Predicates
}

func (c Config) withDefaults() Config {
	if c.ActiveTimeout <= 0 {
		c.ActiveTimeout = defaultActiveTimeout
	}
	if c.NewTimeout <= 0 {
		c.NewTimeout = defaultNewTimeout
	}
	return c
}

type cmdKind int

const (
	cmdStage cmdKind = iota
	cmdDrain
	cmdSnapshot
	cmdLookup
	cmdClear
)

type command struct {
	kind   cmdKind
	sample domain.NetworkRecord
	addr   [6]byte
	reply  chan any
}

// entry is the table's internal bookkeeping for one address: the merged
// record plus the bits that never leave the dispatcher goroutine.
type entry struct {
	record *domain.NetworkRecord
}

// Table is the consolidation model. Construct with New, then run Run in its
// own goroutine before calling any other method.
type Table struct {
	cfg Config

	cmds chan command

	records map[[6]byte]*entry
	active  map[[6]byte]struct{}
	staging []domain.NetworkRecord
}

var _ ports.Consolidation = (*Table)(nil)

// New builds an idle table. Call Run to start its dispatcher goroutine.
func New(cfg Config) *Table {
	return &Table{
		cfg:     cfg.withDefaults(),
		cmds:    make(chan command, 4096),
		records: make(map[[6]byte]*entry),
		active:  make(map[[6]byte]struct{}),
	}
}

// Run is the dispatcher goroutine: it is the table's only writer, and the
// only reader of cmds, so every command is handled strictly in the order
// callers issued it. It returns when ctx is cancelled.
func (t *Table) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-t.cmds:
			t.handle(cmd)
		}
	}
}

func (t *Table) handle(cmd command) {
	switch cmd.kind {
	case cmdStage:
		t.staging = append(t.staging, cmd.sample)
	case cmdDrain:
		cmd.reply <- t.drain()
	case cmdSnapshot:
		cmd.reply <- t.snapshot()
	case cmdLookup:
		rec, ok := t.lookup(cmd.addr)
		cmd.reply <- lookupResult{record: rec, ok: ok}
	case cmdClear:
		t.records = make(map[[6]byte]*entry)
		t.active = make(map[[6]byte]struct{})
		t.staging = nil
	}
}

type lookupResult struct {
	record domain.NetworkRecord
	ok     bool
}

// Stage appends sample to the staging buffer. It never merges and never
// blocks on the dispatcher finishing other work, only on the command
// channel having room.
func (t *Table) Stage(sample domain.NetworkRecord) {
	t.cmds <- command{kind: cmdStage, sample: sample}
}

// Drain requests one heartbeat cycle and blocks for its result, so the
// caller (C3's heartbeat tick, or an internal ticker for the TZSP-only
// case) observes a result strictly after every Stage call issued earlier
// on the same goroutine.
func (t *Table) Drain() []ports.UpdateEvent {
	reply := make(chan any, 1)
	t.cmds <- command{kind: cmdDrain, reply: reply}
	return (<-reply).([]ports.UpdateEvent)
}

func (t *Table) Snapshot() []domain.NetworkRecord {
	reply := make(chan any, 1)
	t.cmds <- command{kind: cmdSnapshot, reply: reply}
	return (<-reply).([]domain.NetworkRecord)
}

func (t *Table) Lookup(address [6]byte) (domain.NetworkRecord, bool) {
	reply := make(chan any, 1)
	t.cmds <- command{kind: cmdLookup, addr: address, reply: reply}
	res := (<-reply).(lookupResult)
	return res.record, res.ok
}

// Clear empties the table. It is fire-and-forget like Stage: by the time a
// later Drain/Snapshot/Lookup is answered, the clear has already happened,
// since all four share the same FIFO command channel.
func (t *Table) Clear() {
	t.cmds <- command{kind: cmdClear}
}

func (t *Table) snapshot() []domain.NetworkRecord {
	out := make([]domain.NetworkRecord, 0, len(t.records))
	for _, e := range t.records {
		out = append(out, *e.record)
	}
	return out
}

func (t *Table) lookup(addr [6]byte) (domain.NetworkRecord, bool) {
	e, ok := t.records[addr]
	if !ok {
		return domain.NetworkRecord{}, false
	}
	return *e.record, true
}
