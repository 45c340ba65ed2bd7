package domain

// Tri is a three-valued boolean: unknown, false, or true. RouterOS scan
// tables and beacon IEs routinely omit a flag rather than reporting it as
// false, so a bare bool loses that distinction; Tri keeps it explicit
// instead of overloading a sentinel int the way the original C model did.
type Tri int8

const (
	TriUnknown Tri = iota
	TriFalse
	TriTrue
)

// TriFromBool lifts a known boolean into a Tri.
func TriFromBool(b bool) Tri {
	if b {
		return TriTrue
	}
	return TriFalse
}

// Bool reports the value and whether it was known at all.
func (t Tri) Bool() (value bool, known bool) {
	switch t {
	case TriTrue:
		return true, true
	case TriFalse:
		return false, true
	default:
		return false, false
	}
}

func (t Tri) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Merge takes the incoming value whenever it is known, falling back to the
// receiver otherwise. This matches the scalar/string/int merge rule used
// throughout consolidation (network.go's "incoming non-empty wins"): a
// later, more current observation overrides an older one, and a known flag
// is never demoted back to unknown: an incoming sample that does not report
// it leaves the receiver's value in place.
func (t Tri) Merge(other Tri) Tri {
	if other == TriUnknown {
		return t
	}
	return other
}
