// Package scanlist compresses and expands RouterOS scan-list strings: a
// comma-separated list of frequencies (in MHz) where consecutive 5 MHz
// steps collapse to a "first-last" range, exactly as RouterOS itself
// displays and accepts them (e.g. "5180,5185,5190" -> "5180-5190").
package scanlist

import (
	"strconv"
	"strings"
)

// Compress collapses runs of frequencies exactly 5 MHz apart into a
// "first-last" range, ported field-for-field from the original's
// str_scanlist_compress: non-numeric tokens (band names like
// "5ghz-a/n/ac") pass through untouched and reset the run.
func Compress(input string) string {
	if input == "" {
		return ""
	}

	var out strings.Builder
	var prev, lastWritten int

	flush := func() {
		if lastWritten != prev {
			out.WriteByte('-')
			out.WriteString(strconv.Itoa(prev))
		}
	}

	for _, tok := range strings.Split(input, ",") {
		if tok == "" {
			continue
		}

		curr, err := strconv.Atoi(tok)
		if err != nil || curr == 0 {
			flush()
			if out.Len() > 0 {
				out.WriteByte(',')
			}
			out.WriteString(tok)
			prev, lastWritten = 0, 0
			continue
		}

		if prev == 0 {
			if out.Len() > 0 {
				out.WriteByte(',')
			}
			out.WriteString(tok)
			prev, lastWritten = curr, curr
			continue
		}

		if prev != curr-5 || curr%5 != 0 {
			flush()
			out.WriteByte(',')
			out.WriteString(strconv.Itoa(curr))
			lastWritten = curr
		}
		prev = curr
	}

	flush()
	return out.String()
}

// Expand is Compress's inverse: every "first-last" range is rewritten as
// the explicit comma-separated list of 5 MHz steps it stands for, the
// form the driver sends to `/interface wireless set scan-list=` since
// RouterOS accepts both but the original always sent the expanded form
// on the wire and only compressed for display.
func Expand(input string) string {
	if input == "" {
		return ""
	}

	var out strings.Builder
	for _, tok := range strings.Split(input, ",") {
		if tok == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteByte(',')
		}
		lo, hi, ok := splitRange(tok)
		if !ok {
			out.WriteString(tok)
			continue
		}
		for f, first := lo, true; f <= hi; f += 5 {
			if !first {
				out.WriteByte(',')
			}
			out.WriteString(strconv.Itoa(f))
			first = false
		}
	}
	return out.String()
}

// splitRange recognizes "5180-5200"; a bare band token like "5ghz-a" also
// contains a hyphen but doesn't parse as two integers, so it's correctly
// rejected and passed through by the caller.
func splitRange(tok string) (lo, hi int, ok bool) {
	dash := strings.IndexByte(tok, '-')
	if dash <= 0 || dash == len(tok)-1 {
		return 0, 0, false
	}
	lo, errLo := strconv.Atoi(tok[:dash])
	hi, errHi := strconv.Atoi(tok[dash+1:])
	if errLo != nil || errHi != nil || lo == 0 || hi == 0 || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}
