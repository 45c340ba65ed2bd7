// Package lineedit emulates just enough of a VT100-ish terminal to track
// what a RouterOS interactive shell is redrawing over SSH: scan and sniff
// tables are not streamed, they are repainted in place with cursor-addressing
// escapes, so the driver has to maintain a small virtual screen and only hand
// a line to its caller once the line is "committed" (a newline moves past
// it); rows repainted in place without a newline are read back with Rows.
//
// There is no original C source for this behaviour in the retrieval pack --
// mt-ssh.c, which would have held the reference line editor, is absent from
// original_source/ (only mt-ssh.h's enums survive). This package is built
// from spec.md's prose description of the CR/LF/CSI K/CSI A-B/CSI H-f/CSI J
// contract rather than ported from a reference implementation.
package lineedit

// Screen is a virtual terminal: a slice of line buffers plus a cursor
// position. Feed it raw bytes with Write; read back committed lines with
// Lines, or peek at the current screen state with Rows.
type Screen struct {
	rows [][]rune
	row  int
	col  int

	// committed collects a row's text each time a LF moves the cursor past
	// that row (on any row, not only the last). The row itself stays on the
	// screen; erases and cursor moves never commit anything.
	committed []string

	// esc buffers a partially-received CSI sequence: 0x1b, then '[', then
	// parameter/intermediate bytes, until a final byte in 0x40-0x7e arrives.
	esc   []byte
	inEsc bool
}

// New creates a screen with the given number of rows, each starting empty.
// RouterOS's table redraw never needs more rows than fit the terminal height
// requested at PTY setup, so the caller picks a size large enough for the
// widest scan/sniff table layout it expects (the sshdriver read loop uses
// 200, comfortably larger than any RouterOS scan table).
func New(rows int) *Screen {
	if rows <= 0 {
		rows = 1
	}
	s := &Screen{rows: make([][]rune, rows)}
	for i := range s.rows {
		s.rows[i] = []rune{}
	}
	return s
}

// Write feeds raw bytes from the SSH channel into the screen. It never
// returns an error: malformed escape sequences are dropped silently, matching
// RouterOS's own tolerant redraw (a truncated read simply waits for more
// bytes on the next Write).
func (s *Screen) Write(p []byte) {
	for _, b := range p {
		s.writeByte(b)
	}
}

func (s *Screen) writeByte(b byte) {
	if s.inEsc {
		s.feedEsc(b)
		return
	}

	switch b {
	case 0x1b: // ESC
		s.inEsc = true
		s.esc = s.esc[:0]
		return
	case '\r':
		s.col = 0
		return
	case '\n':
		s.commitRow(s.row)
		s.row++
		s.col = 0
		if s.row >= len(s.rows) {
			s.scrollUp()
			s.row = len(s.rows) - 1
		}
		return
	}

	if b < 0x20 {
		// Other control bytes (bell, backspace) carry no table-redraw
		// information; ignore them.
		return
	}

	s.put(rune(b))
}

// put writes one printable rune at the cursor, growing the row as needed,
// then advances the column.
func (s *Screen) put(r rune) {
	row := s.rows[s.row]
	for len(row) <= s.col {
		row = append(row, ' ')
	}
	row[s.col] = r
	s.rows[s.row] = row
	s.col++
}

// feedEsc accumulates CSI sequence bytes until a final byte (0x40-0x7e)
// arrives, then dispatches it.
func (s *Screen) feedEsc(b byte) {
	s.esc = append(s.esc, b)
	// '[' lies in the final-byte range too, but as the first byte after ESC
	// it is the CSI introducer and does not end the sequence.
	if b >= 0x40 && b <= 0x7e && !(b == '[' && len(s.esc) == 1) {
		s.inEsc = false
		s.dispatchCSI(s.esc)
		s.esc = s.esc[:0]
	}
	// Guard against an unterminated sequence running away forever.
	if len(s.esc) > 64 {
		s.inEsc = false
		s.esc = s.esc[:0]
	}
}

// dispatchCSI handles the handful of sequences RouterOS's table redraw
// actually emits. seq is everything after the ESC byte, e.g. "[2K" or "[5;1H".
func (s *Screen) dispatchCSI(seq []byte) {
	if len(seq) == 0 || seq[0] != '[' {
		return
	}
	body := seq[1 : len(seq)-1]
	final := seq[len(seq)-1]

	params := parseParams(body)

	switch final {
	case 'K': // erase in line
		s.eraseLine(paramOr(params, 0, 0))
	case 'A': // cursor up
		s.row -= paramOr(params, 0, 1)
		s.clampRow()
	case 'B': // cursor down
		s.row += paramOr(params, 0, 1)
		s.clampRow()
	case 'H', 'f': // cursor position: row;col, both 1-based
		r := paramOr(params, 0, 1)
		c := paramOr(params, 1, 1)
		s.row = clamp(r-1, 0, len(s.rows)-1)
		s.col = c - 1
		if s.col < 0 {
			s.col = 0
		}
	case 'J': // erase in display
		s.eraseDisplay(paramOr(params, 0, 0))
	}
}

// eraseLine implements CSI K: mode 0 erases from cursor to end of line, mode
// 1 from start to cursor, mode 2 the entire line. RouterOS only ever sends
// mode 0 and the bare form (equivalent to 0) but all three are handled.
func (s *Screen) eraseLine(mode int) {
	row := s.rows[s.row]
	switch mode {
	case 1:
		for i := 0; i <= s.col && i < len(row); i++ {
			row[i] = ' '
		}
	case 2:
		s.rows[s.row] = []rune{}
	default:
		if s.col < len(row) {
			s.rows[s.row] = row[:s.col]
		}
	}
}

// eraseDisplay implements CSI J: mode 0 erases from cursor to end of screen,
// mode 1 from start to cursor, mode 2 the whole screen. A redraw cycle
// typically opens with a full-screen erase (mode 2) before repainting the
// table from the header row down.
func (s *Screen) eraseDisplay(mode int) {
	switch mode {
	case 1:
		for i := 0; i < s.row; i++ {
			s.rows[i] = []rune{}
		}
		s.eraseLine(1)
	case 2:
		for i := range s.rows {
			s.rows[i] = []rune{}
		}
	default:
		s.eraseLine(0)
		for i := s.row + 1; i < len(s.rows); i++ {
			s.rows[i] = []rune{}
		}
	}
}

func (s *Screen) clampRow() {
	s.row = clamp(s.row, 0, len(s.rows)-1)
}

// commitRow appends the given row's current text to committed, trimmed of
// trailing padding spaces introduced by put's row-growth.
func (s *Screen) commitRow(i int) {
	line := trimTrailingSpace(s.rows[i])
	if len(line) == 0 {
		return
	}
	s.committed = append(s.committed, string(line))
}

// scrollUp drops the top row and shifts every other row up by one, the way a
// real terminal scrolls once the cursor LFs off the bottom row.
func (s *Screen) scrollUp() {
	copy(s.rows, s.rows[1:])
	s.rows[len(s.rows)-1] = []rune{}
}

// Lines drains and returns every line committed since the last call.
func (s *Screen) Lines() []string {
	out := s.committed
	s.committed = nil
	return out
}

// Rows returns a snapshot of every row currently on the virtual screen,
// trimmed of trailing padding, in top-to-bottom order -- including rows that
// have not yet been committed via CR/LF. A table redraw overwrites rows in
// place without ever sending a trailing newline on the last redrawn row, so a
// caller that only consumed Lines would never see that row; Rows is how the
// table parser picks up the full current screen after a redraw settles.
func (s *Screen) Rows() []string {
	out := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, string(trimTrailingSpace(r)))
	}
	return out
}

func trimTrailingSpace(r []rune) []rune {
	end := len(r)
	for end > 0 && r[end-1] == ' ' {
		end--
	}
	return r[:end]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// parseParams splits a CSI body like "5;1" into its integer parameters. An
// empty segment (e.g. the bare "K" in "CSI K") yields no parameters at all,
// letting paramOr supply the sequence's documented default.
func parseParams(body []byte) []int {
	if len(body) == 0 {
		return nil
	}
	var params []int
	start := 0
	for i := 0; i <= len(body); i++ {
		if i == len(body) || body[i] == ';' {
			params = append(params, atoiDefault(string(body[start:i]), 0))
			start = i + 1
		}
	}
	return params
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func paramOr(params []int, idx, def int) int {
	if idx >= len(params) {
		return def
	}
	if params[idx] == 0 {
		return def
	}
	return params[idx]
}
