package lineedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreen_PlainLineCommitsOnLF(t *testing.T) {
	s := New(4)
	s.Write([]byte("hello\r\n"))
	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0])
}

func TestScreen_NoCommitWithoutNewline(t *testing.T) {
	s := New(4)
	s.Write([]byte("partial"))
	assert.Empty(t, s.Lines())
	assert.Equal(t, "partial", s.Rows()[0])
}

func TestScreen_CursorPositionOverwritesInPlace(t *testing.T) {
	s := New(4)
	s.Write([]byte("AAAAAAAAAA"))
	// Move to row 1, col 1 (1-based) and overwrite.
	s.Write([]byte("\x1b[1;1HBB"))
	assert.Equal(t, "BBAAAAAAAA", s.Rows()[0])
}

func TestScreen_EraseLineFromCursor(t *testing.T) {
	s := New(4)
	s.Write([]byte("ABCDEFGH"))
	// Cursor is at column 8 after writing; move back to column 3 then erase.
	s.Write([]byte("\x1b[1;4H\x1b[K"))
	assert.Equal(t, "ABC", s.Rows()[0])
}

func TestScreen_EraseEntireLine(t *testing.T) {
	s := New(4)
	s.Write([]byte("ABCDEFGH"))
	s.Write([]byte("\x1b[2K"))
	assert.Equal(t, "", s.Rows()[0])
}

func TestScreen_CursorUpKeepsColumn(t *testing.T) {
	s := New(4)
	s.Write([]byte("\x1b[3;1Hrow3"))
	// CSI A moves up a row but keeps the column (4, after "row3").
	s.Write([]byte("\x1b[A\x1b[Arow1"))
	rows := s.Rows()
	assert.Equal(t, "    row1", rows[0])
	assert.Equal(t, "row3", rows[2])
}

func TestScreen_EraseDisplayClearsEverything(t *testing.T) {
	s := New(3)
	s.Write([]byte("one\r\ntwo\r\nthree"))
	s.Write([]byte("\x1b[2J"))
	for _, r := range s.Rows() {
		assert.Empty(t, r)
	}
}

func TestScreen_MultipleLinesCommitInOrder(t *testing.T) {
	s := New(4)
	s.Write([]byte("first\r\nsecond\r\nthird\r\n"))
	assert.Equal(t, []string{"first", "second", "third"}, s.Lines())
}

func TestScreen_ScrollsWhenPastLastRow(t *testing.T) {
	s := New(2)
	s.Write([]byte("a\r\nb\r\nc\r\n"))
	assert.Equal(t, []string{"a", "b", "c"}, s.Lines())
}

func TestScreen_IgnoresNonCSIEscape(t *testing.T) {
	s := New(2)
	// ESC followed by a non-'[' final byte is not a recognised CSI sequence
	// and must be swallowed without touching the cursor or screen.
	s.Write([]byte("\x1bZhello"))
	assert.Equal(t, "hello", s.Rows()[0])
}

func TestScreen_LinesDrainsOnlyOnce(t *testing.T) {
	s := New(2)
	s.Write([]byte("a\r\n"))
	first := s.Lines()
	require.Len(t, first, 1)
	assert.Empty(t, s.Lines())
}
