package document

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/saibing/served/protocol"
)

// lineRange returns the [start,end) byte range of line within text, given
// its precomputed line-start index. end excludes the line's own terminator.
func lineRange(text []byte, idx []int, line int) (start, end int) {
	start = idx[line]
	if line+1 < len(idx) {
		end = idx[line+1]
	} else {
		end = len(text)
	}
	// Trim the trailing terminator bytes so character counting never
	// walks into \r/\n.
	for end > start && (text[end-1] == '\n' || text[end-1] == '\r') {
		end--
	}
	return start, end
}

// OffsetOf converts a protocol.Position (UTF-16 code units within a line)
// to a byte offset into s.Text(), with clamp behavior: a position past
// end-of-line clamps to end-of-line, a position past end-of-document (i.e.
// Line beyond the last line) clamps to document end.
func (s Snapshot) OffsetOf(pos protocol.Position) int {
	return offsetOf(s.doc.Text, s.doc.lineIndex, pos)
}

func offsetOf(text []byte, idx []int, pos protocol.Position) int {
	line := pos.Line
	if line < 0 {
		line = 0
	}
	if line >= len(idx) {
		return len(text)
	}

	start, end := lineRange(text, idx, line)
	if pos.Character <= 0 {
		return start
	}

	units := 0
	offset := start
	for offset < end {
		r, size := utf8.DecodeRune(text[offset:end])
		if r == utf8.RuneError && size <= 1 {
			size = 1
		}
		width := utf16Width(r)
		if units+width > pos.Character {
			// The requested character falls inside a surrogate pair;
			// LSP positions may only legally land on code-unit
			// boundaries, so resolve to the start of this rune.
			return offset
		}
		units += width
		offset += size
		if units == pos.Character {
			return offset
		}
	}
	// Character is beyond the line's UTF-16 length: clamp to end-of-line.
	return end
}

// PositionOf converts a byte offset into s.Text() to a protocol.Position,
// counting UTF-16 code units. An offset past end-of-document clamps to the
// document's final position.
func (s Snapshot) PositionOf(offset int) protocol.Position {
	return positionOf(s.doc.Text, s.doc.lineIndex, offset)
}

func positionOf(text []byte, idx []int, offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	line := sort.Search(len(idx), func(i int) bool { return idx[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	start, end := lineRange(text, idx, line)
	if offset > end {
		offset = end
	}

	units := 0
	pos := start
	for pos < offset {
		r, size := utf8.DecodeRune(text[pos:end])
		if r == utf8.RuneError && size <= 1 {
			size = 1
		}
		units += utf16Width(r)
		pos += size
	}
	return protocol.Position{Line: line, Character: units}
}

// utf16Width reports how many UTF-16 code units r encodes as: 1 normally, 2
// for codepoints outside the BMP requiring a surrogate pair.
func utf16Width(r rune) int {
	n := utf16.RuneLen(r)
	if n < 1 {
		return 1
	}
	return n
}
