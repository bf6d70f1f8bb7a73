package region

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Region is a contiguous span of host text written in an embedded language.
// Start and End cover the full span including the delimiters and the language
// declaration; ContentStart and ContentEnd cover the embedded text itself.
// All offsets are byte offsets into the host text of HostVersion.
type Region struct {
	LanguageID   string
	Start        int
	End          int
	ContentStart int
	ContentEnd   int
	HostVersion  int32
	Unterminated bool
	Opaque       bool
}

// Contains reports whether the byte offset falls inside the region's content
// span. The span is half-open: the offset at ContentEnd belongs to the host.
func (r Region) Contains(offset int) bool {
	return offset >= r.ContentStart && offset < r.ContentEnd
}

// At returns the index of the region owning the given offset, if any.
// Regions are sorted and non-overlapping, so at most one can own it.
func At(regions []Region, offset int) (int, bool) {
	for i, r := range regions {
		if r.Contains(offset) {
			return i, true
		}
		if offset < r.ContentStart {
			break
		}
	}
	return 0, false
}

// AtInclusive is like At but also matches an offset sitting exactly on a
// region's content end. It backs boundary-inclusive completion triggers,
// where the cursor right after the last embedded character still belongs to
// the embedded language.
func AtInclusive(regions []Region, offset int) (int, bool) {
	for i, r := range regions {
		if offset >= r.ContentStart && offset <= r.ContentEnd {
			return i, true
		}
		if offset < r.ContentStart {
			break
		}
	}
	return 0, false
}

// PositionAt converts a byte offset into a protocol position within text,
// with the column counted in UTF-16 code units as the protocol requires.
// Offsets beyond the text clamp to the last position.
func PositionAt(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	var pos protocol.Position
	for _, r := range text[:offset] {
		switch {
		case r == '\n':
			pos.Line++
			pos.Character = 0
		case r > 0xFFFF:
			pos.Character += 2
		default:
			pos.Character++
		}
	}
	return pos
}
