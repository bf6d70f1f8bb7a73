// Package mapping translates positions and ranges between host and virtual
// coordinate spaces. Virtual documents preserve the host line/column layout,
// so translation reduces to validating that a position actually falls inside
// the target region; the numeric coordinates carry over unchanged. The
// validation is what matters: a position outside the region is rejected, not
// clamped, so results can never silently land in the wrong language's span.
package mapping

import (
	"errors"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/region"
)

var (
	ErrNotInRegion   = errors.New("position not in region")
	ErrNotInDocument = errors.New("position not in document")
)

// ToVirtual maps a host position into the region's virtual document.
func ToVirtual(pos protocol.Position, r region.Region, hostText string) (protocol.Position, error) {
	offset, err := OffsetOf(pos, hostText)
	if err != nil {
		return protocol.Position{}, err
	}
	if !r.Contains(offset) {
		return protocol.Position{}, ErrNotInRegion
	}
	return pos, nil
}

// ToHost maps a virtual-document position back into the host document.
// Round-trip identity holds for every position strictly inside the region:
// ToHost(ToVirtual(p)) == p.
func ToHost(pos protocol.Position, r region.Region, virtualText string) (protocol.Position, error) {
	offset, err := OffsetOf(pos, virtualText)
	if err != nil {
		return protocol.Position{}, err
	}
	if !r.Contains(offset) {
		return protocol.Position{}, ErrNotInRegion
	}
	return pos, nil
}

// ClampToRegion substitutes the nearest valid interior position for a
// position at or beyond the region's edges. Only completion triggers use
// this: a cursor sitting right on a boundary still completes in the embedded
// language.
func ClampToRegion(pos protocol.Position, r region.Region, hostText string) protocol.Position {
	offset, err := OffsetOf(pos, hostText)
	if err != nil {
		offset = len(hostText)
	}
	if offset < r.ContentStart {
		offset = r.ContentStart
	}
	if offset > r.ContentEnd {
		offset = r.ContentEnd
	}
	return region.PositionAt(hostText, offset)
}

// TranslateRange maps a result range from a region's virtual document into
// host coordinates. The end may sit exactly on the content end, since result
// ranges are end-exclusive.
func TranslateRange(rng protocol.Range, r region.Region, text string) (protocol.Range, error) {
	start, err := OffsetOf(rng.Start, text)
	if err != nil {
		return protocol.Range{}, err
	}
	end, err := OffsetOf(rng.End, text)
	if err != nil {
		return protocol.Range{}, err
	}
	if start > end || start < r.ContentStart || end > r.ContentEnd {
		return protocol.Range{}, ErrNotInRegion
	}
	return rng, nil
}

// OffsetOf converts a protocol position into a byte offset, rejecting
// positions that do not exist in the text. The position right after the last
// character of a line is valid; anything further is not. The byte conversion
// itself is Position.IndexIn, which handles the UTF-16 column encoding; this
// adds the strict existence check IndexIn's clamping hides.
func OffsetOf(pos protocol.Position, text string) (int, error) {
	lineStart := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		nl := strings.IndexByte(text[lineStart:], '\n')
		if nl < 0 {
			return 0, ErrNotInDocument
		}
		lineStart += nl + 1
	}

	lineText := text[lineStart:]
	if nl := strings.IndexByte(lineText, '\n'); nl >= 0 {
		lineText = lineText[:nl]
	}
	if int(pos.Character) > utf16Len(lineText) {
		return 0, ErrNotInDocument
	}
	return pos.IndexIn(text), nil
}

// utf16Len counts the UTF-16 code units of a string, which is the unit LSP
// columns are expressed in.
func utf16Len(s string) int {
	length := 0
	for _, r := range s {
		if r > 0xFFFF {
			length += 2
		} else {
			length++
		}
	}
	return length
}
