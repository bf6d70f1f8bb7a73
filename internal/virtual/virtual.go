package virtual

import (
	"fmt"

	"ravenls/internal/region"
)

// Document is the synthetic per-region document handed to an embedded
// analyzer. Its text has the same line/column layout as the host text of the
// version it was built from: every byte outside the region's content span is
// blanked to a space and newlines are kept, so any position the analyzer
// reports is already a valid host position.
type Document struct {
	Region  region.Region
	Ordinal int
	URI     string
	Text    string
	Version int32
}

func build(hostURI, hostText string, r region.Region, ordinal int, version int32) *Document {
	buf := []byte(hostText)
	for i := range buf {
		if i >= r.ContentStart && i < r.ContentEnd {
			continue
		}
		if buf[i] != '\n' {
			buf[i] = ' '
		}
	}
	return &Document{
		Region:  r,
		Ordinal: ordinal,
		URI:     documentURI(hostURI, ordinal, r.LanguageID),
		Text:    string(buf),
		Version: version,
	}
}

// documentURI composes the internal identifier for a virtual document. It is
// never sent to the client; it only distinguishes targets at the analyzer
// boundary.
func documentURI(hostURI string, ordinal int, languageID string) string {
	return fmt.Sprintf("%s.region%d.%s", hostURI, ordinal, languageID)
}

// blankSpans blanks the full span of every region, newlines kept. The host
// analyzer reads this view of the document so it skips embedded spans while
// seeing unchanged line numbers.
func blankSpans(text string, regions []region.Region) string {
	buf := []byte(text)
	for _, r := range regions {
		end := r.End
		if end > len(buf) {
			end = len(buf)
		}
		for i := r.Start; i < end; i++ {
			if buf[i] != '\n' {
				buf[i] = ' '
			}
		}
	}
	return string(buf)
}
