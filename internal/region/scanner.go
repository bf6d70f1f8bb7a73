package region

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	DefaultOpenMarker  = "<<"
	DefaultCloseMarker = ">>"
)

// Config controls how the scanner recognizes embedded regions in host text.
// Known lists the language ids that have a registered analyzer; a region
// declaring any other language is kept in the region list but marked opaque.
type Config struct {
	OpenMarker  string
	CloseMarker string
	Known       map[string]bool
}

type Scanner struct {
	config Config
}

func NewScanner(config Config) *Scanner {
	if config.OpenMarker == "" {
		config.OpenMarker = DefaultOpenMarker
	}
	if config.CloseMarker == "" {
		config.CloseMarker = DefaultCloseMarker
	}
	return &Scanner{config: config}
}

// Scan walks the host text once and returns the embedded regions in order,
// together with the diagnostics the scan itself produced. The result is
// deterministic: scanning the same text twice yields identical output.
//
// An open marker must be followed directly by a language id to start a
// region; anything else is plain host text. Open markers inside a region are
// plain text of that region, so nested embeddings never produce a region of
// their own. A region missing its close marker extends to end of file and is
// flagged unterminated.
func (s *Scanner) Scan(text string, version int32) ([]Region, []protocol.Diagnostic) {
	var regions []Region
	var diagnostics []protocol.Diagnostic

	for i := 0; i < len(text); {
		rel := strings.Index(text[i:], s.config.OpenMarker)
		if rel < 0 {
			break
		}
		start := i + rel

		idStart := start + len(s.config.OpenMarker)
		idEnd := idStart
		for idEnd < len(text) && isLanguageIDByte(text[idEnd], idEnd > idStart) {
			idEnd++
		}
		if idEnd == idStart {
			i = start + len(s.config.OpenMarker)
			continue
		}

		languageID := text[idStart:idEnd]
		contentStart := idEnd
		if contentStart < len(text) && isSeparatorByte(text[contentStart]) {
			contentStart++
		}

		r := Region{
			LanguageID:   languageID,
			Start:        start,
			ContentStart: contentStart,
			HostVersion:  version,
			Opaque:       !s.config.Known[languageID],
		}

		if rel := strings.Index(text[contentStart:], s.config.CloseMarker); rel >= 0 {
			r.ContentEnd = contentStart + rel
			r.End = r.ContentEnd + len(s.config.CloseMarker)
		} else {
			r.ContentEnd = len(text)
			r.End = len(text)
			r.Unterminated = true
			diagnostics = append(diagnostics, unterminatedDiagnostic(text, start, idEnd, languageID))
		}

		regions = append(regions, r)
		i = r.End
	}

	return regions, diagnostics
}

func isLanguageIDByte(b byte, tail bool) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case tail && (b >= '0' && b <= '9' || b == '_' || b == '-'):
		return true
	}
	return false
}

func isSeparatorByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

func unterminatedDiagnostic(text string, start, idEnd int, languageID string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := "ravenls"
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: PositionAt(text, start),
			End:   PositionAt(text, idEnd),
		},
		Severity: &severity,
		Source:   &source,
		Message:  "unterminated embedded block: " + languageID,
	}
}
