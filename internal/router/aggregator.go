package router

import (
	"errors"
	"log"
	"sort"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/analyzer"
	"ravenls/internal/mapping"
	"ravenls/internal/region"
)

// The aggregator joins fan-out outcomes into one host-coordinate result.
// ErrNotSupported outcomes vanish silently, failures and timeouts are logged
// and dropped, and nothing here ever turns into a protocol-level error.

// usable filters one outcome. It is the single place deciding how each error
// class degrades.
func usable(o Outcome) bool {
	if o.Err != nil {
		if !errors.Is(o.Err, analyzer.ErrNotSupported) {
			log.Printf("Dropping analyzer result for %s: %v", o.Target.Doc.URI, o.Err)
		}
		return false
	}
	return o.Result != nil
}

// MergeDiagnostics unions every target's diagnostics with the region scan's
// own, all in host coordinates, stably sorted by position. Duplicates are
// kept: each analyzer is authoritative for its own span.
func MergeDiagnostics(snap Snapshot, outcomes []Outcome) []protocol.Diagnostic {
	merged := append([]protocol.Diagnostic{}, snap.ScanDiagnostics...)

	for _, o := range outcomes {
		if !usable(o) {
			continue
		}
		for _, d := range o.Result.Diagnostics {
			if o.Target.Region != nil {
				rng, err := mapping.TranslateRange(d.Range, *o.Target.Region, o.Target.Doc.Text)
				if err != nil {
					log.Printf("Dropping out-of-region diagnostic from %s: %v", o.Target.Doc.URI, err)
					continue
				}
				d.Range = rng
			}
			merged = append(merged, d)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].Range.Start, merged[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Character < b.Character
	})
	return merged
}

// MergeFoldingRanges unions folding ranges, keeping only region ranges that
// stay within their region's lines, sorted by start line.
func MergeFoldingRanges(snap Snapshot, outcomes []Outcome) []protocol.FoldingRange {
	var merged []protocol.FoldingRange

	for _, o := range outcomes {
		if !usable(o) {
			continue
		}
		for _, f := range o.Result.FoldingRanges {
			if r := o.Target.Region; r != nil {
				startLine := region.PositionAt(snap.Host.Text, r.ContentStart).Line
				endLine := region.PositionAt(snap.Host.Text, r.ContentEnd).Line
				if f.StartLine < startLine || f.EndLine > endLine {
					continue
				}
			}
			merged = append(merged, f)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].StartLine != merged[j].StartLine {
			return merged[i].StartLine < merged[j].StartLine
		}
		return merged[i].EndLine < merged[j].EndLine
	})
	return merged
}

// MergeSymbols unions document symbols, dropping region symbols whose range
// does not map back into the host, sorted by position.
func MergeSymbols(snap Snapshot, outcomes []Outcome) []protocol.DocumentSymbol {
	var merged []protocol.DocumentSymbol

	for _, o := range outcomes {
		if !usable(o) {
			continue
		}
		for _, s := range o.Result.Symbols {
			if o.Target.Region != nil {
				rng, err := mapping.TranslateRange(s.Range, *o.Target.Region, o.Target.Doc.Text)
				if err != nil {
					log.Printf("Dropping out-of-region symbol %q from %s: %v", s.Name, o.Target.Doc.URI, err)
					continue
				}
				s.Range = rng
			}
			merged = append(merged, s)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].Range.Start, merged[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Character < b.Character
	})
	return merged
}

// Completions translates a sole-owner completion outcome into host terms. A
// dropped target yields nil, the "no information" response.
func Completions(snap Snapshot, o Outcome) []protocol.CompletionItem {
	if !usable(o) {
		return nil
	}

	items := make([]protocol.CompletionItem, 0, len(o.Result.Completions))
	for _, item := range o.Result.Completions {
		if o.Target.Region != nil {
			if edit, ok := item.TextEdit.(protocol.TextEdit); ok {
				rng, err := mapping.TranslateRange(edit.Range, *o.Target.Region, o.Target.Doc.Text)
				if err != nil {
					item.TextEdit = nil
				} else {
					edit.Range = rng
					item.TextEdit = edit
				}
			}
		}
		items = append(items, item)
	}
	return items
}

// Hover translates a sole-owner hover outcome into host terms.
func Hover(snap Snapshot, o Outcome) *protocol.Hover {
	if !usable(o) || o.Result.Hover == nil {
		return nil
	}

	hover := *o.Result.Hover
	if hover.Range != nil && o.Target.Region != nil {
		rng, err := mapping.TranslateRange(*hover.Range, *o.Target.Region, o.Target.Doc.Text)
		if err != nil {
			hover.Range = nil
		} else {
			hover.Range = &rng
		}
	}
	return &hover
}

// Definition rewrites locations pointing into the virtual document back to
// the host URI; locations in other documents pass through untouched. Virtual
// URIs never reach the client.
func Definition(snap Snapshot, o Outcome) []protocol.Location {
	if !usable(o) {
		return nil
	}

	var locations []protocol.Location
	for _, loc := range o.Result.Definition {
		if o.Target.Region != nil && loc.URI == o.Target.Doc.URI {
			rng, err := mapping.TranslateRange(loc.Range, *o.Target.Region, o.Target.Doc.Text)
			if err != nil {
				log.Printf("Dropping unmappable definition from %s: %v", o.Target.Doc.URI, err)
				continue
			}
			loc = protocol.Location{URI: snap.Host.URI, Range: rng}
		}
		locations = append(locations, loc)
	}
	return locations
}

// SignatureHelp passes a sole-owner signature help outcome through; it
// carries no document coordinates.
func SignatureHelp(o Outcome) *protocol.SignatureHelp {
	if !usable(o) {
		return nil
	}
	return o.Result.SignatureHelp
}
