package document

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document is an open host document. The store hands out value copies, so a
// Document in hand is a consistent snapshot of one version even while edits
// keep arriving.
type Document struct {
	URI        string
	LanguageID string
	Text       string
	Version    int32
}

// Change is a single content change from textDocument/didChange. A nil Range
// replaces the whole document.
type Change struct {
	Range *protocol.Range
	Text  string
}

func (d *Document) apply(change Change) {
	if change.Range == nil {
		d.Text = change.Text
		return
	}

	start := change.Range.Start.IndexIn(d.Text)
	end := change.Range.End.IndexIn(d.Text)
	if start < 0 {
		start = 0
	}
	if end > len(d.Text) {
		end = len(d.Text)
	}
	if start > end {
		start = end
	}

	buf := make([]byte, 0, len(d.Text)-(end-start)+len(change.Text))
	buf = append(buf, d.Text[:start]...)
	buf = append(buf, change.Text...)
	buf = append(buf, d.Text[end:]...)
	d.Text = string(buf)
}
