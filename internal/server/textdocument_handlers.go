package server

import (
	"context"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/analyzer"
	"ravenls/internal/document"
	"ravenls/internal/router"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	doc := s.docs.Open(
		params.TextDocument.URI,
		params.TextDocument.LanguageID,
		params.TextDocument.Text,
		params.TextDocument.Version,
	)
	s.rescan(doc)
	s.publishAll(context, doc.URI)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI

	changes := make([]document.Change, 0, len(params.ContentChanges))
	for _, raw := range params.ContentChanges {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			changes = append(changes, document.Change{Range: change.Range, Text: change.Text})
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, document.Change{Text: change.Text})
		default:
			return fmt.Errorf("unexpected change event type %T", raw)
		}
	}

	doc, err := s.docs.Apply(uri, params.TextDocument.Version, changes)
	if err != nil {
		return fmt.Errorf("failed to apply changes: %w", err)
	}
	s.rescan(doc)
	s.publishAll(context, uri)
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if params.Text != nil {
		doc, ok := s.docs.Get(uri)
		if !ok {
			return fmt.Errorf("document not open: %s", uri)
		}
		if doc.Text != *params.Text {
			doc, err := s.docs.Apply(uri, doc.Version, []document.Change{{Text: *params.Text}})
			if err != nil {
				return err
			}
			s.rescan(doc)
		}
	}
	s.publishAll(context, uri)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.docs.Close(uri)
	s.dropState(uri)

	// Clear any diagnostics still shown for the closed document.
	publishDiagnostics(context, uri, nil, nil)
	return nil
}

// publishAll runs the diagnostics fan-out for the document's current
// snapshot and pushes the merged set.
func (s *Server) publishAll(glspContext *glsp.Context, uri string) {
	snap, ok := s.snapshot(uri)
	if !ok {
		return
	}

	outcomes := s.router.FanOut(context.Background(), snap, analyzer.CapDiagnostics)
	diagnostics := router.MergeDiagnostics(snap, outcomes)
	s.checkStale(snap)
	version := protocol.UInteger(snap.Host.Version)
	publishDiagnostics(glspContext, uri, &version, diagnostics)
}
