package server

import (
	"context"
	"strings"
	"testing"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/analyzer"
	"ravenls/internal/document"
	"ravenls/internal/region"
)

// sqlFake emits a diagnostic on every "FROM" it sees and a fixed completion
// item, which is enough to observe routing and coordinate translation
// end to end.
type sqlFake struct{}

func (a *sqlFake) LanguageID() string { return "sql" }

func (a *sqlFake) Capabilities() []analyzer.Capability {
	return []analyzer.Capability{analyzer.CapDiagnostics, analyzer.CapCompletion, analyzer.CapHover}
}

func (a *sqlFake) Analyze(ctx context.Context, capability analyzer.Capability, doc analyzer.Document, pos *protocol.Position) (*analyzer.Result, error) {
	switch capability {
	case analyzer.CapDiagnostics:
		var diagnostics []protocol.Diagnostic
		if idx := strings.Index(doc.Text, "FROM"); idx >= 0 {
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range: protocol.Range{
					Start: region.PositionAt(doc.Text, idx),
					End:   region.PositionAt(doc.Text, idx+4),
				},
				Message: "incomplete from clause",
			})
		}
		return &analyzer.Result{Diagnostics: diagnostics}, nil
	case analyzer.CapCompletion:
		return &analyzer.Result{Completions: []protocol.CompletionItem{{Label: "SELECT"}}}, nil
	default:
		return nil, analyzer.ErrNotSupported
	}
}

type notification struct {
	method string
	params any
}

func captureContext(captured *[]notification) *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			*captured = append(*captured, notification{method, params})
		},
	}
}

func lastDiagnostics(t *testing.T, captured []notification) protocol.PublishDiagnosticsParams {
	t.Helper()
	if len(captured) == 0 {
		t.Fatal("No notifications published")
	}
	last := captured[len(captured)-1]
	if last.method != "textDocument/publishDiagnostics" {
		t.Fatalf("Unexpected notification method %q", last.method)
	}
	params, ok := last.params.(protocol.PublishDiagnosticsParams)
	if !ok {
		t.Fatalf("Unexpected notification params %T", last.params)
	}
	return params
}

func newTestServer() *Server {
	registry := analyzer.NewRegistry()
	registry.Register(&sqlFake{})
	return newServer(registry)
}

func open(t *testing.T, s *Server, glspContext *glsp.Context, uri, text string) {
	t.Helper()
	err := s.textDocumentDidOpen(glspContext, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "raven",
			Version:    1,
			Text:       text,
		},
	})
	if err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}
}

func TestDidOpenPublishesHostCoordinateDiagnostics(t *testing.T) {
	text := "let a = 1;\nlet q = <<sql SELECT *\nFROM t>>;\nlet u = <<sql SELECT 2"

	s := newTestServer()
	var captured []notification
	open(t, s, captureContext(&captured), "file:///a.rv", text)

	params := lastDiagnostics(t, captured)
	if params.URI != "file:///a.rv" {
		t.Errorf("Diagnostics published for %q", params.URI)
	}
	if params.Version == nil || *params.Version != 1 {
		t.Errorf("Diagnostics should carry version 1, got %v", params.Version)
	}
	if len(params.Diagnostics) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d: %+v", len(params.Diagnostics), params.Diagnostics)
	}

	// Sorted by host position: the analyzer's complaint about "FROM" on
	// line 2, then the scan's unterminated report on line 3. The second
	// region has no "FROM" and contributes nothing.
	fromOffset := strings.Index(text, "FROM")
	if want := region.PositionAt(text, fromOffset); params.Diagnostics[0].Range.Start != want {
		t.Errorf("Region diagnostic at %v, expected %v", params.Diagnostics[0].Range.Start, want)
	}
	if params.Diagnostics[0].Message != "incomplete from clause" {
		t.Errorf("Unexpected first diagnostic: %+v", params.Diagnostics[0])
	}

	sawUnterminated := false
	for _, d := range params.Diagnostics {
		if d.Message == "unterminated embedded block: sql" {
			sawUnterminated = true
		}
	}
	if !sawUnterminated {
		t.Error("Scan diagnostic missing from the published set")
	}
}

func TestDidChangeRepublishes(t *testing.T) {
	s := newTestServer()
	var captured []notification
	glspContext := captureContext(&captured)
	open(t, s, glspContext, "file:///a.rv", "let a = 1;")

	if params := lastDiagnostics(t, captured); len(params.Diagnostics) != 0 {
		t.Fatalf("Clean document should publish no diagnostics, got %+v", params.Diagnostics)
	}

	err := s.textDocumentDidChange(glspContext, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///a.rv"},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: "let q = <<sql SELECT 1"},
		},
	})
	if err != nil {
		t.Fatalf("didChange failed: %v", err)
	}

	params := lastDiagnostics(t, captured)
	if len(params.Diagnostics) != 1 || params.Diagnostics[0].Message != "unterminated embedded block: sql" {
		t.Errorf("Expected the unterminated diagnostic after the edit, got %+v", params.Diagnostics)
	}
	if params.Version == nil || *params.Version != 2 {
		t.Errorf("Diagnostics should carry version 2, got %v", params.Version)
	}
}

func TestCompletionInsideRegion(t *testing.T) {
	text := "let q = <<sql SELECT 1>>;"

	s := newTestServer()
	var captured []notification
	open(t, s, captureContext(&captured), "file:///a.rv", text)

	pos := region.PositionAt(text, strings.Index(text, "SELECT"))
	result, err := s.textDocumentCompletion(nil, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.rv"},
			Position:     pos,
		},
	})
	if err != nil {
		t.Fatalf("Completion failed: %v", err)
	}
	items, ok := result.([]protocol.CompletionItem)
	if !ok || len(items) != 1 || items[0].Label != "SELECT" {
		t.Errorf("Unexpected completion result: %+v", result)
	}
}

func TestHoverOutsideRegionsWithoutHostAnalyzer(t *testing.T) {
	text := "let q = <<sql SELECT 1>>;"

	s := newTestServer()
	var captured []notification
	open(t, s, captureContext(&captured), "file:///a.rv", text)

	hover, err := s.textDocumentHover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.rv"},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	if err != nil || hover != nil {
		t.Errorf("Expected no hover, got %+v, %v", hover, err)
	}
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	s := newTestServer()
	var captured []notification
	glspContext := captureContext(&captured)
	open(t, s, glspContext, "file:///a.rv", "let q = <<sql SELECT 1")

	err := s.textDocumentDidClose(glspContext, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.rv"},
	})
	if err != nil {
		t.Fatalf("didClose failed: %v", err)
	}

	params := lastDiagnostics(t, captured)
	if len(params.Diagnostics) != 0 {
		t.Errorf("Close must clear diagnostics, got %+v", params.Diagnostics)
	}
	if params.Version != nil {
		t.Errorf("The clearing push has no version, got %v", *params.Version)
	}

	hover, err := s.textDocumentHover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.rv"},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	if err != nil || hover != nil {
		t.Errorf("Closed document should answer with nothing, got %+v, %v", hover, err)
	}
}

func TestSnapshotRealignsDerivedState(t *testing.T) {
	s := newTestServer()
	var captured []notification
	open(t, s, captureContext(&captured), "file:///a.rv", "let a = 1;")

	// Mutate the store directly, as a request racing a didChange would see
	// it: fresh text, derived state still at the prior version.
	_, err := s.docs.Apply("file:///a.rv", 2, []document.Change{{Text: "let q = <<sql SELECT 1>>;"}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	snap, ok := s.snapshot("file:///a.rv")
	if !ok {
		t.Fatal("Expected a snapshot")
	}
	if snap.Virtual.Version() != 2 {
		t.Errorf("Derived state not realigned, virtual at version %d", snap.Virtual.Version())
	}
	if len(snap.Regions) != 1 || snap.Regions[0].LanguageID != "sql" {
		t.Errorf("Regions not recomputed for the current text: %+v", snap.Regions)
	}
}

func TestShutdownClosesOpenDocuments(t *testing.T) {
	s := newTestServer()
	var captured []notification
	glspContext := captureContext(&captured)
	open(t, s, glspContext, "file:///a.rv", "let a = 1;")
	open(t, s, glspContext, "file:///b.rv", "let b = 2;")

	if err := s.shutdown(glspContext); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if docs := s.docs.All(); len(docs) != 0 {
		t.Errorf("Shutdown should close every document, %d remain", len(docs))
	}
	if _, ok := s.snapshot("file:///a.rv"); ok {
		t.Error("No snapshot should survive shutdown")
	}
}

func TestInitializeAppliesConfig(t *testing.T) {
	s := newTestServer()
	_, err := s.initialize(nil, &protocol.InitializeParams{
		InitializationOptions: map[string]any{
			"openDelimiter":     "{%",
			"closeDelimiter":    "%}",
			"analyzerTimeoutMs": 250,
		},
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if s.config.OpenDelimiter != "{%" || s.config.CloseDelimiter != "%}" {
		t.Errorf("Delimiters not applied: %+v", s.config)
	}
	if s.config.HostLanguage != "raven" {
		t.Errorf("Default host language not applied: %+v", s.config)
	}

	// The configured delimiters drive the scan.
	text := "let q = {%sql SELECT 1"
	var captured []notification
	open(t, s, captureContext(&captured), "file:///a.rv", text)

	params := lastDiagnostics(t, captured)
	if len(params.Diagnostics) != 1 || params.Diagnostics[0].Message != "unterminated embedded block: sql" {
		t.Errorf("Configured delimiters ignored by the scan: %+v", params.Diagnostics)
	}
}
