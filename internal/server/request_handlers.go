package server

import (
	stdcontext "context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/analyzer"
	"ravenls/internal/router"
)

// Position-bound requests resolve exactly one owner: the region containing
// the position, or the host analyzer outside all regions. A position nobody
// owns answers with "no information", never an error.

func (s *Server) textDocumentCompletion(
	context *glsp.Context,
	params *protocol.CompletionParams,
) (any, error) {
	snap, outcome, ok := s.dispatch(params.TextDocument.URI, analyzer.CapCompletion, params.Position)
	if !ok {
		return nil, nil
	}
	items := router.Completions(snap, outcome)
	if items == nil {
		return nil, nil
	}
	return items, nil
}

func (s *Server) textDocumentHover(
	context *glsp.Context,
	params *protocol.HoverParams,
) (*protocol.Hover, error) {
	snap, outcome, ok := s.dispatch(params.TextDocument.URI, analyzer.CapHover, params.Position)
	if !ok {
		return nil, nil
	}
	return router.Hover(snap, outcome), nil
}

func (s *Server) textDocumentDefinition(
	context *glsp.Context,
	params *protocol.DefinitionParams,
) (any, error) {
	snap, outcome, ok := s.dispatch(params.TextDocument.URI, analyzer.CapDefinition, params.Position)
	if !ok {
		return nil, nil
	}
	locations := router.Definition(snap, outcome)
	if locations == nil {
		return nil, nil
	}
	return locations, nil
}

func (s *Server) textDocumentSignatureHelp(
	context *glsp.Context,
	params *protocol.SignatureHelpParams,
) (*protocol.SignatureHelp, error) {
	_, outcome, ok := s.dispatch(params.TextDocument.URI, analyzer.CapSignatureHelp, params.Position)
	if !ok {
		return nil, nil
	}
	return router.SignatureHelp(outcome), nil
}

// Whole-document requests fan out across the host analyzer and every
// non-opaque region, then merge in host coordinates.

func (s *Server) textDocumentDocumentSymbol(
	context *glsp.Context,
	params *protocol.DocumentSymbolParams,
) (any, error) {
	snap, outcomes, ok := s.fanOut(params.TextDocument.URI, analyzer.CapDocumentSymbol)
	if !ok {
		return nil, nil
	}
	symbols := router.MergeSymbols(snap, outcomes)
	if symbols == nil {
		return nil, nil
	}
	return symbols, nil
}

func (s *Server) textDocumentFoldingRange(
	context *glsp.Context,
	params *protocol.FoldingRangeParams,
) ([]protocol.FoldingRange, error) {
	snap, outcomes, ok := s.fanOut(params.TextDocument.URI, analyzer.CapFoldingRange)
	if !ok {
		return nil, nil
	}
	return router.MergeFoldingRanges(snap, outcomes), nil
}

func (s *Server) dispatch(
	uri string,
	capability analyzer.Capability,
	pos protocol.Position,
) (router.Snapshot, router.Outcome, bool) {
	snap, ok := s.snapshot(uri)
	if !ok {
		return router.Snapshot{}, router.Outcome{}, false
	}
	outcome := s.router.Dispatch(stdcontext.Background(), snap, capability, pos)
	s.checkStale(snap)
	return snap, outcome, true
}

func (s *Server) fanOut(
	uri string,
	capability analyzer.Capability,
) (router.Snapshot, []router.Outcome, bool) {
	snap, ok := s.snapshot(uri)
	if !ok {
		return router.Snapshot{}, nil, false
	}
	outcomes := s.router.FanOut(stdcontext.Background(), snap, capability)
	s.checkStale(snap)
	return snap, outcomes, true
}
