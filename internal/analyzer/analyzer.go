// Package analyzer defines the uniform contract between the routing core and
// the language analyzers it multiplexes, host and embedded alike. How an
// analyzer is hosted is its own business; the core only relies on this
// capability-based call contract.
package analyzer

import (
	"context"
	"errors"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Capability names one kind of analysis an analyzer may support.
type Capability string

const (
	CapDiagnostics    Capability = "diagnostics"
	CapCompletion     Capability = "completion"
	CapHover          Capability = "hover"
	CapDefinition     Capability = "definition"
	CapSignatureHelp  Capability = "signatureHelp"
	CapDocumentSymbol Capability = "documentSymbol"
	CapFoldingRange   Capability = "foldingRange"
)

// ErrNotSupported is the normal outcome for a capability an analyzer does not
// implement. It is distinct from a failure: callers drop it silently instead
// of logging it.
var ErrNotSupported = errors.New("capability not supported")

// Document is the text an analyzer is asked to analyze. For embedded
// analyzers it is a virtual document; for the host analyzer it is the host
// text with embedded spans blanked. Positions in it are positions in the
// host document, by construction.
type Document struct {
	URI        string
	LanguageID string
	Text       string
	Version    int32
}

// Result carries an analyzer's answer. Only the field matching the requested
// capability is populated; coordinates are in the analyzed document's space.
type Result struct {
	Diagnostics   []protocol.Diagnostic
	Completions   []protocol.CompletionItem
	Hover         *protocol.Hover
	Definition    []protocol.Location
	SignatureHelp *protocol.SignatureHelp
	Symbols       []protocol.DocumentSymbol
	FoldingRanges []protocol.FoldingRange
}

// Analyzer is a language-specific provider of analysis results. Analyze
// returns ErrNotSupported for capabilities outside its set; any other error
// is a failure the router recovers from. Implementations must honor context
// cancellation on long work, but the router tolerates ones that do not.
type Analyzer interface {
	LanguageID() string
	Capabilities() []Capability
	Analyze(ctx context.Context, capability Capability, doc Document, pos *protocol.Position) (*Result, error)
}

// Supports reports whether the analyzer declares the capability.
func Supports(a Analyzer, capability Capability) bool {
	for _, c := range a.Capabilities() {
		if c == capability {
			return true
		}
	}
	return false
}
