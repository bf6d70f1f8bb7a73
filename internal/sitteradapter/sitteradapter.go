// Package sitteradapter exposes tree-sitter grammars as embedded-language
// analyzers. These are the built-in collaborators the binary registers for
// common embedded languages; they produce syntax diagnostics and folding
// ranges, and report every other capability as unsupported.
package sitteradapter

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/analyzer"
)

const (
	maxDiagnostics = 50
	maxDepth       = 512
)

type Analyzer struct {
	languageID string
	language   *sitter.Language
}

func New(languageID string, language *sitter.Language) *Analyzer {
	return &Analyzer{languageID: languageID, language: language}
}

func (a *Analyzer) LanguageID() string {
	return a.languageID
}

func (a *Analyzer) Capabilities() []analyzer.Capability {
	return []analyzer.Capability{analyzer.CapDiagnostics, analyzer.CapFoldingRange}
}

func (a *Analyzer) Analyze(
	ctx context.Context,
	capability analyzer.Capability,
	doc analyzer.Document,
	pos *protocol.Position,
) (*analyzer.Result, error) {
	switch capability {
	case analyzer.CapDiagnostics:
		return a.diagnostics(ctx, doc)
	case analyzer.CapFoldingRange:
		return a.foldingRanges(ctx, doc)
	default:
		return nil, analyzer.ErrNotSupported
	}
}

// parse runs a fresh parser per call; parsers are cheap and this keeps the
// analyzer safe for concurrent use.
func (a *Analyzer) parse(ctx context.Context, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(a.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", a.languageID, err)
	}
	return tree, nil
}

func (a *Analyzer) diagnostics(ctx context.Context, doc analyzer.Document) (*analyzer.Result, error) {
	tree, err := a.parse(ctx, []byte(doc.Text))
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var diagnostics []protocol.Diagnostic
	collectErrors(tree.RootNode(), doc.Text, a.languageID, &diagnostics, 0)
	return &analyzer.Result{Diagnostics: diagnostics}, nil
}

// collectErrors walks the tree for ERROR and MISSING nodes. HasError prunes
// subtrees without errors, and maxDiagnostics bounds the walk on heavily
// malformed input.
func collectErrors(node *sitter.Node, text, source string, out *[]protocol.Diagnostic, depth int) {
	if node == nil || depth > maxDepth || len(*out) >= maxDiagnostics {
		return
	}
	if !node.HasError() {
		return
	}

	if node.IsError() || node.IsMissing() {
		severity := protocol.DiagnosticSeverityError
		message := "syntax error"
		if node.IsMissing() {
			message = fmt.Sprintf("missing %q", node.Type())
		}
		src := source
		*out = append(*out, protocol.Diagnostic{
			Range:    nodeRange(node, text),
			Severity: &severity,
			Source:   &src,
			Message:  message,
		})
		if node.IsError() {
			return
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectErrors(node.Child(i), text, source, out, depth+1)
	}
}

func (a *Analyzer) foldingRanges(ctx context.Context, doc analyzer.Document) (*analyzer.Result, error) {
	tree, err := a.parse(ctx, []byte(doc.Text))
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var ranges []protocol.FoldingRange
	seen := make(map[uint32]bool)
	collectFolds(tree.RootNode(), seen, &ranges, 0)
	return &analyzer.Result{FoldingRanges: ranges}, nil
}

// collectFolds emits one folding range per start line, taken from the first
// named node spanning multiple lines there.
func collectFolds(node *sitter.Node, seen map[uint32]bool, out *[]protocol.FoldingRange, depth int) {
	if node == nil || depth > maxDepth {
		return
	}

	start := node.StartPoint()
	end := node.EndPoint()
	if node.IsNamed() && end.Row > start.Row && !seen[start.Row] {
		seen[start.Row] = true
		*out = append(*out, protocol.FoldingRange{
			StartLine: start.Row,
			EndLine:   end.Row,
		})
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectFolds(node.NamedChild(i), seen, out, depth+1)
	}
}

func nodeRange(node *sitter.Node, text string) protocol.Range {
	return protocol.Range{
		Start: pointPosition(node.StartPoint(), text),
		End:   pointPosition(node.EndPoint(), text),
	}
}

// pointPosition converts a tree-sitter point (byte column) into a protocol
// position (UTF-16 column) within the given document.
func pointPosition(pt sitter.Point, text string) protocol.Position {
	lines := strings.Split(text, "\n")
	if int(pt.Row) >= len(lines) {
		pt.Row = uint32(len(lines) - 1)
	}
	line := lines[pt.Row]
	if int(pt.Column) > len(line) {
		pt.Column = uint32(len(line))
	}

	var character uint32
	for _, r := range line[:pt.Column] {
		if r > 0xFFFF {
			character += 2
		} else {
			character++
		}
	}
	return protocol.Position{Line: pt.Row, Character: character}
}
