package server

import (
	"log"
	"sync"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"ravenls/internal/analyzer"
	"ravenls/internal/document"
	"ravenls/internal/region"
	"ravenls/internal/router"
	"ravenls/internal/virtual"
)

const serverName = "ravenls"

// Config arrives through the client's initializationOptions. Absent fields
// fall back to defaults.
type Config struct {
	OpenDelimiter     string `json:"openDelimiter"`
	CloseDelimiter    string `json:"closeDelimiter"`
	HostLanguage      string `json:"hostLanguage"`
	AnalyzerTimeoutMS int    `json:"analyzerTimeoutMs"`
}

func (c *Config) applyDefaults() {
	if c.OpenDelimiter == "" {
		c.OpenDelimiter = region.DefaultOpenMarker
	}
	if c.CloseDelimiter == "" {
		c.CloseDelimiter = region.DefaultCloseMarker
	}
	if c.HostLanguage == "" {
		c.HostLanguage = "raven"
	}
	if c.AnalyzerTimeoutMS <= 0 {
		c.AnalyzerTimeoutMS = int(router.DefaultTimeout / time.Millisecond)
	}
}

// docState is the state derived from one open document: its regions, the
// diagnostics the region scan produced, and the virtual document cache. It
// is replaced as a whole on every rescan.
type docState struct {
	regions   []region.Region
	scanDiags []protocol.Diagnostic
	virtual   *virtual.Manager
}

// Server is the analysis core behind the protocol handlers. All state is
// scoped per open document; there is no global registry beyond the analyzer
// registry handed in at construction.
type Server struct {
	handler  *protocol.Handler
	registry *analyzer.Registry
	docs     *document.Store
	router   *router.Router

	mu     sync.RWMutex
	state  map[string]*docState
	config Config
}

// NewServer builds the protocol server around an analyzer registry. The
// registry may gain analyzers before the server starts; a host analyzer is
// optional.
func NewServer(registry *analyzer.Registry) (*glspserver.Server, error) {
	ls := newServer(registry)
	return glspserver.NewServer(ls.handler, serverName, false), nil
}

func newServer(registry *analyzer.Registry) *Server {
	ls := &Server{
		registry: registry,
		docs:     document.NewStore(),
		router:   router.New(registry, router.DefaultTimeout),
		state:    make(map[string]*docState),
	}
	ls.config.applyDefaults()
	ls.handler = &protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidSave:        ls.textDocumentDidSave,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentCompletion:     ls.textDocumentCompletion,
		TextDocumentHover:          ls.textDocumentHover,
		TextDocumentDefinition:     ls.textDocumentDefinition,
		TextDocumentSignatureHelp:  ls.textDocumentSignatureHelp,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
		TextDocumentFoldingRange:   ls.textDocumentFoldingRange,
	}
	return ls
}

// rescan recomputes regions and resets the virtual document cache for the
// document's current version. Called after every text mutation.
func (s *Server) rescan(doc document.Document) {
	known := make(map[string]bool)
	for _, id := range s.registry.Languages() {
		known[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scanner := region.NewScanner(region.Config{
		OpenMarker:  s.config.OpenDelimiter,
		CloseMarker: s.config.CloseDelimiter,
		Known:       known,
	})
	regions, diags := scanner.Scan(doc.Text, doc.Version)

	st, ok := s.state[doc.URI]
	if !ok {
		st = &docState{virtual: virtual.NewManager(doc.URI)}
		s.state[doc.URI] = st
	}
	st.regions = regions
	st.scanDiags = diags
	st.virtual.SetState(doc.Text, doc.Version, regions)
}

// snapshot fixes the document's current state for one request. The store and
// the derived state are updated one after the other, so a request landing
// between the two would pair text of one version with regions of another;
// when the versions disagree the derived state is recomputed first.
func (s *Server) snapshot(uri string) (router.Snapshot, bool) {
	doc, ok := s.docs.Get(uri)
	if !ok {
		return router.Snapshot{}, false
	}

	snap, ok := s.stateSnapshot(doc)
	if !ok {
		return router.Snapshot{}, false
	}
	if snap.Virtual.Version() != doc.Version {
		s.rescan(doc)
		if snap, ok = s.stateSnapshot(doc); !ok {
			return router.Snapshot{}, false
		}
	}
	return snap, true
}

func (s *Server) stateSnapshot(doc document.Document) (router.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.state[doc.URI]
	if !ok {
		return router.Snapshot{}, false
	}
	return router.Snapshot{
		Host: analyzer.Document{
			URI:        doc.URI,
			LanguageID: s.config.HostLanguage,
			Text:       doc.Text,
			Version:    doc.Version,
		},
		Regions:         st.regions,
		Virtual:         st.virtual,
		ScanDiagnostics: st.scanDiags,
	}, true
}

func (s *Server) dropState(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, uri)
}

// checkStale logs when a response is about to be answered against a version
// the document has since moved past. The stale response is still returned;
// the client's next change will trigger a fresh one.
func (s *Server) checkStale(snap router.Snapshot) {
	if current, ok := s.docs.Version(snap.Host.URI); ok && current != snap.Host.Version {
		log.Printf("Answering %s against version %d, document is at %d", snap.Host.URI, snap.Host.Version, current)
	}
}

// publishDiagnostics pushes the diagnostics tagged with the version they were
// computed against, so the client can discard a push that arrives after a
// newer edit. A nil version is used when clearing for a closed document.
func publishDiagnostics(context *glsp.Context, uri string, version *protocol.UInteger, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	context.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diagnostics,
	})
}
