package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/router"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	var config Config

	configJson, err := json.Marshal(params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(configJson, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()

	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
	s.router = router.New(s.registry, time.Duration(config.AnalyzerTimeoutMS)*time.Millisecond)
	log.Printf("Config: %+v", config)
	log.Printf("Embedded analyzers: %v", s.registry.Languages())

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.SignatureHelpProvider = &protocol.SignatureHelpOptions{}
	capabilities.DocumentSymbolProvider = true
	capabilities.FoldingRangeProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
	}, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Println("Client initialized.")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	open := s.docs.All()
	for _, doc := range open {
		s.dropState(doc.URI)
		s.docs.Close(doc.URI)
	}
	log.Printf("Shutdown with %d open documents", len(open))
	return nil
}
