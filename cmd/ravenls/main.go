package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"ravenls/internal/analyzer"
	"ravenls/internal/server"
	"ravenls/internal/sitteradapter"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

func main() {
	versionFlag := flag.Bool("version", false, "Print the version of the program")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("ravenls LSP server version %s\n", Version)
		return
	}

	// Set up logging
	commonlog.Configure(1, nil)

	logsDir := filepath.Join(os.TempDir(), "ravenls")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		log.Fatalf("Failed to create logs directory: %v", err)
	}

	logFile, err := os.OpenFile(
		filepath.Join(logsDir, "ravenls.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()

	multiWriter := io.MultiWriter(os.Stderr, logFile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting ravenls LSP server...")

	// Built-in embedded analyzers. The host analyzer, when one exists, is
	// registered by the host toolchain embedding this server.
	registry := analyzer.NewRegistry()
	for languageID, grammar := range sitteradapter.Grammars() {
		registry.Register(sitteradapter.New(languageID, grammar))
	}

	srv, err := server.NewServer(registry)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.RunStdio(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
