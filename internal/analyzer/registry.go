package analyzer

import (
	"sort"
	"sync"
)

// Registry holds the host analyzer and the embedded analyzers keyed by
// language id. Registration normally happens once at startup, but lookups
// are taken on every request, concurrently.
type Registry struct {
	mu       sync.RWMutex
	host     Analyzer
	embedded map[string]Analyzer
}

func NewRegistry() *Registry {
	return &Registry{embedded: make(map[string]Analyzer)}
}

// RegisterHost sets the analyzer for the host language itself.
func (r *Registry) RegisterHost(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.host = a
}

// Register adds an embedded analyzer under its language id, replacing any
// prior one for the same language.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedded[a.LanguageID()] = a
}

func (r *Registry) Host() (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host, r.host != nil
}

func (r *Registry) Lookup(languageID string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.embedded[languageID]
	return a, ok
}

// Languages returns the registered embedded language ids, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]string, 0, len(r.embedded))
	for id := range r.embedded {
		languages = append(languages, id)
	}
	sort.Strings(languages)
	return languages
}
