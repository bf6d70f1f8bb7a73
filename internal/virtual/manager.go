package virtual

import (
	"crypto/sha256"
	"fmt"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/region"
)

type entry struct {
	hash  [sha256.Size]byte
	start protocol.Position
	doc   *Document
}

// Manager materializes virtual documents for one host document. SetState
// invalidates the cache wholesale on every host version bump; GetOrBuild
// builds lazily and reuses a prior build when the region's content and
// placement are unchanged, which is what keeps unrelated edits from
// re-triggering embedded analysis.
type Manager struct {
	mu       sync.Mutex
	hostURI  string
	text     string
	version  int32
	regions  []region.Region
	entries  map[int]*entry
	hostView *string
}

func NewManager(hostURI string) *Manager {
	return &Manager{
		hostURI: hostURI,
		entries: make(map[int]*entry),
	}
}

// SetState replaces the host state the manager derives virtual documents
// from. Prior cache entries are kept so the next GetOrBuild can decide reuse
// by content hash; entries for regions that disappeared are dropped.
func (m *Manager) SetState(text string, version int32, regions []region.Region) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.text = text
	m.version = version
	m.regions = regions
	m.hostView = nil
	for ordinal := range m.entries {
		if ordinal >= len(regions) {
			delete(m.entries, ordinal)
		}
	}
}

// GetOrBuild returns the virtual document for the region at the given
// ordinal, building it if no cached build can be reused. The second return
// reports whether a cached build was reused.
//
// Reuse requires the region's content hash, content offsets and start
// position to all match the prior build: a cached document whose offsets no
// longer line up with the host text would silently break position mapping,
// so it is rebuilt instead.
func (m *Manager) GetOrBuild(ordinal int) (*Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ordinal < 0 || ordinal >= len(m.regions) {
		return nil, false, fmt.Errorf("no region at ordinal %d", ordinal)
	}
	r := m.regions[ordinal]

	hash := sha256.Sum256([]byte(m.text[r.ContentStart:r.ContentEnd]))
	start := region.PositionAt(m.text, r.ContentStart)

	if e, ok := m.entries[ordinal]; ok {
		prior := e.doc.Region
		reusable := e.hash == hash &&
			e.start == start &&
			prior.ContentStart == r.ContentStart &&
			prior.ContentEnd == r.ContentEnd &&
			prior.LanguageID == r.LanguageID
		if reusable {
			// Same text at the same place: only the version moved on.
			doc := &Document{
				Region:  r,
				Ordinal: ordinal,
				URI:     e.doc.URI,
				Text:    e.doc.Text,
				Version: m.version,
			}
			e.doc = doc
			return doc, true, nil
		}
	}

	doc := build(m.hostURI, m.text, r, ordinal, m.version)
	m.entries[ordinal] = &entry{hash: hash, start: start, doc: doc}
	return doc, false, nil
}

// HostView returns the host text with every region's full span blanked,
// built lazily per host version.
func (m *Manager) HostView() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hostView == nil {
		view := blankSpans(m.text, m.regions)
		m.hostView = &view
	}
	return *m.hostView
}

// Version returns the host version the manager currently derives from.
func (m *Manager) Version() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}
