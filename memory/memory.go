// Package memory stores long-lived traveler context: key/value preferences
// plus free-form notes ("prefers boutique hotels", "allergic to shellfish")
// recalled by substring search. The in-memory implementation suits tests and
// single-process deployments; swap in a semantic index for real retrieval.
package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tripmesh/tripmesh/core"
)

// note is the internal representation of a stored preference note.
type note struct {
	id       string
	content  string
	metadata map[string]any
}

// InMemoryStore is a process-local core.MemoryStore guarded by an RWMutex.
// Search is a case-insensitive substring scan assigning a constant score of
// 1.0 to every hit.
type InMemoryStore struct {
	mu     sync.RWMutex
	kv     map[string]map[string]any // sessionID -> key -> value
	notes  map[string][]note         // sessionID -> ordered notes
	nextID int
}

var _ core.MemoryStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		kv:    make(map[string]map[string]any),
		notes: make(map[string][]note),
	}
}

// Get returns a copy of the key/value preferences for the session.
func (m *InMemoryStore) Get(sessionID string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.kv[sessionID]
	if !ok {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

// Put merges the delta into the session's key/value preferences.
func (m *InMemoryStore) Put(sessionID string, delta map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kv[sessionID]; !ok {
		m.kv[sessionID] = make(map[string]any)
	}
	for k, v := range delta {
		m.kv[sessionID][k] = v
	}
	return nil
}

// Search returns notes containing the query (case-insensitive), in insertion
// order, up to limit. An empty query matches everything.
func (m *InMemoryStore) Search(sessionID, query string, limit int) ([]core.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	results := make([]core.SearchResult, 0, limit)
	for _, n := range m.notes[sessionID] {
		if len(results) >= limit {
			break
		}
		if q != "" && !strings.Contains(strings.ToLower(n.content), q) {
			continue
		}
		md := make(map[string]any, len(n.metadata))
		for k, v := range n.metadata {
			md[k] = v
		}
		results = append(results, core.SearchResult{ID: n.id, Content: n.content, Score: 1.0, Metadata: md})
	}
	return results, nil
}

// Store appends a new note.
func (m *InMemoryStore) Store(sessionID, content string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.notes[sessionID] = append(m.notes[sessionID], note{
		id:       fmt.Sprintf("note_%d", m.nextID),
		content:  content,
		metadata: metadata,
	})
	return nil
}

// Delete removes a note by id.
func (m *InMemoryStore) Delete(sessionID, memoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := m.notes[sessionID]
	for i, n := range notes {
		if n.id == memoryID {
			m.notes[sessionID] = append(notes[:i], notes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("memory not found")
}
