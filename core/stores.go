package core

// ArtifactStore persists binary artifacts scoped by session, used in TripMesh
// to archive rendered itineraries. Implementations must be safe for
// concurrent use.
type ArtifactStore interface {
	Save(sessionID, artifactID string, data []byte) error
	Get(sessionID, artifactID string) ([]byte, error)
	List(sessionID string) ([]string, error)
	Delete(sessionID, artifactID string) error
}

// MemoryStore persists and recalls long-lived traveler context across turns:
// key/value preferences plus free-form notes retrievable by Search.
type MemoryStore interface {
	Get(sessionID string) (map[string]any, error)
	Put(sessionID string, delta map[string]any) error
	Search(sessionID, query string, limit int) ([]SearchResult, error)
	Store(sessionID, content string, metadata map[string]any) error
	Delete(sessionID, memoryID string) error
}

// SearchResult is a recalled memory item with a relevance score.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}
