// internal/store/memory.go
//
// In-memory implementation of the puzzle Store interface. Active puzzle
// sessions are transient server state: they live for minutes and only
// their finish results are persisted, so a map behind an RWMutex is all
// the durability this layer needs.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pmallott/wordsearch/internal/session"
)

// Puzzle wraps one active session with the host bookkeeping the engine
// itself stays unaware of (ownership, daily flag).
type Puzzle struct {
	ID        string
	OwnerID   string
	Sess      *session.Session
	Daily     bool   // counts against the owner's daily limit
	Date      string // YYYY-MM-DD, set for daily puzzles
	CreatedAt time.Time
}

// Store defines the persistence interface for active puzzles.
type Store interface {
	// Save persists or updates a puzzle record.
	Save(ctx context.Context, p *Puzzle) error

	// Get retrieves a puzzle by ID. Returns an error if missing.
	Get(ctx context.Context, id string) (*Puzzle, error)
}

type memory struct {
	mu      sync.RWMutex
	puzzles map[string]*Puzzle
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{puzzles: make(map[string]*Puzzle)}
}

func (m *memory) Save(ctx context.Context, p *Puzzle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puzzles[p.ID] = p
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Puzzle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.puzzles[id]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}
