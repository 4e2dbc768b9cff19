package state

import (
	"errors"
	"fmt"
	"sync"

	"securewrap/storage"
)

var errClosedTx = errors.New("state: transaction already finished")

// Manager owns the backing database and hands out write overlays. Only one
// overlay may commit at a time; callers are expected to order operations
// before beginning them.
type Manager struct {
	db storage.Database
	mu sync.Mutex
}

// NewManager creates a state manager persisting into db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a write overlay on top of the committed state.
func (m *Manager) Begin() *Tx {
	return &Tx{
		mgr:    m,
		writes: make(map[string][]byte),
	}
}

// View runs fn against a throwaway overlay. Writes made by fn are dropped.
func (m *Manager) View(fn func(*Tx) error) error {
	tx := m.Begin()
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn inside an overlay and commits it when fn succeeds.
func (m *Manager) Update(fn func(*Tx) error) error {
	tx := m.Begin()
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

func (m *Manager) get(key []byte) ([]byte, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: read: %w", err)
	}
	return data, nil
}

func (m *Manager) apply(writes map[string][]byte) error {
	if len(writes) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := m.db.NewBatch()
	for key, value := range writes {
		if value == nil {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}
