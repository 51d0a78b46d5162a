package storage

import (
	"sync"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// Memory keeps the chain and ledger snapshot in memory. It is used by tests
// and by nodes started without a database path.
type Memory struct {
	mu     sync.Mutex
	blocks []database.Block
	ledger []database.LedgerEntry
}

// NewMemory constructs an empty memory serializer.
func NewMemory() *Memory {
	return &Memory{}
}

// Close implements the database.Serializer interface.
func (m *Memory) Close() error {
	return nil
}

// Write implements the database.Serializer interface.
func (m *Memory) Write(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = append(m.blocks, block)
	return nil
}

// Replace implements the database.Serializer interface.
func (m *Memory) Replace(blocks []database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = append([]database.Block(nil), blocks...)
	return nil
}

// ReadAll implements the database.Serializer interface.
func (m *Memory) ReadAll() ([]database.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]database.Block(nil), m.blocks...), nil
}

// SaveLedger implements the database.Snapshotter interface.
func (m *Memory) SaveLedger(entries []database.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ledger = append([]database.LedgerEntry(nil), entries...)
	return nil
}

// LoadLedger implements the database.Snapshotter interface.
func (m *Memory) LoadLedger() ([]database.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]database.LedgerEntry(nil), m.ledger...), nil
}
