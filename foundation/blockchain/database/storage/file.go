// Package storage implements the database serializers used to persist the
// chain and the ledger snapshot.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// Set of file names used inside the database directory.
const (
	ChainFile  = "block.json"
	LedgerFile = "utxo.json"
)

// File persists the chain as a JSON list of {hash: block} entries and the
// ledger as a JSON list of entries. Every write rewrites the whole file.
type File struct {
	mu         sync.Mutex
	chainPath  string
	ledgerPath string
}

// NewFile constructs a file serializer rooted at the directory.
func NewFile(dbPath string) (*File, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	f := File{
		chainPath:  filepath.Join(dbPath, ChainFile),
		ledgerPath: filepath.Join(dbPath, LedgerFile),
	}

	return &f, nil
}

// Close implements the database.Serializer interface.
func (f *File) Close() error {
	return nil
}

// Write reads the chain file, appends the block and rewrites the file.
func (f *File) Write(block database.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.readChain()
	if err != nil {
		return err
	}

	entries = append(entries, map[string]database.Block{block.Hash: block})
	return writeJSON(f.chainPath, entries)
}

// Replace rewrites the chain file with the blocks.
func (f *File) Replace(blocks []database.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := make([]map[string]database.Block, len(blocks))
	for i, b := range blocks {
		entries[i] = map[string]database.Block{b.Hash: b}
	}

	return writeJSON(f.chainPath, entries)
}

// ReadAll returns the blocks in the chain file. A missing file is an
// empty chain.
func (f *File) ReadAll() ([]database.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.readChain()
	if err != nil {
		return nil, err
	}

	blocks := make([]database.Block, 0, len(entries))
	for _, entry := range entries {
		for _, b := range entry {
			blocks = append(blocks, b)
		}
	}

	return blocks, nil
}

// SaveLedger implements the database.Snapshotter interface.
func (f *File) SaveLedger(entries []database.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entries == nil {
		entries = []database.LedgerEntry{}
	}
	return writeJSON(f.ledgerPath, entries)
}

// LoadLedger implements the database.Snapshotter interface. A missing file
// is an empty ledger.
func (f *File) LoadLedger() ([]database.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var entries []database.LedgerEntry
	if err := readJSON(f.ledgerPath, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// =============================================================================

func (f *File) readChain() ([]map[string]database.Block, error) {
	var entries []map[string]database.Block
	if err := readJSON(f.chainPath, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	return nil
}

// writeJSON writes to a temporary file first so a failed write never
// truncates the previous content.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
