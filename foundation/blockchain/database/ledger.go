package database

import (
	"fmt"
	"sort"
	"sync"
)

// Outpoint identifies a single transaction output.
type Outpoint struct {
	TxHash string
	Index  uint32
}

// String implements the fmt.Stringer interface.
func (op Outpoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxHash, op.Index)
}

// LedgerEntry is the ledger's record of a transaction output.
type LedgerEntry struct {
	PrevTxHash       string `json:"prevTxHash"`
	PrevOutIndex     uint32 `json:"prevOutIndex"`
	RecipientAddress string `json:"recipientAddress"`
	Amount           Amount `json:"amount"`
	Spent            bool   `json:"spent"`
}

func (e LedgerEntry) outpoint() Outpoint {
	return Outpoint{TxHash: e.PrevTxHash, Index: e.PrevOutIndex}
}

// =============================================================================

// Ledger maintains every output the node has accepted. Entries are never
// deleted, spent entries are only flagged.
type Ledger struct {
	mu      sync.RWMutex
	entries map[Outpoint]LedgerEntry
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[Outpoint]LedgerEntry),
	}
}

// Restore replaces the ledger content with the snapshot entries.
func (l *Ledger) Restore(entries []LedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[Outpoint]LedgerEntry, len(entries))
	for _, e := range entries {
		l.entries[e.outpoint()] = e
	}
}

// Reset removes every entry.
func (l *Ledger) Reset() {
	l.Restore(nil)
}

// Len returns the number of entries, spent or not.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Entries returns a copy of the ledger ordered by outpoint.
func (l *Ledger) Entries() []LedgerEntry {
	l.mu.RLock()
	entries := make([]LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	sortEntries(entries)
	return entries
}

// Entry implements the UtxoView interface.
func (l *Ledger) Entry(txHash string, index uint32) (LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, exists := l.entries[Outpoint{TxHash: txHash, Index: index}]
	return e, exists
}

// AddUtxos records the outputs of an accepted transaction.
func (l *Ledger) AddUtxos(txHash string, outputs []UtxoOutput) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.addUtxos(txHash, outputs)
}

// MarkSpent flags the entry as spent. It fails if the entry is unknown or
// was already spent, so two spenders can never both succeed.
func (l *Ledger) MarkSpent(txHash string, index uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.markSpent(Outpoint{TxHash: txHash, Index: index})
}

// IsSpent reports whether the entry exists and is spent.
func (l *Ledger) IsSpent(txHash string, index uint32) bool {
	e, _ := l.Entry(txHash, index)
	return e.Spent
}

// AmountOf returns the amount of the entry, zero when unknown.
func (l *Ledger) AmountOf(txHash string, index uint32) Amount {
	e, _ := l.Entry(txHash, index)
	return e.Amount
}

// BalanceOf sums the unspent entries owned by the address.
func (l *Ledger) BalanceOf(address string) (Amount, error) {
	var balance Amount
	for _, e := range l.UtxosOf(address) {
		var ok bool
		if balance, ok = balance.Add(e.Amount); !ok {
			return Amount{}, fmt.Errorf("%w: balance of %s overflows", ErrInvalidAmount, address)
		}
	}
	return balance, nil
}

// UtxosOf returns the unspent entries owned by the address ordered
// by outpoint.
func (l *Ledger) UtxosOf(address string) []LedgerEntry {
	l.mu.RLock()
	var entries []LedgerEntry
	for _, e := range l.entries {
		if !e.Spent && e.RecipientAddress == address {
			entries = append(entries, e)
		}
	}
	l.mu.RUnlock()

	sortEntries(entries)
	return entries
}

// Apply spends every input and records every output of the transactions
// as one step. If any input is unknown, spent, or spent twice by the set,
// nothing is changed.
func (l *Ledger) Apply(txs []Tx) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.check(txs); err != nil {
		return err
	}

	for _, tx := range txs {
		for _, in := range tx.Inputs {
			l.markSpent(Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex})
		}
		l.addUtxos(tx.TxHash, tx.Outputs)
	}

	return nil
}

// CanApply reports the error Apply would return without changing the ledger.
func (l *Ledger) CanApply(txs []Tx) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.check(txs)
}

// ApplyBlock verifies every transaction of the block and applies them as
// one step. The block must open with a coinbase for its own height and
// carry no other coinbase. Each standard transaction is verified against
// the ledger plus the outputs of the transactions before it in the block.
func (l *Ledger) ApplyBlock(block Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.verifyBlock(block); err != nil {
		return err
	}

	for _, tx := range block.Transactions {
		for _, in := range tx.Inputs {
			l.markSpent(Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex})
		}
		l.addUtxos(tx.TxHash, tx.Outputs)
	}

	return nil
}

// CanApplyBlock reports the error ApplyBlock would return without changing
// the ledger.
func (l *Ledger) CanApplyBlock(block Block) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.verifyBlock(block)
}

// ReplayBlocks builds a new ledger by applying the blocks in order. It
// stops at the first block that does not verify.
func ReplayBlocks(blocks []Block) (*Ledger, error) {
	ledger := NewLedger()
	for _, block := range blocks {
		if err := ledger.ApplyBlock(block); err != nil {
			return nil, err
		}
	}

	return ledger, nil
}

// =============================================================================

// verifyBlock must be called with l.mu held.
func (l *Ledger) verifyBlock(block Block) error {
	txs := block.Transactions

	switch {
	case len(txs) == 0 || !txs[0].IsCoinbase():
		return fmt.Errorf("%w: blk[%d]: first transaction is not a coinbase", ErrInvalidBlock, block.Index)
	case txs[0].Height != block.Index:
		return fmt.Errorf("%w: blk[%d]: coinbase for height %d", ErrInvalidBlock, block.Index, txs[0].Height)
	}

	view := blockView{
		entries: l.entries,
		changed: make(map[Outpoint]LedgerEntry),
	}

	for i, tx := range txs {
		if i > 0 && tx.IsCoinbase() {
			return fmt.Errorf("%w: blk[%d]: second coinbase tx[%s]", ErrInvalidBlock, block.Index, tx.TxHash)
		}

		if err := tx.Verify(view); err != nil {
			return fmt.Errorf("%w: blk[%d]: tx[%s]: %w", ErrInvalidBlock, block.Index, tx.TxHash, err)
		}

		for _, in := range tx.Inputs {
			view.spend(Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex})
		}

		for _, out := range tx.Outputs {
			op := Outpoint{TxHash: tx.TxHash, Index: out.OutputIndex}
			if _, exists := view.entry(op); exists {
				return fmt.Errorf("%w: blk[%d]: output %s already exists", ErrInvalidBlock, block.Index, op)
			}
			view.changed[op] = LedgerEntry{
				PrevTxHash:       tx.TxHash,
				PrevOutIndex:     out.OutputIndex,
				RecipientAddress: out.RecipientAddress,
				Amount:           out.Amount,
			}
		}
	}

	return nil
}

// blockView overlays the changes of a block being verified on the ledger
// entries without touching them.
type blockView struct {
	entries map[Outpoint]LedgerEntry
	changed map[Outpoint]LedgerEntry
}

func (v blockView) entry(op Outpoint) (LedgerEntry, bool) {
	if e, exists := v.changed[op]; exists {
		return e, true
	}
	e, exists := v.entries[op]
	return e, exists
}

// Entry implements the UtxoView interface.
func (v blockView) Entry(txHash string, index uint32) (LedgerEntry, bool) {
	return v.entry(Outpoint{TxHash: txHash, Index: index})
}

func (v blockView) spend(op Outpoint) {
	if e, exists := v.entry(op); exists {
		e.Spent = true
		v.changed[op] = e
	}
}

func (l *Ledger) check(txs []Tx) error {
	spent := make(map[Outpoint]struct{})
	created := make(map[Outpoint]struct{})

	for _, tx := range txs {
		for _, in := range tx.Inputs {
			op := Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex}

			if _, dup := spent[op]; dup {
				return fmt.Errorf("%w: %s spent twice", ErrUtxoSpent, op)
			}
			spent[op] = struct{}{}

			if _, ok := created[op]; ok {
				continue
			}

			e, exists := l.entries[op]
			switch {
			case !exists:
				return fmt.Errorf("%w: %s", ErrUtxoNotFound, op)
			case e.Spent:
				return fmt.Errorf("%w: %s", ErrUtxoSpent, op)
			}
		}

		for _, out := range tx.Outputs {
			created[Outpoint{TxHash: tx.TxHash, Index: out.OutputIndex}] = struct{}{}
		}
	}

	return nil
}

func (l *Ledger) addUtxos(txHash string, outputs []UtxoOutput) {
	for _, out := range outputs {
		op := Outpoint{TxHash: txHash, Index: out.OutputIndex}
		l.entries[op] = LedgerEntry{
			PrevTxHash:       txHash,
			PrevOutIndex:     out.OutputIndex,
			RecipientAddress: out.RecipientAddress,
			Amount:           out.Amount,
		}
	}
}

func (l *Ledger) markSpent(op Outpoint) error {
	e, exists := l.entries[op]
	switch {
	case !exists:
		return fmt.Errorf("%w: %s", ErrUtxoNotFound, op)
	case e.Spent:
		return fmt.Errorf("%w: %s", ErrUtxoSpent, op)
	}

	e.Spent = true
	l.entries[op] = e

	return nil
}

func sortEntries(entries []LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PrevTxHash != entries[j].PrevTxHash {
			return entries[i].PrevTxHash < entries[j].PrevTxHash
		}
		return entries[i].PrevOutIndex < entries[j].PrevOutIndex
	})
}
