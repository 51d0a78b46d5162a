package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
)

// pollInterval is how many nonce attempts run between cancellation checks.
const pollInterval = 10_000

// Set of errors returned by block validation and mining.
var (
	ErrChainAdvanced  = errors.New("chain advanced during proof of work")
	ErrInvalidBlock   = errors.New("invalid block")
	ErrEmptyChain     = errors.New("chain is empty")
	ErrUnsolvedTarget = errors.New("hash does not meet difficulty")
)

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64 `json:"index"`        // Height of the block, genesis is 1.
	Hash         string `json:"hash"`         // Proof of work solution.
	PreviousHash string `json:"previousHash"` // Empty for the genesis block.
	Timestamp    int64  `json:"timestamp"`    // Unix milliseconds when the search started.
	Nonce        uint64 `json:"nonce"`
	Transactions []Tx   `json:"transactions"`
}

// ComputeHash returns hash256(previousHash ∥ timestamp ∥ nonce ∥ JSON(transactions)).
func ComputeHash(previousHash string, timestamp int64, txs []Tx, nonce uint64) string {
	data, err := json.Marshal(txs)
	if err != nil {
		return ""
	}

	return blockHash(hashPrefix(previousHash, timestamp), nonce, data)
}

// ComputeHash recomputes the hash of the block from its content.
func (b Block) ComputeHash() string {
	return ComputeHash(b.PreviousHash, b.Timestamp, b.Transactions, b.Nonce)
}

// MeetsTarget reports whether the hash starts with difficulty zero characters.
func MeetsTarget(hash string, difficulty uint) bool {
	if uint(len(hash)) < difficulty {
		return false
	}

	return hash[:difficulty] == strings.Repeat("0", int(difficulty))
}

// ValidateSuccessor checks the block can follow the predecessor. A nil
// predecessor means the block must be a genesis block.
func (b Block) ValidateSuccessor(predecessor *Block, difficulty uint) error {
	switch {
	case predecessor == nil:
		if b.PreviousHash != "" {
			return fmt.Errorf("%w: blk[%d]: genesis previous hash is not empty", ErrInvalidBlock, b.Index)
		}

	default:
		if b.PreviousHash != predecessor.Hash {
			return fmt.Errorf("%w: blk[%d]: previous hash %s, exp %s", ErrInvalidBlock, b.Index, b.PreviousHash, predecessor.Hash)
		}

		if b.Index != predecessor.Index+1 {
			return fmt.Errorf("%w: blk[%d]: not the next index, exp %d", ErrInvalidBlock, b.Index, predecessor.Index+1)
		}
	}

	if hash := b.ComputeHash(); hash != b.Hash {
		return fmt.Errorf("%w: blk[%d]: hash %s, computed %s", ErrInvalidBlock, b.Index, b.Hash, hash)
	}

	if !MeetsTarget(b.Hash, difficulty) {
		return fmt.Errorf("%w: blk[%d]: %w: difficulty %d", ErrInvalidBlock, b.Index, ErrUnsolvedTarget, difficulty)
	}

	return nil
}

// IsValidSuccessor is the boolean form of ValidateSuccessor.
func IsValidSuccessor(candidate Block, predecessor *Block, difficulty uint) bool {
	return candidate.ValidateSuccessor(predecessor, difficulty) == nil
}

// ValidateChain trusts the first block and checks every following block
// against its predecessor.
func ValidateChain(chain []Block, difficulty uint) error {
	if len(chain) == 0 {
		return ErrEmptyChain
	}

	for i := 1; i < len(chain); i++ {
		if err := chain[i].ValidateSuccessor(&chain[i-1], difficulty); err != nil {
			return err
		}
	}

	return nil
}

// IsValidChain is the boolean form of ValidateChain.
func IsValidChain(chain []Block, difficulty uint) bool {
	return ValidateChain(chain, difficulty) == nil
}

// =============================================================================

// POWArgs provides the information needed to search for a block.
type POWArgs struct {
	Index        uint64
	PreviousHash string
	Timestamp    int64
	Transactions []Tx
	Difficulty   uint
	Height       func() uint64 // Current chain height, polled to detect a lost race.
	EvHandler    func(v string, args ...any)
}

// POW searches nonces from zero until the block hash meets the difficulty.
// The search stops with ErrChainAdvanced when the chain height moves past
// the height captured at the start, or with the context error.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	height := func() uint64 { return 0 }
	if args.Height != nil {
		height = args.Height
	}

	data, err := json.Marshal(args.Transactions)
	if err != nil {
		return Block{}, fmt.Errorf("marshal transactions: %w", err)
	}

	ev("database: POW: MINING: started: blk[%d]: difficulty[%d]: txs[%d]", args.Index, args.Difficulty, len(args.Transactions))

	prefix := hashPrefix(args.PreviousHash, args.Timestamp)
	startHeight := height()

	for nonce := uint64(0); ; nonce++ {
		if nonce%pollInterval == 0 {
			if ctx.Err() != nil {
				ev("database: POW: MINING: CANCELLED: attempts[%d]", nonce)
				return Block{}, ctx.Err()
			}

			if height() > startHeight {
				ev("database: POW: MINING: ABORTED: chain advanced: attempts[%d]", nonce)
				return Block{}, ErrChainAdvanced
			}
		}

		if nonce > 0 && nonce%1_000_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", nonce)
		}

		hash := blockHash(prefix, nonce, data)
		if !MeetsTarget(hash, args.Difficulty) {
			continue
		}

		ev("database: POW: MINING: SOLVED: blk[%d]: hash[%s]: attempts[%d]", args.Index, hash, nonce+1)

		b := Block{
			Index:        args.Index,
			Hash:         hash,
			PreviousHash: args.PreviousHash,
			Timestamp:    args.Timestamp,
			Nonce:        nonce,
			Transactions: args.Transactions,
		}

		return b, nil
	}
}

// =============================================================================

func hashPrefix(previousHash string, timestamp int64) string {
	return previousHash + strconv.FormatInt(timestamp, 10)
}

func blockHash(prefix string, nonce uint64, txsJSON []byte) string {
	return signature.Hash256Hex(prefix + strconv.FormatUint(nonce, 10) + string(txsJSON))
}
