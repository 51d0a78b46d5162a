// Package genesis maintains access to the genesis file that holds the
// consensus parameters of the chain.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time `json:"date"`
	ChainID         uint16    `json:"chain_id"`          // The chain id recorded on every transaction.
	Difficulty      uint      `json:"difficulty"`        // Leading zero characters needed to solve the work problem.
	MaxBlockSize    int       `json:"max_block_size"`    // Upper bound in bytes for the transactions packed in a block.
	AdjustWindow    int       `json:"adjust_window"`     // Number of block intervals averaged when adjusting difficulty.
	TargetBlockTime int64     `json:"target_block_time"` // Expected milliseconds between blocks.
}

// Default returns the parameters used when no genesis file exists.
func Default() Genesis {
	return Genesis{
		Date:            time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:         1,
		Difficulty:      4,
		MaxBlockSize:    1_000_000,
		AdjustWindow:    10,
		TargetBlockTime: 600_000,
	}
}

// TargetInterval returns the target block time as a duration.
func (g Genesis) TargetInterval() time.Duration {
	return time.Duration(g.TargetBlockTime) * time.Millisecond
}

// =============================================================================

// Load opens and consumes the genesis file. A missing file yields the
// default parameters and zero values in the file are filled from them.
func Load(path string) (Genesis, error) {
	def := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return def, nil
		}
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}

	if genesis.ChainID == 0 {
		genesis.ChainID = def.ChainID
	}
	if genesis.Difficulty == 0 {
		genesis.Difficulty = def.Difficulty
	}
	if genesis.MaxBlockSize == 0 {
		genesis.MaxBlockSize = def.MaxBlockSize
	}
	if genesis.AdjustWindow == 0 {
		genesis.AdjustWindow = def.AdjustWindow
	}
	if genesis.TargetBlockTime == 0 {
		genesis.TargetBlockTime = def.TargetBlockTime
	}

	return genesis, nil
}
