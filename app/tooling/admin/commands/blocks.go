package commands

import (
	"fmt"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// Blocks prints a line for every block in the chain.
func Blocks(db *database.Database) error {
	for _, block := range db.All() {
		fmt.Printf("Index: %d  Hash: %s  Prev: %s  Time: %s  Nonce: %d  Txs: %d\n",
			block.Index, block.Hash, block.PreviousHash,
			time.UnixMilli(block.Timestamp).UTC().Format(time.RFC3339), block.Nonce, len(block.Transactions))
	}

	return nil
}
