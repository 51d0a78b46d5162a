package commands

import (
	"fmt"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/genesis"
)

// Verify validates the chain at the genesis difficulty and checks that
// every block's transactions apply to the ledger built by its predecessors.
func Verify(db *database.Database, gen genesis.Genesis) error {
	blocks := db.All()

	if err := database.ValidateChain(blocks, gen.Difficulty); err != nil {
		return err
	}

	if _, err := replay(blocks); err != nil {
		return err
	}

	fmt.Printf("Chain of %d blocks is valid at difficulty %d\n", len(blocks), gen.Difficulty)

	return nil
}
