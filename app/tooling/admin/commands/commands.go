// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"errors"
	"fmt"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// Storage is the chain and ledger storage the commands operate on.
type Storage interface {
	database.Serializer
	database.Snapshotter
}

// replay applies every block to an empty ledger in order.
func replay(blocks []database.Block) (*database.Ledger, error) {
	ledger, err := database.ReplayBlocks(blocks)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	return ledger, nil
}
