package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/state"
)

func Test_MineAgain(t *testing.T) {
	const (
		success = "\u2713"
		failed  = "\u2717"
	)

	coinbase := database.Tx{Kind: database.TxCoinbase}
	transfer := database.Tx{Kind: database.TxStandard}

	tt := []struct {
		name  string
		block database.Block
		err   error
		again bool
	}{
		{"packed a transfer", database.Block{Transactions: []database.Tx{coinbase, transfer}}, nil, true},
		{"packed only the coinbase", database.Block{Transactions: []database.Tx{coinbase}}, nil, false},
		{"cancelled by a peer block", database.Block{}, fmt.Errorf("%w: %w", state.ErrMiningFailed, context.Canceled), true},
		{"outrun by the chain", database.Block{}, fmt.Errorf("%w: %w", state.ErrMiningFailed, database.ErrChainAdvanced), true},
		{"lost the race to append", database.Block{}, fmt.Errorf("%w: %w", state.ErrMiningFailed, state.ErrBlockRejected), true},
		{"no mining key", database.Block{}, state.ErrNoMiningKey, false},
		{"no genesis", database.Block{}, state.ErrNoGenesis, false},
	}

	t.Log("Given the need to decide whether pending transactions get another mining attempt.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the attempt %s.", testID, tst.name)
			{
				if got := mineAgain(tst.block, tst.err); got != tst.again {
					t.Fatalf("\t%s\tTest %d:\tShould report %v, got %v.", failed, testID, tst.again, got)
				}
				t.Logf("\t%s\tTest %d:\tShould report %v.", success, testID, tst.again)
			}
		}
	}
}
