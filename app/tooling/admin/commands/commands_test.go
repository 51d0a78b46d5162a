package commands

import (
	"context"
	"testing"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/database/storage"
	"github.com/HamaKinger/blockchain/foundation/blockchain/genesis"
	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Rebuild(t *testing.T) {
	t.Log("Given the need to rebuild a ledger snapshot from the chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain holds two mined blocks.", testID)
		{
			privateKey, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}
			miner := signature.PublicKeyToAddress(privateKey.PublicKey)

			gen := genesis.Default()
			gen.Difficulty = 1

			store := storage.NewMemory()
			db := database.New(store, func(string, ...any) {})

			var prev *database.Block
			for height := uint64(1); height <= 2; height++ {
				cb, err := database.NewCoinbaseTx(miner, height, gen.ChainID, time.Now().UnixMilli())
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build a coinbase: %v", failed, testID, err)
				}

				args := database.POWArgs{
					Index:        height,
					Timestamp:    time.Now().UnixMilli(),
					Transactions: []database.Tx{cb},
					Difficulty:   gen.Difficulty,
				}
				if prev != nil {
					args.PreviousHash = prev.Hash
				}

				block, err := database.POW(context.Background(), args)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine block %d: %v", failed, testID, height, err)
				}

				if err := db.Append(block); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to append block %d: %v", failed, testID, height, err)
				}
				prev = &block
			}

			if err := Verify(db, gen); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the chain.", success, testID)

			if err := Rebuild(db, store); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould rebuild the ledger: %v", failed, testID, err)
			}

			entries, err := store.LoadLedger()
			if err != nil || len(entries) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould store two entries, got %d: %v", failed, testID, len(entries), err)
			}
			t.Logf("\t%s\tTest %d:\tShould store two entries.", success, testID)
		}
	}
}
