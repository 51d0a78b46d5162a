package database_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/database/storage"
	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// =============================================================================

func Test_Amount(t *testing.T) {
	type table struct {
		name  string
		input string
		units string
		coins string
		err   bool
	}

	tt := []table{
		{name: "whole", input: "2", units: "200000000", coins: "2.00000000"},
		{name: "fraction", input: "1.0", units: "100000000", coins: "1.00000000"},
		{name: "fee", input: "0.0001", units: "10000", coins: "0.00010000"},
		{name: "leading-dot", input: ".5", units: "50000000", coins: "0.50000000"},
		{name: "smallest", input: "0.00000001", units: "1", coins: "0.00000001"},
		{name: "too-precise", input: "0.000000001", err: true},
		{name: "negative", input: "-1", err: true},
		{name: "garbage", input: "1.2.3", err: true},
		{name: "empty", input: "", err: true},
	}

	t.Log("Given the need to parse and render coin amounts.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %q.", testID, tst.input)
				{
					a, err := database.ParseCoins(tst.input)
					if tst.err {
						if !errors.Is(err, database.ErrInvalidAmount) {
							t.Fatalf("\t%s\tTest %d:\tShould reject the amount: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould reject the amount.", success, testID)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould parse the amount: %v", failed, testID, err)
					}

					if a.String() != tst.units {
						t.Fatalf("\t%s\tTest %d:\tShould get %s base units, got %s", failed, testID, tst.units, a)
					}
					t.Logf("\t%s\tTest %d:\tShould get %s base units.", success, testID, tst.units)

					if a.Coins() != tst.coins {
						t.Fatalf("\t%s\tTest %d:\tShould render %s, got %s", failed, testID, tst.coins, a.Coins())
					}
					t.Logf("\t%s\tTest %d:\tShould render %s.", success, testID, tst.coins)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_AmountMath(t *testing.T) {
	a := database.NewAmount(10)
	b := database.NewAmount(3)

	if r, ok := a.Sub(b); !ok || r.String() != "7" {
		t.Fatalf("Should subtract: %s %v", r, ok)
	}

	if _, ok := b.Sub(a); ok {
		t.Fatalf("Should report underflow.")
	}

	if r, ok := a.Add(b); !ok || r.String() != "13" {
		t.Fatalf("Should add: %s %v", r, ok)
	}
}

// =============================================================================

func Test_Transaction(t *testing.T) {
	t.Log("Given the need to sign and verify transactions.")
	{
		key, from, to := keys(t)
		ledger := database.NewLedger()

		cb, err := database.NewCoinbaseTx(from, 1, database.DefaultChainID, 1000)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build a coinbase: %v", failed, err)
		}

		if err := cb.Verify(ledger); err != nil {
			t.Fatalf("\t%s\tShould verify the coinbase: %v", failed, err)
		}
		t.Logf("\t%s\tShould verify the coinbase.", success)

		ledger.AddUtxos(cb.TxHash, cb.Outputs)

		tx := transfer(t, key, from, to, cb.TxHash, "1.0", "48.9999")

		if tx.ComputeHash() != tx.TxHash {
			t.Fatalf("\t%s\tShould recompute the same hash after signing.", failed)
		}
		t.Logf("\t%s\tShould recompute the same hash after signing.", success)

		if err := tx.Verify(ledger); err != nil {
			t.Fatalf("\t%s\tShould verify the signed transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould verify the signed transaction.", success)

		fee, err := tx.CalculateFee(ledger)
		if err != nil || fee.Coins() != "0.00010000" {
			t.Fatalf("\t%s\tShould calculate the fee: %v: %s", failed, err, fee.Coins())
		}
		t.Logf("\t%s\tShould calculate the fee.", success)

		tampered := tx
		tampered.Memo = "changed"
		if err := tampered.Verify(ledger); !errors.Is(err, database.ErrHashMismatch) {
			t.Fatalf("\t%s\tShould detect a tampered transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould detect a tampered transaction.", success)

		forged := tx
		forged.Signature = append([]byte(nil), tx.Signature...)
		forged.Signature[10] ^= 0xff
		if err := forged.Verify(ledger); !errors.Is(err, database.ErrBadSignature) {
			t.Fatalf("\t%s\tShould detect a forged signature: %v", failed, err)
		}
		t.Logf("\t%s\tShould detect a forged signature.", success)

		greedy := transfer(t, key, from, to, cb.TxHash, "50", "0.0001")
		if err := greedy.Verify(ledger); !errors.Is(err, database.ErrNegativeFee) {
			t.Fatalf("\t%s\tShould reject outputs above inputs: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject outputs above inputs.", success)

		if err := ledger.MarkSpent(cb.TxHash, 0); err != nil {
			t.Fatalf("\t%s\tShould be able to mark the output spent: %v", failed, err)
		}

		if err := tx.Verify(ledger); !errors.Is(err, database.ErrUtxoSpent) {
			t.Fatalf("\t%s\tShould reject spending a spent output: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject spending a spent output.", success)
	}
}

func Test_TransactionBounds(t *testing.T) {
	t.Log("Given the need to reject transactions that create value from nothing.")
	{
		key, from, to := keys(t)
		pubHex := signature.PublicKeyHex(key.PublicKey)

		ledger := database.NewLedger()
		cb, err := database.NewCoinbaseTx(from, 1, database.DefaultChainID, 1000)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build a coinbase: %v", failed, err)
		}
		ledger.AddUtxos(cb.TxHash, cb.Outputs)

		// 2^255 base units: two of these wrap a 256-bit sum to zero.
		const half = "57896044618658097711785492504343953926634992332820282019728792003956564819968"
		huge, err := database.ParseCoins(half[:len(half)-8] + "." + half[len(half)-8:])
		if err != nil {
			t.Fatalf("\t%s\tShould parse 2^255 base units: %v", failed, err)
		}

		input := database.UtxoInput{PrevTxHash: cb.TxHash, PrevOutIndex: 0, UnlockScript: pubHex, Sequence: database.DefaultSequence}

		testID := 0
		t.Logf("\tTest %d:\tWhen the outputs overflow the 256-bit sum.", testID)
		{
			tx := signedTx(t, key, from, to, []database.UtxoInput{input}, output(t, to, huge, 0), output(t, to, huge, 1))

			if _, ok := tx.OutputTotal(); ok {
				t.Fatalf("\t%s\tTest %d:\tShould report the overflowing output total.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report the overflowing output total.", success, testID)

			if err := tx.Verify(ledger); !errors.Is(err, database.ErrInvalidAmount) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a transaction spends no inputs.", testID)
		{
			tx := signedTx(t, key, from, to, nil, output(t, to, huge, 0), output(t, to, huge, 1))

			if err := tx.Verify(ledger); !errors.Is(err, database.ErrNoInputs) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen an output pays nothing.", testID)
		{
			tx := signedTx(t, key, from, to, []database.UtxoInput{input}, output(t, to, database.Amount{}, 0))

			if err := tx.Verify(ledger); !errors.Is(err, database.ErrInvalidOutput) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen two outputs share an index.", testID)
		{
			one := database.NewAmount(100_000_000)
			tx := signedTx(t, key, from, to, []database.UtxoInput{input}, output(t, to, one, 0), output(t, to, one, 0))

			if err := tx.Verify(ledger); !errors.Is(err, database.ErrInvalidOutput) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen balances are summed.", testID)
		{
			rich := database.NewLedger()
			rich.AddUtxos("a", []database.UtxoOutput{output(t, to, huge, 0)})
			rich.AddUtxos("b", []database.UtxoOutput{output(t, to, huge, 0)})

			if _, err := rich.BalanceOf(to); !errors.Is(err, database.ErrInvalidAmount) {
				t.Fatalf("\t%s\tTest %d:\tShould report an overflowing balance: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report an overflowing balance.", success, testID)
		}
	}
}

func Test_Coinbase(t *testing.T) {
	_, from, _ := keys(t)

	cb1, err := database.NewCoinbaseTx(from, 1, database.DefaultChainID, 1000)
	if err != nil {
		t.Fatalf("Should be able to build a coinbase: %s", err)
	}

	cb2, err := database.NewCoinbaseTx(from, 2, database.DefaultChainID, 1000)
	if err != nil {
		t.Fatalf("Should be able to build a coinbase: %s", err)
	}

	if cb1.TxHash == cb2.TxHash {
		t.Fatalf("Should get different hashes at different heights.")
	}

	if cb1.Memo != "Coinbase for block 1" {
		t.Fatalf("Should get the coinbase memo, got %q", cb1.Memo)
	}

	bad := cb1
	bad.Outputs = []database.UtxoOutput{cb1.Outputs[0]}
	bad.Outputs[0].Amount = database.NewAmount(1)
	if err := bad.Verify(database.NewLedger()); !errors.Is(err, database.ErrInvalidCoinbase) {
		t.Fatalf("Should reject a coinbase paying the wrong reward: %v", err)
	}

	moved := cb1
	moved.Height = 5
	if err := moved.Verify(database.NewLedger()); !errors.Is(err, database.ErrHashMismatch) {
		t.Fatalf("Should reject a coinbase moved to another height: %v", err)
	}
}

// =============================================================================

func Test_Ledger(t *testing.T) {
	key, from, to := keys(t)
	ledger := database.NewLedger()

	cb, _ := database.NewCoinbaseTx(from, 1, database.DefaultChainID, 1000)
	if err := ledger.Apply([]database.Tx{cb}); err != nil {
		t.Fatalf("Should apply the coinbase: %s", err)
	}

	if got := balance(t, ledger, from); got != "50.00000000" {
		t.Fatalf("Should get a balance of 50 coins, got %s", got)
	}

	tx1 := transfer(t, key, from, to, cb.TxHash, "1", "48.9999")
	tx2 := transfer(t, key, from, to, cb.TxHash, "2", "47.9999")

	if err := ledger.Apply([]database.Tx{tx1, tx2}); !errors.Is(err, database.ErrUtxoSpent) {
		t.Fatalf("Should reject a set spending the same output twice: %v", err)
	}

	if ledger.IsSpent(cb.TxHash, 0) {
		t.Fatalf("Should not change the ledger on a rejected set.")
	}

	if err := ledger.Apply([]database.Tx{tx1}); err != nil {
		t.Fatalf("Should apply the transfer: %s", err)
	}

	if !ledger.IsSpent(cb.TxHash, 0) {
		t.Fatalf("Should mark the input spent.")
	}

	if got := balance(t, ledger, to); got != "1.00000000" {
		t.Fatalf("Should credit the receiver, got %s", got)
	}

	if got := balance(t, ledger, from); got != "48.99990000" {
		t.Fatalf("Should return the change, got %s", got)
	}

	if err := ledger.MarkSpent(cb.TxHash, 0); !errors.Is(err, database.ErrUtxoSpent) {
		t.Fatalf("Should refuse to mark an output spent twice: %v", err)
	}

	if got := ledger.AmountOf("missing", 0); !got.IsZero() {
		t.Fatalf("Should get zero for an unknown output.")
	}

	// Spent entries are kept.
	if ledger.Len() != 3 {
		t.Fatalf("Should keep spent entries, got %d", ledger.Len())
	}

	restored := database.NewLedger()
	restored.Restore(ledger.Entries())
	if balance(t, restored, from) != balance(t, ledger, from) {
		t.Fatalf("Should restore the same balances from a snapshot.")
	}
}

func Test_ApplyBlock(t *testing.T) {
	t.Log("Given the need to apply only verified blocks to the ledger.")
	{
		key, from, to := keys(t)
		genesis := mineChain(t, from, 1, 1)[0]

		newLedger := func() *database.Ledger {
			ledger := database.NewLedger()
			if err := ledger.ApplyBlock(genesis); err != nil {
				t.Fatalf("\t%s\tShould apply the genesis block: %v", failed, err)
			}
			return ledger
		}
		cbHash := genesis.Transactions[0].TxHash

		cb2, err := database.NewCoinbaseTx(from, 2, database.DefaultChainID, 2000)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build a coinbase: %v", failed, err)
		}

		testID := 0
		t.Logf("\tTest %d:\tWhen a block spends an output without a signature.", testID)
		{
			ledger := newLedger()

			theft := transfer(t, key, from, to, cbHash, "50", "0")
			theft.Outputs = theft.Outputs[:1]
			theft.GenerateHash()
			theft.Signature = nil

			block := database.Block{Index: 2, Transactions: []database.Tx{cb2, theft}}
			err := ledger.ApplyBlock(block)
			if !errors.Is(err, database.ErrInvalidBlock) || !errors.Is(err, database.ErrBadSignature) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)

			if ledger.IsSpent(cbHash, 0) || balance(t, ledger, from) != "50.00000000" || balance(t, ledger, to) != "0.00000000" {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger untouched.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger untouched.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the coinbase rules are broken.", testID)
		{
			ledger := newLedger()

			extra, err := database.NewCoinbaseTx(to, 2, database.DefaultChainID, 2001)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build a coinbase: %v", failed, testID, err)
			}

			blocks := map[string]database.Block{
				"second coinbase": {Index: 2, Transactions: []database.Tx{cb2, extra}},
				"no coinbase":     {Index: 2},
				"coinbase last":   {Index: 2, Transactions: []database.Tx{transfer(t, key, from, to, cbHash, "1", "48.9999"), cb2}},
				"wrong height":    {Index: 3, Transactions: []database.Tx{cb2}},
			}

			for name, block := range blocks {
				if err := ledger.CanApplyBlock(block); !errors.Is(err, database.ErrInvalidBlock) {
					t.Fatalf("\t%s\tTest %d:\tShould reject the block with %s: %v", failed, testID, name, err)
				}
				if err := ledger.ApplyBlock(block); !errors.Is(err, database.ErrInvalidBlock) {
					t.Fatalf("\t%s\tTest %d:\tShould reject the block with %s: %v", failed, testID, name, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject every block.", success, testID)

			if ledger.Len() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger untouched, got %d entries.", failed, testID, ledger.Len())
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger untouched.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a block spends an output created earlier in the block.", testID)
		{
			tx1 := transfer(t, key, from, from, cbHash, "1", "48.9999")
			tx2 := transfer(t, key, from, to, tx1.TxHash, "0.5", "0.4999")

			ledger := newLedger()
			reversed := database.Block{Index: 2, Transactions: []database.Tx{cb2, tx2, tx1}}
			if err := ledger.ApplyBlock(reversed); !errors.Is(err, database.ErrUtxoNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould reject spending an output before it exists: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject spending an output before it exists.", success, testID)

			twice := database.Block{Index: 2, Transactions: []database.Tx{cb2, tx1, tx1}}
			if err := ledger.ApplyBlock(twice); !errors.Is(err, database.ErrUtxoSpent) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a transaction packed twice: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a transaction packed twice.", success, testID)

			block := database.Block{Index: 2, Transactions: []database.Tx{cb2, tx1, tx2}}
			if err := ledger.ApplyBlock(block); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould apply the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould apply the block.", success, testID)

			if got := balance(t, ledger, from); got != "99.49980000" {
				t.Fatalf("\t%s\tTest %d:\tShould credit the sender with change and reward, got %s.", failed, testID, got)
			}
			if got := balance(t, ledger, to); got != "0.50000000" {
				t.Fatalf("\t%s\tTest %d:\tShould credit the receiver, got %s.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould credit both addresses.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen replaying a chain.", testID)
		{
			ledger, err := database.ReplayBlocks(mineChain(t, from, 3, 1))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould replay the chain: %v", failed, testID, err)
			}

			if got := balance(t, ledger, from); got != "150.00000000" {
				t.Fatalf("\t%s\tTest %d:\tShould pay three rewards, got %s.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould pay three rewards.", success, testID)
		}
	}
}

// =============================================================================

func Test_Blocks(t *testing.T) {
	_, from, _ := keys(t)

	t.Log("Given the need to mine and validate blocks.")
	{
		chain := mineChain(t, from, 3, 1)
		t.Logf("\t%s\tShould be able to mine a chain of 3 blocks.", success)

		for _, b := range chain {
			if b.ComputeHash() != b.Hash || !database.MeetsTarget(b.Hash, 1) {
				t.Fatalf("\t%s\tShould get a solved hash for block %d.", failed, b.Index)
			}
		}
		t.Logf("\t%s\tShould get solved hashes.", success)

		if !database.IsValidSuccessor(chain[0], nil, 1) {
			t.Fatalf("\t%s\tShould accept the genesis block without a predecessor.", failed)
		}
		t.Logf("\t%s\tShould accept the genesis block without a predecessor.", success)

		if !database.IsValidChain(chain, 1) {
			t.Fatalf("\t%s\tShould accept the chain: %v", failed, database.ValidateChain(chain, 1))
		}
		t.Logf("\t%s\tShould accept the chain.", success)

		if database.IsValidSuccessor(chain[2], &chain[0], 1) {
			t.Fatalf("\t%s\tShould reject a block with the wrong predecessor.", failed)
		}
		t.Logf("\t%s\tShould reject a block with the wrong predecessor.", success)

		reordered := chain[1]
		reordered.Transactions = append([]database.Tx{}, chain[1].Transactions...)
		reordered.Transactions[0].Memo = "changed"
		if database.IsValidSuccessor(reordered, &chain[0], 1) {
			t.Fatalf("\t%s\tShould reject a block whose transactions changed.", failed)
		}
		t.Logf("\t%s\tShould reject a block whose transactions changed.", success)

		broken := append([]database.Block{}, chain...)
		broken[1].Nonce++
		if database.IsValidChain(broken, 1) {
			t.Fatalf("\t%s\tShould reject a chain with one bad block.", failed)
		}
		t.Logf("\t%s\tShould reject a chain with one bad block.", success)

		if database.IsValidChain(nil, 1) {
			t.Fatalf("\t%s\tShould reject an empty chain.", failed)
		}
		t.Logf("\t%s\tShould reject an empty chain.", success)
	}
}

func Test_MeetsTarget(t *testing.T) {
	if !database.MeetsTarget("00ab", 2) {
		t.Fatalf("Should accept two leading zeros at difficulty 2.")
	}

	if database.MeetsTarget("0ab", 2) {
		t.Fatalf("Should reject one leading zero at difficulty 2.")
	}

	if database.MeetsTarget("0", 2) {
		t.Fatalf("Should reject a hash shorter than the difficulty.")
	}
}

func Test_POWCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := database.POW(ctx, database.POWArgs{Index: 1, Difficulty: 64})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Should stop the search when cancelled: %v", err)
	}

	var height uint64
	args := database.POWArgs{
		Index:      1,
		Difficulty: 64,
		Height: func() uint64 {
			height++
			return height
		},
	}

	if _, err := database.POW(context.Background(), args); !errors.Is(err, database.ErrChainAdvanced) {
		t.Fatalf("Should stop the search when the chain advances: %v", err)
	}
}

func Test_AdjustDifficulty(t *testing.T) {
	target := 10 * time.Minute

	build := func(spacing time.Duration) []database.Block {
		chain := make([]database.Block, 11)
		for i := range chain {
			chain[i].Timestamp = int64(i) * spacing.Milliseconds()
		}
		return chain
	}

	if d := database.AdjustDifficulty(build(time.Minute)[:10], 2, 10, target); d != 2 {
		t.Fatalf("Should not adjust before the window fills, got %d", d)
	}

	if d := database.AdjustDifficulty(build(time.Minute), 2, 10, target); d != 3 {
		t.Fatalf("Should raise the difficulty for fast blocks, got %d", d)
	}

	if d := database.AdjustDifficulty(build(time.Hour), 2, 10, target); d != 1 {
		t.Fatalf("Should lower the difficulty for slow blocks, got %d", d)
	}

	if d := database.AdjustDifficulty(build(time.Hour), 1, 10, target); d != 1 {
		t.Fatalf("Should never go below one, got %d", d)
	}

	if d := database.AdjustDifficulty(build(target), 2, 10, target); d != 2 {
		t.Fatalf("Should keep the difficulty on target, got %d", d)
	}
}

// =============================================================================

func Test_Database(t *testing.T) {
	_, from, _ := keys(t)
	chain := mineChain(t, from, 3, 1)

	mem := storage.NewMemory()
	db := database.New(mem, func(string, ...any) {})

	if _, exists := db.Latest(); exists {
		t.Fatalf("Should start empty.")
	}

	for _, b := range chain[:2] {
		if err := db.Append(b); err != nil {
			t.Fatalf("Should append block %d: %s", b.Index, err)
		}
	}

	latest, _ := db.Latest()
	if latest.Index != 2 || db.Height() != 2 || len(db.KnownTransactions()) != 2 {
		t.Fatalf("Should track the latest block, height and known transactions.")
	}

	if err := db.Replace(chain); err != nil {
		t.Fatalf("Should replace the chain: %s", err)
	}

	if db.Height() != 3 || len(db.KnownTransactions()) != 3 {
		t.Fatalf("Should rebuild the known transactions on replace.")
	}

	reloaded := database.New(mem, func(string, ...any) {})
	if reloaded.Height() != 3 {
		t.Fatalf("Should reload the persisted chain, got %d", reloaded.Height())
	}
}

// =============================================================================

func keys(t *testing.T) (*ecdsa.PrivateKey, string, string) {
	key, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	return key, signature.PublicKeyToAddress(key.PublicKey), signature.PublicKeyToAddress(other.PublicKey)
}

func transfer(t *testing.T, key *ecdsa.PrivateKey, from, to, prevTx, amount, change string) database.Tx {
	pubHex := signature.PublicKeyHex(key.PublicKey)

	amt, err := database.ParseCoins(amount)
	if err != nil {
		t.Fatalf("Should parse the amount: %s", err)
	}
	chg, err := database.ParseCoins(change)
	if err != nil {
		t.Fatalf("Should parse the change: %s", err)
	}

	out0, err := database.NewUtxoOutput(to, amt, 0)
	if err != nil {
		t.Fatalf("Should build the output: %s", err)
	}
	out1, err := database.NewUtxoOutput(from, chg, 1)
	if err != nil {
		t.Fatalf("Should build the change output: %s", err)
	}

	tx := database.Tx{
		Kind:        database.TxStandard,
		FromAddress: from,
		ToAddress:   to,
		Version:     database.TxVersion,
		Timestamp:   time.Now().UnixMilli(),
		Inputs: []database.UtxoInput{
			{PrevTxHash: prevTx, PrevOutIndex: 0, UnlockScript: pubHex, Sequence: database.DefaultSequence},
		},
		Outputs:   []database.UtxoOutput{out0, out1},
		Status:    database.StatusPending,
		ChainID:   database.DefaultChainID,
		Memo:      database.TransferMemo,
		PublicKey: pubHex,
	}

	tx.GenerateHash()
	hash := tx.TxHash

	if err := tx.Sign(key); err != nil {
		t.Fatalf("Should sign the transaction: %s", err)
	}

	if tx.TxHash != hash || !strings.HasSuffix(tx.Inputs[0].UnlockScript, pubHex) {
		t.Fatalf("Should keep the hash stable and complete the unlock script.")
	}

	return tx
}

func mineChain(t *testing.T, miner string, n int, difficulty uint) []database.Block {
	var chain []database.Block

	for i := 1; i <= n; i++ {
		var prevHash string
		if len(chain) > 0 {
			prevHash = chain[len(chain)-1].Hash
		}

		cb, err := database.NewCoinbaseTx(miner, uint64(i), database.DefaultChainID, int64(i))
		if err != nil {
			t.Fatalf("Should build the coinbase: %s", err)
		}

		args := database.POWArgs{
			Index:        uint64(i),
			PreviousHash: prevHash,
			Timestamp:    int64(i) * 1000,
			Transactions: []database.Tx{cb},
			Difficulty:   difficulty,
		}

		b, err := database.POW(context.Background(), args)
		if err != nil {
			t.Fatalf("Should mine block %d: %s", i, err)
		}
		chain = append(chain, b)
	}

	return chain
}

func balance(t *testing.T, ledger *database.Ledger, address string) string {
	bal, err := ledger.BalanceOf(address)
	if err != nil {
		t.Fatalf("Should sum the balance: %s", err)
	}
	return bal.Coins()
}

func output(t *testing.T, address string, amount database.Amount, index uint32) database.UtxoOutput {
	out, err := database.NewUtxoOutput(address, amount, index)
	if err != nil {
		t.Fatalf("Should build the output: %s", err)
	}
	return out
}

func signedTx(t *testing.T, key *ecdsa.PrivateKey, from, to string, inputs []database.UtxoInput, outputs ...database.UtxoOutput) database.Tx {
	tx := database.Tx{
		Kind:        database.TxStandard,
		FromAddress: from,
		ToAddress:   to,
		Version:     database.TxVersion,
		Timestamp:   time.Now().UnixMilli(),
		Inputs:      inputs,
		Outputs:     outputs,
		Status:      database.StatusPending,
		ChainID:     database.DefaultChainID,
		Memo:        database.TransferMemo,
		PublicKey:   signature.PublicKeyHex(key.PublicKey),
	}
	tx.GenerateHash()

	if err := tx.Sign(key); err != nil {
		t.Fatalf("Should sign the transaction: %s", err)
	}

	return tx
}
