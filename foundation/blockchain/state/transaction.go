package state

import (
	"fmt"
	"math"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
)

// SubmitTransfer builds, signs and queues a transfer of amount from one
// address to another, paying the fee to the miner. The sender's key must
// be held by the node's wallet. The hash of the new transaction is returned.
func (s *State) SubmitTransfer(from string, to string, amount database.Amount, fee database.Amount) (string, error) {
	s.evHandler("state: SubmitTransfer: started: from[%s]: to[%s]: amount[%s]: fee[%s]", from, to, amount.Coins(), fee.Coins())
	defer s.evHandler("state: SubmitTransfer: completed")

	if amount.IsZero() {
		return "", ErrInvalidAmount
	}

	if _, err := signature.DecodeAddress(from); err != nil {
		return "", fmt.Errorf("%w: from: %w", ErrInvalidAddress, err)
	}
	if _, err := signature.DecodeAddress(to); err != nil {
		return "", fmt.Errorf("%w: to: %w", ErrInvalidAddress, err)
	}

	if s.keyStore == nil {
		return "", ErrNoSigningKey
	}
	privateKey, err := s.keyStore.Lookup(from)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSigningKey, err)
	}

	needed, ok := amount.Add(fee)
	if !ok {
		return "", ErrInvalidAmount
	}

	publicKey := signature.PublicKeyHex(privateKey.PublicKey)

	s.txMu.Lock()
	defer s.txMu.Unlock()

	// Select unspent outputs not already consumed by a pending transaction
	// until they cover the amount and the fee.
	reserved := s.mempool.Reserved()

	var total database.Amount
	var inputs []database.UtxoInput
	for _, entry := range s.ledger.UtxosOf(from) {
		if total.Cmp(needed) >= 0 {
			break
		}

		if _, exists := reserved[database.Outpoint{TxHash: entry.PrevTxHash, Index: entry.PrevOutIndex}]; exists {
			continue
		}

		total, _ = total.Add(entry.Amount)
		inputs = append(inputs, database.UtxoInput{
			PrevTxHash:   entry.PrevTxHash,
			PrevOutIndex: entry.PrevOutIndex,
			UnlockScript: publicKey,
			Sequence:     database.DefaultSequence,
		})
	}

	if total.Cmp(needed) < 0 {
		return "", ErrInsufficientBalance
	}

	receiver, err := database.NewUtxoOutput(to, amount, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	outputs := []database.UtxoOutput{receiver}

	if change, _ := total.Sub(needed); !change.IsZero() {
		out, err := database.NewUtxoOutput(from, change, 1)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		outputs = append(outputs, out)
	}

	tx := database.Tx{
		Kind:        database.TxStandard,
		FromAddress: from,
		ToAddress:   to,
		Version:     database.TxVersion,
		Timestamp:   time.Now().UnixMilli(),
		Inputs:      inputs,
		Outputs:     outputs,
		Fee:         fee,
		Status:      database.StatusPending,
		ChainID:     s.genesis.ChainID,
		Memo:        database.TransferMemo,
		PublicKey:   publicKey,
	}
	tx.GenerateHash()

	if err := tx.Sign(privateKey); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTxVerify, err)
	}

	if err := s.upsertTransaction(tx); err != nil {
		return "", err
	}

	return tx.TxHash, nil
}

// UpsertWalletTransaction accepts a signed transaction for inclusion in a
// future block. The transaction must verify against the ledger and can't
// spend an output another pending transaction already spends.
func (s *State) UpsertWalletTransaction(tx database.Tx) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	return s.upsertTransaction(tx)
}

// =============================================================================

// upsertTransaction must be called with s.txMu held.
func (s *State) upsertTransaction(tx database.Tx) error {
	if tx.IsCoinbase() {
		return fmt.Errorf("%w: coinbase transactions are created by miners", ErrTxVerify)
	}

	if err := tx.Verify(s.ledger); err != nil {
		return fmt.Errorf("%w: %w", ErrTxVerify, err)
	}

	reserved := s.mempool.Reserved()
	for _, in := range tx.Inputs {
		if _, exists := reserved[database.Outpoint{TxHash: in.PrevTxHash, Index: in.PrevOutIndex}]; exists {
			return fmt.Errorf("%w: input %s:%d already pending", ErrTxVerify, in.PrevTxHash, in.PrevOutIndex)
		}
	}

	fee, err := tx.CalculateFee(s.ledger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTxVerify, err)
	}
	tx.Fee = fee
	tx.Status = database.StatusPending

	if size, room := tx.Size(), s.blockRoom(tx.FromAddress); size > room {
		return fmt.Errorf("%w: size %d exceeds block room %d", ErrTxVerify, size, room)
	}

	if _, err := s.mempool.Upsert(tx); err != nil {
		return err
	}

	s.evHandler("state: upsertTransaction: tx[%s]: fee[%s]: pending[%d]", tx.TxHash, fee.Coins(), s.mempool.Count())

	s.Worker.SignalStartMining()

	return nil
}

// blockRoom returns the bytes a block can give a single transaction once
// the largest coinbase the miner could produce is packed. The sender's
// address stands in when no miner is configured.
func (s *State) blockRoom(from string) int {
	miner := s.MinerAddress()
	if miner == "" {
		miner = from
	}

	coinbase, err := database.NewCoinbaseTx(miner, math.MaxUint64, s.genesis.ChainID, math.MaxInt64)
	if err != nil {
		return s.genesis.MaxBlockSize
	}

	return s.genesis.MaxBlockSize - coinbase.Size()
}
