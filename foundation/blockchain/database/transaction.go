package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of transaction defaults.
const (
	TxVersion       uint32 = 1
	DefaultChainID  uint16 = 1
	DefaultSequence uint32 = 0xFFFFFFFF
	TransferMemo           = "Transfer"
)

// Subsidy is the fixed reward paid by every coinbase transaction.
var Subsidy = NewAmount(50_00000000)

// Set of errors returned by transaction verification.
var (
	ErrHashNotGenerated = errors.New("transaction hash not generated")
	ErrHashMismatch     = errors.New("transaction hash mismatch")
	ErrBadSignature     = errors.New("transaction signature invalid")
	ErrNotOwner         = errors.New("transaction input not owned by sender")
	ErrUtxoNotFound     = errors.New("utxo not found")
	ErrUtxoSpent        = errors.New("utxo already spent")
	ErrNegativeFee      = errors.New("outputs exceed inputs")
	ErrNoInputs         = errors.New("transaction has no inputs")
	ErrInvalidOutput    = errors.New("invalid transaction output")
	ErrInvalidCoinbase  = errors.New("invalid coinbase transaction")
)

// TxKind tags a transaction as a coinbase or a standard transfer.
type TxKind string

// Set of transaction kinds.
const (
	TxStandard TxKind = "standard"
	TxCoinbase TxKind = "coinbase"
)

// TxStatus represents where a transaction is in its lifecycle.
type TxStatus string

// Set of transaction statuses.
const (
	StatusPending   TxStatus = "PENDING"
	StatusConfirmed TxStatus = "CONFIRMED"
)

// UtxoView provides read access to ledger entries for verification.
type UtxoView interface {
	Entry(txHash string, index uint32) (LedgerEntry, bool)
}

// =============================================================================

// UtxoInput references the output of a previous transaction being spent.
type UtxoInput struct {
	PrevTxHash   string `json:"prevTxHash"`
	PrevOutIndex uint32 `json:"prevOutIndex"`
	UnlockScript string `json:"unlockScript"` // "<signature hex> <public key hex>" once signed.
	Sequence     uint32 `json:"sequence"`
}

// publicKeyPart returns the public key carried by the unlock script. The
// signature is never part of the transaction hash.
func (in UtxoInput) publicKeyPart() string {
	fields := strings.Fields(in.UnlockScript)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func (in UtxoInput) hashString() string {
	return fmt.Sprintf("%s:%d:%d:%s", in.PrevTxHash, in.PrevOutIndex, in.Sequence, in.publicKeyPart())
}

// UtxoOutput is value assigned to a recipient by a transaction.
type UtxoOutput struct {
	RecipientAddress string `json:"recipientAddress"`
	Amount           Amount `json:"amount"`
	LockScript       string `json:"lockScript"`
	OutputIndex      uint32 `json:"outputIndex"`
	Spent            bool   `json:"spent"`
}

// NewUtxoOutput constructs an output paying the amount to the address.
func NewUtxoOutput(address string, amount Amount, index uint32) (UtxoOutput, error) {
	lockScript, err := signature.LockScript(address)
	if err != nil {
		return UtxoOutput{}, err
	}

	out := UtxoOutput{
		RecipientAddress: address,
		Amount:           amount,
		LockScript:       lockScript,
		OutputIndex:      index,
	}

	return out, nil
}

// hashString excludes the spent flag so the hash survives spending.
func (out UtxoOutput) hashString() string {
	return fmt.Sprintf("%s:%s:%s:%d", out.RecipientAddress, out.Amount, out.LockScript, out.OutputIndex)
}

// =============================================================================

// Tx represents a transfer of value, or the reward for mining a block
// when Kind is TxCoinbase.
type Tx struct {
	Kind        TxKind        `json:"kind"`
	TxHash      string        `json:"txHash"`
	FromAddress string        `json:"fromAddress"`
	ToAddress   string        `json:"toAddress"`
	Version     uint32        `json:"version"`
	Timestamp   int64         `json:"timestamp"`        // Unix milliseconds.
	Height      uint64        `json:"height,omitempty"` // Coinbase only: height of the paying block.
	Inputs      []UtxoInput   `json:"inputs"`
	Outputs     []UtxoOutput  `json:"outputs"`
	Fee         Amount        `json:"fee"`
	Signature   hexutil.Bytes `json:"signature,omitempty"`
	Status      TxStatus      `json:"status"`
	ChainID     uint16        `json:"chainId"`
	Memo        string        `json:"memo"`
	PublicKey   string        `json:"publicKey,omitempty"`
}

// NewCoinbaseTx constructs the reward transaction for the block at the
// specified height. The returned transaction has its hash generated.
func NewCoinbaseTx(minerAddress string, height uint64, chainID uint16, timestamp int64) (Tx, error) {
	out, err := NewUtxoOutput(minerAddress, Subsidy, 0)
	if err != nil {
		return Tx{}, fmt.Errorf("coinbase output: %w", err)
	}

	tx := Tx{
		Kind:        TxCoinbase,
		FromAddress: signature.ZeroAddress,
		ToAddress:   minerAddress,
		Version:     TxVersion,
		Timestamp:   timestamp,
		Height:      height,
		Inputs:      []UtxoInput{},
		Outputs:     []UtxoOutput{out},
		Status:      StatusConfirmed,
		ChainID:     chainID,
		Memo:        fmt.Sprintf("Coinbase for block %d", height),
	}
	tx.GenerateHash()

	return tx, nil
}

// IsCoinbase reports whether this is a reward transaction.
func (tx Tx) IsCoinbase() bool {
	return tx.Kind == TxCoinbase
}

// ComputeHash derives the identity hash of the transaction from its
// current content.
func (tx Tx) ComputeHash() string {
	outputs := make([]string, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputs[i] = out.hashString()
	}

	if tx.IsCoinbase() {
		return signature.Hash256Hex(tx.FromAddress + tx.ToAddress +
			strconv.FormatInt(tx.Timestamp, 10) +
			strconv.FormatUint(tx.Height, 10) +
			strings.Join(outputs, ",") +
			tx.Memo)
	}

	inputs := make([]string, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = in.hashString()
	}

	return signature.Hash256Hex(strconv.FormatUint(uint64(tx.Version), 10) +
		tx.FromAddress + tx.ToAddress +
		strconv.FormatInt(tx.Timestamp, 10) +
		strconv.FormatUint(uint64(tx.ChainID), 10) +
		tx.Memo +
		strings.Join(inputs, ",") +
		strings.Join(outputs, ","))
}

// GenerateHash sets the transaction hash from the current content.
func (tx *Tx) GenerateHash() {
	tx.TxHash = tx.ComputeHash()
}

// Sign signs hash256(txHash) with the private key and completes every
// input's unlock script. The hash must already be generated.
func (tx *Tx) Sign(privateKey *ecdsa.PrivateKey) error {
	if tx.TxHash == "" {
		return ErrHashNotGenerated
	}

	publicKey := signature.PublicKeyHex(privateKey.PublicKey)
	if tx.PublicKey != publicKey {
		return fmt.Errorf("%w: signing key does not match declared public key", ErrBadSignature)
	}

	msg := signature.Hash256([]byte(tx.TxHash))
	sig, err := signature.Sign(msg[:], privateKey)
	if err != nil {
		return err
	}
	tx.Signature = sig

	sigHex := hexutil.Encode(sig)
	for i := range tx.Inputs {
		tx.Inputs[i].UnlockScript = sigHex + " " + publicKey
	}

	return nil
}

// Verify checks the transaction against the ledger view. Coinbase
// transactions are checked for their fixed shape instead of inputs.
func (tx Tx) Verify(view UtxoView) error {
	if tx.IsCoinbase() {
		return tx.verifyCoinbase()
	}

	if tx.TxHash == "" || tx.ComputeHash() != tx.TxHash {
		return ErrHashMismatch
	}

	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}

	if err := tx.checkOutputs(); err != nil {
		return err
	}

	msg := signature.Hash256([]byte(tx.TxHash))
	if !signature.Verify(msg[:], tx.Signature, tx.PublicKey) {
		return ErrBadSignature
	}

	owner, err := signature.PublicKeyHexToAddress(tx.PublicKey)
	if err != nil || owner != tx.FromAddress {
		return ErrNotOwner
	}

	if _, err := tx.CalculateFee(view); err != nil {
		return err
	}

	return nil
}

// CalculateFee returns the sum of the referenced ledger entries minus the
// sum of the outputs. Every input must reference an unspent entry owned by
// the sender.
func (tx Tx) CalculateFee(view UtxoView) (Amount, error) {
	var in Amount
	seen := make(map[Outpoint]struct{}, len(tx.Inputs))
	for _, input := range tx.Inputs {
		op := Outpoint{TxHash: input.PrevTxHash, Index: input.PrevOutIndex}
		if _, dup := seen[op]; dup {
			return Amount{}, fmt.Errorf("%w: %s referenced twice", ErrUtxoSpent, op)
		}
		seen[op] = struct{}{}

		entry, exists := view.Entry(input.PrevTxHash, input.PrevOutIndex)
		if !exists {
			return Amount{}, fmt.Errorf("%w: %s:%d", ErrUtxoNotFound, input.PrevTxHash, input.PrevOutIndex)
		}

		if entry.Spent {
			return Amount{}, fmt.Errorf("%w: %s:%d", ErrUtxoSpent, input.PrevTxHash, input.PrevOutIndex)
		}

		if entry.RecipientAddress != tx.FromAddress {
			return Amount{}, fmt.Errorf("%w: %s:%d", ErrNotOwner, input.PrevTxHash, input.PrevOutIndex)
		}

		var ok bool
		if in, ok = in.Add(entry.Amount); !ok {
			return Amount{}, ErrInvalidAmount
		}
	}

	out, ok := tx.OutputTotal()
	if !ok {
		return Amount{}, fmt.Errorf("%w: output total overflows", ErrInvalidAmount)
	}

	fee, ok := in.Sub(out)
	if !ok {
		return Amount{}, ErrNegativeFee
	}

	return fee, nil
}

// OutputTotal returns the sum of the output amounts. The bool is false
// when the sum overflows.
func (tx Tx) OutputTotal() (Amount, bool) {
	var total Amount
	for _, out := range tx.Outputs {
		var ok bool
		if total, ok = total.Add(out.Amount); !ok {
			return Amount{}, false
		}
	}
	return total, true
}

// checkOutputs requires at least one output, every output paying a non
// zero amount and output indexes following their position.
func (tx Tx) checkOutputs() error {
	if len(tx.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrInvalidOutput)
	}

	for i, out := range tx.Outputs {
		switch {
		case out.Amount.IsZero():
			return fmt.Errorf("%w: output %d pays nothing", ErrInvalidOutput, i)
		case out.OutputIndex != uint32(i):
			return fmt.Errorf("%w: output %d has index %d", ErrInvalidOutput, i, out.OutputIndex)
		}
	}

	return nil
}

// Size returns the length of the transaction's JSON encoding in bytes.
func (tx Tx) Size() int {
	data, err := json.Marshal(tx)
	if err != nil {
		return 0
	}
	return len(data)
}

func (tx Tx) verifyCoinbase() error {
	switch {
	case len(tx.Inputs) != 0:
		return fmt.Errorf("%w: has inputs", ErrInvalidCoinbase)
	case tx.FromAddress != signature.ZeroAddress:
		return fmt.Errorf("%w: from address %s", ErrInvalidCoinbase, tx.FromAddress)
	case len(tx.Outputs) != 1:
		return fmt.Errorf("%w: %d outputs", ErrInvalidCoinbase, len(tx.Outputs))
	case tx.Outputs[0].Amount.Cmp(Subsidy) != 0:
		return fmt.Errorf("%w: reward %s", ErrInvalidCoinbase, tx.Outputs[0].Amount)
	case tx.Outputs[0].OutputIndex != 0:
		return fmt.Errorf("%w: output index %d", ErrInvalidCoinbase, tx.Outputs[0].OutputIndex)
	case tx.ComputeHash() != tx.TxHash:
		return ErrHashMismatch
	}

	return nil
}
