package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/blockchain/genesis"
	"github.com/HamaKinger/blockchain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount string
	fee    string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transfer locally and submit it to the node",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Address paying the transfer, held by the wallet.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address receiving the transfer.")
	sendCmd.Flags().StringVarP(&amount, "amount", "a", "", "Coins to send.")
	sendCmd.Flags().StringVarP(&fee, "fee", "c", "0", "Coins paid to the miner.")
	sendCmd.MarkFlagRequired("from")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) {
	ks, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	privateKey, err := ks.Lookup(from)
	if err != nil {
		log.Fatal(err)
	}

	value, err := database.ParseCoins(amount)
	if err != nil {
		log.Fatal(err)
	}

	tip, err := database.ParseCoins(fee)
	if err != nil {
		log.Fatal(err)
	}

	var gen genesis.Genesis
	if err := getJSON("/v1/genesis", &gen); err != nil {
		log.Fatal(err)
	}

	bal, err := queryBalance(from)
	if err != nil {
		log.Fatal(err)
	}

	tx, err := buildTransfer(privateKey, bal.Utxos, gen.ChainID, to, value, tip)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if err := decodeResponse(resp, nil); err != nil {
		log.Fatal(err)
	}

	fmt.Println(tx.TxHash)
}

// buildTransfer spends the outputs in order until they cover the amount
// and fee, paying any change back to the sender.
func buildTransfer(privateKey *ecdsa.PrivateKey, utxos []database.LedgerEntry, chainID uint16, receiverAddress string, value database.Amount, tip database.Amount) (database.Tx, error) {
	if value.IsZero() {
		return database.Tx{}, database.ErrInvalidAmount
	}

	needed, ok := value.Add(tip)
	if !ok {
		return database.Tx{}, database.ErrInvalidAmount
	}

	sender := signature.PublicKeyToAddress(privateKey.PublicKey)
	publicKey := signature.PublicKeyHex(privateKey.PublicKey)

	var total database.Amount
	var inputs []database.UtxoInput
	for _, entry := range utxos {
		if total.Cmp(needed) >= 0 {
			break
		}
		if entry.Spent {
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
		return database.Tx{}, errors.New("insufficient balance")
	}

	receiver, err := database.NewUtxoOutput(receiverAddress, value, 0)
	if err != nil {
		return database.Tx{}, err
	}
	outputs := []database.UtxoOutput{receiver}

	if change, _ := total.Sub(needed); !change.IsZero() {
		out, err := database.NewUtxoOutput(sender, change, 1)
		if err != nil {
			return database.Tx{}, err
		}
		outputs = append(outputs, out)
	}

	tx := database.Tx{
		Kind:        database.TxStandard,
		FromAddress: sender,
		ToAddress:   receiverAddress,
		Version:     database.TxVersion,
		Timestamp:   time.Now().UnixMilli(),
		Inputs:      inputs,
		Outputs:     outputs,
		Fee:         tip,
		Status:      database.StatusPending,
		ChainID:     chainID,
		Memo:        database.TransferMemo,
		PublicKey:   publicKey,
	}
	tx.GenerateHash()

	if err := tx.Sign(privateKey); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}
