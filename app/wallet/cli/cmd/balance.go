package cmd

import (
	"fmt"
	"log"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type balance struct {
	Address string                 `json:"address"`
	Balance string                 `json:"balance"`
	Utxos   []database.LedgerEntry `json:"utxos"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print your balance.",
	Args:  cobra.MaximumNArgs(1),
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	addresses := args
	if len(addresses) == 0 {
		ks, err := openWallet()
		if err != nil {
			log.Fatal(err)
		}
		addresses = ks.Addresses()
	}

	for _, address := range addresses {
		bal, err := queryBalance(address)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("Address: %s  Balance: %s  Utxos: %d\n", bal.Address, bal.Balance, len(bal.Utxos))
	}
}

func queryBalance(address string) (balance, error) {
	var bal balance
	if err := getJSON("/v1/balance/"+address, &bal); err != nil {
		return balance{}, err
	}

	return bal, nil
}
