package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the addresses held by the wallet",
	Run:   addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func addressRun(cmd *cobra.Command, args []string) {
	ks, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	for _, address := range ks.Addresses() {
		fmt.Println(address)
	}
}
