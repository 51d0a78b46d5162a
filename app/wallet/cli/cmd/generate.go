package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	ks, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	address, err := ks.Generate()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(address)
}
