// This program manages the keys of a wallet and moves coins between
// addresses through a node.
package main

import "github.com/HamaKinger/blockchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
