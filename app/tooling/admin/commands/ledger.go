package commands

import (
	"fmt"
	"sort"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// Ledger replays the chain and prints the balance of every address, or
// only the specified one.
func Ledger(db *database.Database, onlyAddress string) error {
	ledger, err := replay(db.All())
	if err != nil {
		return err
	}

	var addresses []string
	if onlyAddress != "" {
		addresses = []string{onlyAddress}
	} else {
		seen := make(map[string]struct{})
		for _, entry := range ledger.Entries() {
			if _, exists := seen[entry.RecipientAddress]; !exists {
				seen[entry.RecipientAddress] = struct{}{}
				addresses = append(addresses, entry.RecipientAddress)
			}
		}
		sort.Strings(addresses)
	}

	for _, address := range addresses {
		balance, err := ledger.BalanceOf(address)
		if err != nil {
			return fmt.Errorf("address %s: %w", address, err)
		}

		fmt.Printf("Address: %s  Balance: %s  Utxos: %d\n",
			address, balance.Coins(), len(ledger.UtxosOf(address)))
	}

	return nil
}

// Rebuild replays the chain and overwrites the stored ledger snapshot.
func Rebuild(db *database.Database, store Storage) error {
	ledger, err := replay(db.All())
	if err != nil {
		return err
	}

	if err := store.SaveLedger(ledger.Entries()); err != nil {
		return err
	}

	fmt.Printf("Ledger rebuilt with %d entries\n", ledger.Len())

	return nil
}
