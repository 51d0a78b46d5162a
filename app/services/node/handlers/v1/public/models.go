package public

import (
	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/HamaKinger/blockchain/foundation/validate"
)

// transfer is the request to move value between two addresses held by
// the node's wallet. Amounts are decimal coin strings.
type transfer struct {
	From   string `json:"fromAddress" validate:"required"`
	To     string `json:"toAddress" validate:"required"`
	Amount string `json:"amount" validate:"required,numeric"`
	Fee    string `json:"fee" validate:"required,numeric"`
}

// Validate checks the data in the model is considered clean.
func (t transfer) Validate() error {
	return validate.Check(t)
}

type connect struct {
	Address string `json:"address" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (c connect) Validate() error {
	return validate.Check(c)
}

type status struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type balance struct {
	Address string                 `json:"address"`
	Balance string                 `json:"balance"`
	Utxos   []database.LedgerEntry `json:"utxos"`
}
