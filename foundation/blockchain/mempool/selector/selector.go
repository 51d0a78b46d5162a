// Package selector provides different transaction ranking algorithms.
package selector

import (
	"fmt"
	"sort"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyPriority = "priority"
	StrategyFeeRate  = "feerate"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyPriority: prioritySelect,
	StrategyFeeRate:  feeRateSelect,
}

// Func defines a function that takes the pending transactions and returns
// them ordered from the most to the least desirable for the next block.
type Func func(transactions []database.Tx, now time.Time) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// scored pairs a transaction with its ranking value.
type scored struct {
	tx    database.Tx
	score float64
}

// byScore provides sorting support by score in descending order. Ties go
// to the older transaction, then to the lower hash.
type byScore []scored

// Len returns the number of transactions in the list.
func (bs byScore) Len() int {
	return len(bs)
}

// Less orders the list by score in descending order.
func (bs byScore) Less(i, j int) bool {
	if bs[i].score != bs[j].score {
		return bs[i].score > bs[j].score
	}
	if bs[i].tx.Timestamp != bs[j].tx.Timestamp {
		return bs[i].tx.Timestamp < bs[j].tx.Timestamp
	}
	return bs[i].tx.TxHash < bs[j].tx.TxHash
}

// Swap moves transactions in the order of the score value.
func (bs byScore) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

// rank orders the transactions using the score function.
func rank(txs []database.Tx, score func(database.Tx) float64) []database.Tx {
	list := make(byScore, len(txs))
	for i, tx := range txs {
		list[i] = scored{tx: tx, score: score(tx)}
	}

	sort.Sort(list)

	final := make([]database.Tx, len(list))
	for i, s := range list {
		final[i] = s.tx
	}
	return final
}
