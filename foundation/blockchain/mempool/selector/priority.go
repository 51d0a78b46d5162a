package selector

import (
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
)

// maxAgeDays caps how much waiting in the pool can boost a transaction.
const maxAgeDays = 7

// FeeRate returns the fee paid per byte of the transaction's encoding.
func FeeRate(tx database.Tx) float64 {
	size := tx.Size()
	if size == 0 {
		return 0
	}
	return tx.Fee.Float64() / float64(size)
}

// Priority returns feeRate × (1 + min(ageInDays, 7)). Age counts whole days
// since the transaction timestamp.
func Priority(tx database.Tx, now time.Time) float64 {
	age := now.Sub(time.UnixMilli(tx.Timestamp))

	days := int64(age / (24 * time.Hour))
	switch {
	case days < 0:
		days = 0
	case days > maxAgeDays:
		days = maxAgeDays
	}

	return FeeRate(tx) * float64(1+days)
}

// prioritySelect ranks by fee rate boosted by time spent waiting.
var prioritySelect = func(txs []database.Tx, now time.Time) []database.Tx {
	return rank(txs, func(tx database.Tx) float64 {
		return Priority(tx, now)
	})
}

// feeRateSelect ranks by fee rate alone.
var feeRateSelect = func(txs []database.Tx, now time.Time) []database.Tx {
	return rank(txs, FeeRate)
}
