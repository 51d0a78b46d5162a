package database

import "time"

// AdjustDifficulty returns the difficulty for the next block. Once the chain
// holds more than window blocks, the average spacing of the last window
// intervals is compared to the target: faster than 80% raises the
// difficulty by one, slower than 120% lowers it by one, never below one.
func AdjustDifficulty(chain []Block, current uint, window int, target time.Duration) uint {
	if window <= 0 || len(chain) < window+1 {
		return current
	}

	last := chain[len(chain)-1]
	first := chain[len(chain)-1-window]
	average := float64(last.Timestamp-first.Timestamp) / float64(window)
	targetMS := float64(target.Milliseconds())

	switch {
	case average < targetMS*0.8:
		return current + 1
	case average > targetMS*1.2 && current > 1:
		return current - 1
	}

	return current
}
