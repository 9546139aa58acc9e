package sigproc

import "sort"

// FindPeaks returns indices of local maxima, in ascending order. A sample is
// a candidate when it is strictly greater than its left neighbor and at least
// its right neighbor, and not below minHeight. When two candidates fall
// within minDistance samples of each other the higher one wins.
func FindPeaks(signal []float64, minHeight float64, minDistance int) []int {
	var candidates []int
	for i := 1; i < len(signal)-1; i++ {
		if signal[i] > signal[i-1] && signal[i] >= signal[i+1] && signal[i] >= minHeight {
			candidates = append(candidates, i)
		}
	}
	if minDistance <= 1 || len(candidates) < 2 {
		return candidates
	}

	// Greedy selection by height, as with scipy's distance pruning.
	byHeight := append([]int(nil), candidates...)
	sort.Slice(byHeight, func(a, b int) bool {
		return signal[byHeight[a]] > signal[byHeight[b]]
	})

	taken := make([]int, 0, len(byHeight))
	for _, idx := range byHeight {
		ok := true
		for _, kept := range taken {
			if abs(idx-kept) < minDistance {
				ok = false
				break
			}
		}
		if ok {
			taken = append(taken, idx)
		}
	}
	sort.Ints(taken)
	return taken
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
