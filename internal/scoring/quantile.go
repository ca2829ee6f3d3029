package scoring

import "sort"

// Buckets is the number of equal-count partitions (quintiles).
const Buckets = 5

// StableRank assigns each position a unique 1-based rank ordered by less.
// Ties keep their input order (first seen gets the lower rank).
func StableRank(n int, less func(i, j int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return less(order[a], order[b])
	})

	ranks := make([]int, n)
	for pos, i := range order {
		ranks[i] = pos + 1
	}
	return ranks
}

// Bucket maps a 1-based rank among n into 1..Buckets.
//
// Cut points are the quantiles of the ranks 1..n at k/5 with linear interpolation,
// q_k = 1 + k*(n-1)/5, bins right-closed and the first bin including rank 1.
// Rank r therefore falls into the smallest k with 5*(r-1) <= k*(n-1), evaluated in
// integers so boundaries never drift.
func Bucket(rank, n int) int {
	if n <= 1 {
		return 1
	}
	for k := 1; k < Buckets; k++ {
		if Buckets*(rank-1) <= k*(n-1) {
			return k
		}
	}
	return Buckets
}

// QuintileScores ranks n items by less and returns their bucket (1..5) per position.
func QuintileScores(n int, less func(i, j int) bool) []int {
	ranks := StableRank(n, less)
	scores := make([]int, n)
	for i, r := range ranks {
		scores[i] = Bucket(r, n)
	}
	return scores
}
