package search

import "math"

// Paginate splits limit evenly across n collections.
// Every collection is asked for perCollection results starting at offset.
// The offset saturates so offset+perCollection never overflows.
func Paginate(limit, page, n int) (perCollection, offset int) {
	if n < 1 {
		n = 1
	}
	perCollection = max(1, limit/n)
	skipped := max(page, 1) - 1
	if skipped > (math.MaxInt-perCollection)/perCollection {
		return perCollection, math.MaxInt - perCollection
	}
	return perCollection, skipped * perCollection
}
