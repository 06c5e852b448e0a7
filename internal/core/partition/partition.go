// Package partition maps invoice IDs onto a fixed number of apply lanes.
package partition

import "hash/fnv"

// For returns the lane in [0, n) for key. The same key always lands on the same
// lane, which keeps events for one invoice in arrival order. n <= 1 yields lane 0.
func For(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
