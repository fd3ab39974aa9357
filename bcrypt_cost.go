//go:build !race

package starter

func passwordHashCost() int {
	// Chosen for acceptable login latency on the smallest deploy target.
	return 12
}
