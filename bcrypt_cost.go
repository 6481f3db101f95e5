//go:build !race

package auth

// DefaultBcryptCost is the work factor used when none is configured
const DefaultBcryptCost = 12

func passwordHashCost() int {
	return DefaultBcryptCost
}
