//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor used when none is configured
const DefaultBcryptCost = bcrypt.DefaultCost

func passwordHashCost() int {
	// race builds keep the lower bcrypt default so test suites fit strict timeouts
	return DefaultBcryptCost
}
