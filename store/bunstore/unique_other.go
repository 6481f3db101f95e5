//go:build !cgo && (cgosqlite || !((darwin && amd64) || (darwin && arm64) || (linux && 386) || (linux && amd64) || (linux && arm) || (linux && arm64) || (windows && amd64)))

package bunstore

// sqliteshim registers no working driver here
func isUniqueViolation(error) bool {
	return false
}
