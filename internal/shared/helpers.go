// Package shared provides common utility functions used across multiple
// packages in the apt-mirror codebase.
package shared

import "fmt"

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// SizeMismatchError creates a formatted error for a downloaded file
// whose byte count does not match the index entry.
func SizeMismatchError(want, got int64) error {
	return fmt.Errorf("size mismatch: want %d, got %d", want, got)
}

// ChecksumMismatchError creates a formatted error for a downloaded file
// whose SHA256 digest does not match the index entry.
func ChecksumMismatchError(want, got string) error {
	return fmt.Errorf("sha256 mismatch: want %s, got %s", want, got)
}
