package service

import "strings"

// CanonicalizeEmail normalizes an email address for uniqueness checks and
// lookups. Addresses are compared case-insensitively; no provider-specific
// rewriting is applied.
func CanonicalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
