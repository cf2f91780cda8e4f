// internal/app/system/normalize/normalize.go

// Package normalize standardizes user-supplied identifier fields before
// they reach the registry or the store.
package normalize

import "strings"

// Name trims surrounding whitespace from an organization, network, or
// username value. Case is preserved; case-insensitive uniqueness is handled
// by the stored folded field, not here.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role lowercases and trims a role value so role checks are predictable.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
