// internal/core/validation.go
package core

import (
	"regexp"
	"strings"
)

// Regular expression for valid table/column names (alphanumeric + underscore)
var nameValidationRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// IsValidIdentifier checks if a string is a valid identifier (e.g., table_name, column_name)
// Applies basic format and length checks.
func IsValidIdentifier(name string) bool {
	return nameValidationRegex.MatchString(name) && len(name) > 0 && len(name) <= 64
}

// ColumnSet is the allow-list used before interpolating any column name into
// SQL text: only names previously returned by a catalog query are accepted.
// Lookups are case-insensitive.
type ColumnSet map[string]string

// NewColumnSet builds an allow-list from catalog column names.
func NewColumnSet(names []string) ColumnSet {
	set := make(ColumnSet, len(names))
	for _, name := range names {
		set[strings.ToLower(name)] = name
	}
	return set
}

// Allows reports whether name is a well-formed identifier present in the
// catalog snapshot, returning the catalog spelling.
func (s ColumnSet) Allows(name string) (string, bool) {
	if !IsValidIdentifier(name) {
		return "", false
	}
	catalogName, ok := s[strings.ToLower(name)]
	return catalogName, ok
}
