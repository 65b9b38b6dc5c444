// internal/core/validation_test.go
package core

import (
	"strings"
	"testing"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "customer", true, ""},
		{"valid with numbers", "table_123", true, ""},
		{"valid uppercase", "CUSTOMER", true, ""},
		{"valid view prefix", "V_ORDER", true, ""},
		{"valid underscore start", "_table", true, ""}, // SQLite allows this
		{"valid underscore end", "table_", true, ""},
		{"valid short", "a", true, ""},
		{"valid long (64 chars)", strings.Repeat("a", 64), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid space", "my table", false, "contains space"},
		{"invalid hyphen", "my-table", false, "contains hyphen"},
		{"invalid special char", "table$", false, "contains dollar sign"},
		{"invalid semicolon", "customer;drop", false, "contains semicolon"},
		{"invalid path separator", "table/name", false, "contains path separator"},
		{"invalid too long", strings.Repeat("a", 65), false, "exceeds 64 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidIdentifier(tc.input)
			if got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

func TestColumnSetAllows(t *testing.T) {
	set := NewColumnSet([]string{"CustomerID", "Name", "Email"})

	testCases := []struct {
		name          string
		input         string
		wantCanonical string
		wantOk        bool
	}{
		{"exact match", "Name", "Name", true},
		{"case insensitive match", "name", "Name", true},
		{"upper case match", "CUSTOMERID", "CustomerID", true},
		{"unknown column", "Phone", "", false},
		{"empty input", "", "", false},
		{"injection attempt", "Name; DROP TABLE x", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			canonical, ok := set.Allows(tc.input)
			if ok != tc.wantOk {
				t.Errorf("Allows(%q): ok = %v; want %v", tc.input, ok, tc.wantOk)
			}
			if canonical != tc.wantCanonical {
				t.Errorf("Allows(%q): canonical = %q; want %q", tc.input, canonical, tc.wantCanonical)
			}
		})
	}
}
