// internal/core/types_test.go
package core

import (
	"testing"

	"github.com/formbridge/formbridge-backend/internal/domain"
)

func TestNormalizeDeclaredType(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"lower case", "nvarchar", "NVARCHAR"},
		{"with length", "nvarchar(50)", "NVARCHAR"},
		{"with precision", "decimal(18, 2)", "DECIMAL"},
		{"already normalized", "INTEGER", "INTEGER"},
		{"padded", "  int  ", "INT"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeDeclaredType(tc.input); got != tc.want {
				t.Errorf("NormalizeDeclaredType(%q) = %q; want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestControlTypesForDataType(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []domain.ControlType
	}{
		{"date family", "datetime", []domain.ControlType{domain.ControlTypeDate}},
		{"bit", "bit", []domain.ControlType{domain.ControlTypeCheckbox}},
		{"int with choices", "int", []domain.ControlType{domain.ControlTypeNumber, domain.ControlTypeText, domain.ControlTypeDropdown}},
		{"nvarchar with length", "nvarchar(100)", []domain.ControlType{domain.ControlTypeNumber, domain.ControlTypeText, domain.ControlTypeDropdown}},
		{"unknown falls back", "geography", []domain.ControlType{domain.ControlTypeText, domain.ControlTypeTextarea}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ControlTypesForDataType(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("ControlTypesForDataType(%q) = %v; want %v", tc.input, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("ControlTypesForDataType(%q)[%d] = %v; want %v", tc.input, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestIsRuleKindAllowed(t *testing.T) {
	testCases := []struct {
		name        string
		controlType domain.ControlType
		kind        domain.RuleKind
		want        bool
	}{
		{"required on text", domain.ControlTypeText, domain.RuleRequired, true},
		{"email on text", domain.ControlTypeText, domain.RuleEmail, true},
		{"min on text rejected", domain.ControlTypeText, domain.RuleMin, false},
		{"min on number", domain.ControlTypeNumber, domain.RuleMin, true},
		{"regex on number rejected", domain.ControlTypeNumber, domain.RuleRegex, false},
		{"required on dropdown", domain.ControlTypeDropdown, domain.RuleRequired, true},
		{"regex on dropdown rejected", domain.ControlTypeDropdown, domain.RuleRegex, false},
		{"anything on unset rejected", domain.ControlTypeUnset, domain.RuleRequired, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRuleKindAllowed(tc.controlType, tc.kind); got != tc.want {
				t.Errorf("IsRuleKindAllowed(%v, %v) = %v; want %v", tc.controlType, tc.kind, got, tc.want)
			}
		})
	}
}

func TestParseSchemaQueryType(t *testing.T) {
	testCases := []struct {
		input string
		want  domain.SchemaQueryType
	}{
		{"ONLY_TABLE", domain.QueryOnlyTable},
		{"table", domain.QueryOnlyTable},
		{"ONLY_VIEW", domain.QueryOnlyView},
		{"view", domain.QueryOnlyView},
		{"ALL", domain.QueryAll},
		{"", domain.QueryAll},
		{"garbage", domain.QueryAll},
	}

	for _, tc := range testCases {
		if got := ParseSchemaQueryType(tc.input); got != tc.want {
			t.Errorf("ParseSchemaQueryType(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}
}
