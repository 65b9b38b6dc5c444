// internal/core/types.go
package core

import (
	"strings"

	"github.com/formbridge/formbridge-backend/internal/domain"
)

// Default display width assigned when a field is auto-provisioned.
const DefaultDisplayWidth = 100

// controlTypesByDataType restricts which control types are offered for a given
// declared SQL type. Advisory for the editing UI, authoritative for the
// control-type freeze check. Constructed once, never mutated at runtime.
var controlTypesByDataType = map[string][]domain.ControlType{
	"DATE":          {domain.ControlTypeDate},
	"DATETIME":      {domain.ControlTypeDate},
	"DATETIME2":     {domain.ControlTypeDate},
	"SMALLDATETIME": {domain.ControlTypeDate},
	"TIMESTAMP":     {domain.ControlTypeDate},
	"BIT":           {domain.ControlTypeCheckbox},
	"BOOLEAN":       {domain.ControlTypeCheckbox},
	"INT":           {domain.ControlTypeNumber, domain.ControlTypeText, domain.ControlTypeDropdown},
	"INTEGER":       {domain.ControlTypeNumber, domain.ControlTypeText, domain.ControlTypeDropdown},
	"NVARCHAR":      {domain.ControlTypeNumber, domain.ControlTypeText, domain.ControlTypeDropdown},
	"VARCHAR":       {domain.ControlTypeNumber, domain.ControlTypeText, domain.ControlTypeDropdown},
}

var defaultControlTypes = []domain.ControlType{domain.ControlTypeText, domain.ControlTypeTextarea}

// ruleKindsByControlType is the fixed whitelist of legal validation-rule kinds
// per control type.
var ruleKindsByControlType = map[domain.ControlType][]domain.RuleKind{
	domain.ControlTypeText:     {domain.RuleRequired, domain.RuleRegex, domain.RuleEmail, domain.RuleNumber},
	domain.ControlTypeTextarea: {domain.RuleRequired, domain.RuleRegex, domain.RuleEmail, domain.RuleNumber},
	domain.ControlTypeNumber:   {domain.RuleRequired, domain.RuleMin, domain.RuleMax, domain.RuleNumber},
	domain.ControlTypeDate:     {domain.RuleRequired, domain.RuleMin, domain.RuleMax},
	domain.ControlTypeCheckbox: {domain.RuleRequired},
	domain.ControlTypeDropdown: {domain.RuleRequired},
}

// NormalizeDeclaredType strips any length/precision suffix and upper-cases the
// declared SQL type name, e.g. "nvarchar(50)" -> "NVARCHAR".
func NormalizeDeclaredType(declared string) string {
	normalized := strings.ToUpper(strings.TrimSpace(declared))
	if idx := strings.Index(normalized, "("); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}

// ControlTypesForDataType returns the control types offered for a declared SQL type.
func ControlTypesForDataType(declared string) []domain.ControlType {
	if types, ok := controlTypesByDataType[NormalizeDeclaredType(declared)]; ok {
		return types
	}
	return defaultControlTypes
}

// RuleKindsForControlType returns the legal validation-rule kinds for a control type.
// An unset control type has no legal kinds.
func RuleKindsForControlType(controlType domain.ControlType) []domain.RuleKind {
	return ruleKindsByControlType[controlType]
}

// IsRuleKindAllowed reports whether kind is legal for the given control type.
func IsRuleKindAllowed(controlType domain.ControlType, kind domain.RuleKind) bool {
	for _, allowed := range ruleKindsByControlType[controlType] {
		if allowed == kind {
			return true
		}
	}
	return false
}

// IsKnownControlType reports whether the value is one of the supported control types.
func IsKnownControlType(controlType domain.ControlType) bool {
	switch controlType {
	case domain.ControlTypeText, domain.ControlTypeNumber, domain.ControlTypeDate,
		domain.ControlTypeCheckbox, domain.ControlTypeTextarea, domain.ControlTypeDropdown:
		return true
	}
	return false
}

// ParseSchemaQueryType maps a request string to a SchemaQueryType, defaulting to All.
func ParseSchemaQueryType(raw string) domain.SchemaQueryType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(domain.QueryOnlyTable), "TABLE":
		return domain.QueryOnlyTable
	case string(domain.QueryOnlyView), "VIEW":
		return domain.QueryOnlyView
	default:
		return domain.QueryAll
	}
}
