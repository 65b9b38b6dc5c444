// internal/core/convert.go
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedPKType = errors.New("unsupported primary key type")
	ErrInvalidPKValue    = errors.New("invalid primary key value")
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// ConvertDeclaredValue converts a textual representation to the richest native
// type matching the declared SQL type. Unparseable input yields nil: callers
// must treat nil as "value rejected", not "value absent".
func ConvertDeclaredValue(declaredType, text string) any {
	switch NormalizeDeclaredType(declaredType) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil
		}
		return v
	case "DECIMAL", "NUMERIC", "MONEY", "REAL", "FLOAT":
		v, err := decimal.NewFromString(strings.TrimSpace(text))
		if err != nil {
			return nil
		}
		return v
	case "BIT", "BOOLEAN":
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "1", "true":
			return true
		case "0", "false":
			return false
		}
		return nil
	case "DATE", "DATETIME", "DATETIME2", "SMALLDATETIME", "TIMESTAMP":
		trimmed := strings.TrimSpace(text)
		for _, layout := range dateLayouts {
			if v, err := time.Parse(layout, trimmed); err == nil {
				return v
			}
		}
		return nil
	default:
		return text
	}
}

// ConvertPKValue converts a row identifier string to the native type of the
// primary key's declared SQL type. Declared types outside the supported set
// yield ErrUnsupportedPKType.
func ConvertPKValue(declaredType, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	switch NormalizeDeclaredType(declaredType) {
	case "UNIQUEIDENTIFIER":
		id, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a UUID", ErrInvalidPKValue, raw)
		}
		return id.String(), nil
	case "DECIMAL", "NUMERIC":
		v, err := decimal.NewFromString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not numeric", ErrInvalidPKValue, raw)
		}
		return v, nil
	case "BIGINT":
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidPKValue, raw)
		}
		return v, nil
	case "INT", "INTEGER":
		v, err := strconv.ParseInt(trimmed, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidPKValue, raw)
		}
		return int32(v), nil
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT":
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPKType, declaredType)
	}
}

// GeneratePKValue produces a client-generated primary key for a non-identity
// column. Only uniqueidentifier keys get a meaningful value; the numeric and
// string cases are representational placeholders.
func GeneratePKValue(declaredType string) any {
	switch NormalizeDeclaredType(declaredType) {
	case "UNIQUEIDENTIFIER":
		return uuid.New().String()
	case "DECIMAL", "NUMERIC", "BIGINT", "INT", "INTEGER", "SMALLINT", "TINYINT":
		return int64(0)
	default:
		return ""
	}
}
