// internal/storage/data_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Specific errors for dynamic data operations
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrTableNotFound  = errors.New("table not found")
)

// DBTX abstracts *sql.DB and *sql.Tx so dynamic writes can join a caller
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// All table and column names reaching this file must already be validated
// against the live catalog by the caller; data values always travel as bound
// parameters.

// ListRows retrieves all rows of a pre-validated table or view as column-value maps.
func ListRows(ctx context.Context, db *sql.DB, name string) ([]map[string]any, error) {
	selectSQL := fmt.Sprintf("SELECT * FROM %s;", name)
	rows, err := db.QueryContext(ctx, selectSQL)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("database error listing rows of %s: %w", name, err)
	}
	defer rows.Close()

	return scanRowMaps(rows, -1)
}

// GetRowByPK retrieves one row of a pre-validated table/view by primary-key value.
func GetRowByPK(ctx context.Context, db *sql.DB, name, pkColumn string, pkValue any) (map[string]any, error) {
	selectSQL := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1;", name, pkColumn)
	rows, err := db.QueryContext(ctx, selectSQL, pkValue)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("database error getting row of %s: %w", name, err)
	}
	defer rows.Close()

	results, err := scanRowMaps(rows, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrRecordNotFound
	}
	return results[0], nil
}

// InsertRow executes a parameterized insert and returns the generated rowid
// (meaningful only for identity keys).
func InsertRow(ctx context.Context, db DBTX, table string, columns []string, values []any) (int64, error) {
	var insertSQL string
	if len(columns) == 0 {
		// Identity key with nothing but dropdown answers submitted.
		insertSQL = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
	}

	result, err := db.ExecContext(ctx, insertSQL, values...)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, ErrTableNotFound
		}
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, ErrConstraintViolation
		}
		customLog.Warnf("Storage: Failed INSERT into '%s': %v", table, err)
		return 0, fmt.Errorf("database error during insert: %w", err)
	}
	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve ID after insert: %w", err)
	}
	return lastID, nil
}

// UpdateRowByPK executes a parameterized update of the listed columns, keyed
// by primary-key value.
func UpdateRowByPK(ctx context.Context, db DBTX, table string, columns []string, values []any, pkColumn string, pkValue any) error {
	setClauses := make([]string, len(columns))
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%s = ?", col)
	}
	updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(setClauses, ", "), pkColumn)
	args := append(append([]any{}, values...), pkValue)

	result, err := db.ExecContext(ctx, updateSQL, args...)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return ErrTableNotFound
		}
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConstraintViolation
		}
		customLog.Warnf("Storage: Failed UPDATE of '%s': %v", table, err)
		return fmt.Errorf("database error during update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming update: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ExecReadOnlyQuery runs an already-screened SELECT and returns the total row
// count plus at most sampleLimit rows.
func ExecReadOnlyQuery(ctx context.Context, db *sql.DB, query string, sampleLimit int) (int, []map[string]any, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, nil, fmt.Errorf("failed processing results: %w", err)
	}
	numColumns := len(columns)

	count := 0
	samples := make([]map[string]any, 0, sampleLimit)
	for rows.Next() {
		count++
		if count > sampleLimit {
			continue // Keep counting, stop materializing
		}
		scanArgs := make([]any, numColumns)
		values := make([]any, numColumns)
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return 0, nil, fmt.Errorf("failed reading row data: %w", err)
		}
		samples = append(samples, rowToMap(columns, values))
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	return count, samples, nil
}

// scanRowMaps materializes rows as column-value maps, converting byte slices
// to strings. limit < 0 means no limit.
func scanRowMaps(rows *sql.Rows, limit int) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed processing results: %w", err)
	}
	numColumns := len(columns)

	results := make([]map[string]any, 0)
	for rows.Next() {
		if limit >= 0 && len(results) >= limit {
			break
		}
		scanArgs := make([]any, numColumns)
		values := make([]any, numColumns)
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed reading row data: %w", err)
		}
		results = append(results, rowToMap(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed processing all rows: %w", err)
	}
	return results, nil
}

func rowToMap(columns []string, values []any) map[string]any {
	rowData := make(map[string]any, len(columns))
	for i, colName := range columns {
		rawValue := values[i]
		if byteSlice, ok := rawValue.([]byte); ok {
			rowData[colName] = string(byteSlice)
		} else {
			rowData[colName] = rawValue
		}
	}
	return rowData
}
