// internal/storage/dropdown_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/formbridge/formbridge-backend/internal/domain"
)

// Specific errors for dropdown operations
var (
	ErrDropdownNotFound = errors.New("dropdown binding not found")
	ErrOptionNotFound   = errors.New("dropdown option not found")
)

// EnsureDropdown inserts a binding row for the field only if none exists yet.
// Idempotent: a second call is a no-op.
func EnsureDropdown(ctx context.Context, db *sql.DB, id, fieldConfigID string, isUseSQL bool, sqlText string) error {
	insertSQL := `INSERT INTO dropdowns (id, field_config_id, is_use_sql, sql_text) VALUES (?, ?, ?, ?)
		ON CONFLICT(field_config_id) DO NOTHING`
	if _, err := db.ExecContext(ctx, insertSQL, id, fieldConfigID, isUseSQL, sqlText); err != nil {
		return fmt.Errorf("database error ensuring dropdown binding: %w", err)
	}
	return nil
}

// FindDropdownByFieldID retrieves the binding of a field with its options
// attached. A field without a binding yields an empty binding object, not an
// error, so the designer UI can render before configuration happens.
func FindDropdownByFieldID(ctx context.Context, db *sql.DB, fieldConfigID string) (*domain.Dropdown, error) {
	lookupSQL := `SELECT id, field_config_id, is_use_sql, sql_text FROM dropdowns WHERE field_config_id = ? LIMIT 1`
	var d domain.Dropdown
	err := db.QueryRowContext(ctx, lookupSQL, fieldConfigID).Scan(&d.ID, &d.FieldConfigID, &d.IsUseSQL, &d.SQLText)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.Dropdown{FieldConfigID: fieldConfigID, Options: []domain.DropdownOption{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error finding dropdown binding: %w", err)
	}

	options, err := ListDropdownOptions(ctx, db, d.ID)
	if err != nil {
		return nil, err
	}
	d.Options = options
	return &d, nil
}

// SetDropdownSQL upserts the SQL text of a field's binding and flips it into
// SQL mode. newID is used only when no binding exists yet.
func SetDropdownSQL(ctx context.Context, db *sql.DB, newID, fieldConfigID, sqlText string) error {
	upsertSQL := `INSERT INTO dropdowns (id, field_config_id, is_use_sql, sql_text) VALUES (?, ?, 1, ?)
		ON CONFLICT(field_config_id) DO UPDATE SET sql_text = excluded.sql_text, is_use_sql = 1`
	if _, err := db.ExecContext(ctx, upsertSQL, newID, fieldConfigID, sqlText); err != nil {
		return fmt.Errorf("database error setting dropdown SQL source: %w", err)
	}
	return nil
}

// SetDropdownMode toggles between fixed-list and SQL-sourced options without
// discarding stored options.
func SetDropdownMode(ctx context.Context, db *sql.DB, dropdownID string, isUseSQL bool) error {
	result, err := db.ExecContext(ctx, `UPDATE dropdowns SET is_use_sql = ? WHERE id = ?`, isUseSQL, dropdownID)
	if err != nil {
		return fmt.Errorf("database error setting dropdown mode: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming dropdown mode update: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDropdownNotFound
	}
	return nil
}

// ListDropdownOptions returns the options of one binding.
func ListDropdownOptions(ctx context.Context, db *sql.DB, dropdownID string) ([]domain.DropdownOption, error) {
	listSQL := `SELECT id, dropdown_id, option_text, option_table FROM dropdown_options WHERE dropdown_id = ? ORDER BY option_text`
	rows, err := db.QueryContext(ctx, listSQL, dropdownID)
	if err != nil {
		return nil, fmt.Errorf("database error listing dropdown options: %w", err)
	}
	defer rows.Close()

	options := make([]domain.DropdownOption, 0)
	for rows.Next() {
		var opt domain.DropdownOption
		if err := rows.Scan(&opt.ID, &opt.DropdownID, &opt.Text, &opt.OptionTable); err != nil {
			return nil, fmt.Errorf("failed reading dropdown option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed processing dropdown options: %w", err)
	}
	return options, nil
}

// SaveDropdownOption upserts one option by id.
func SaveDropdownOption(ctx context.Context, db *sql.DB, opt *domain.DropdownOption) error {
	upsertSQL := `INSERT INTO dropdown_options (id, dropdown_id, option_text, option_table) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET option_text = excluded.option_text, option_table = excluded.option_table`
	if _, err := db.ExecContext(ctx, upsertSQL, opt.ID, opt.DropdownID, opt.Text, opt.OptionTable); err != nil {
		return fmt.Errorf("database error saving dropdown option: %w", err)
	}
	return nil
}

// DeleteDropdownOption removes one option.
func DeleteDropdownOption(ctx context.Context, db *sql.DB, optionID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM dropdown_options WHERE id = ?`, optionID)
	if err != nil {
		return fmt.Errorf("database error deleting dropdown option: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming dropdown option delete: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOptionNotFound
	}
	return nil
}

// DeleteSQLSourcedOptions drops every option of the binding that carries an
// option-table marker, keeping manually entered options intact.
func DeleteSQLSourcedOptions(ctx context.Context, db *sql.DB, dropdownID string) error {
	deleteSQL := `DELETE FROM dropdown_options WHERE dropdown_id = ? AND option_table != ''`
	if _, err := db.ExecContext(ctx, deleteSQL, dropdownID); err != nil {
		return fmt.Errorf("database error clearing SQL-sourced options: %w", err)
	}
	return nil
}

// --- Dropdown answers ---

// UpsertDropdownAnswer stores the chosen option for one (field, data row)
// pair. A second submission for the same pair overwrites the choice, never
// duplicates it.
func UpsertDropdownAnswer(ctx context.Context, db DBTX, fieldConfigID, rowPK, optionID string) error {
	upsertSQL := `INSERT INTO dropdown_answers (field_config_id, row_pk, option_id) VALUES (?, ?, ?)
		ON CONFLICT(field_config_id, row_pk) DO UPDATE SET option_id = excluded.option_id, updated_at = CURRENT_TIMESTAMP`
	if _, err := db.ExecContext(ctx, upsertSQL, fieldConfigID, rowPK, optionID); err != nil {
		return fmt.Errorf("database error upserting dropdown answer: %w", err)
	}
	return nil
}

// ListAnswersForRows batch-loads every stored answer for the given row ids in
// a single query.
func ListAnswersForRows(ctx context.Context, db *sql.DB, rowIDs []string) ([]domain.DropdownAnswer, error) {
	if len(rowIDs) == 0 {
		return []domain.DropdownAnswer{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(rowIDs)), ", ")
	listSQL := fmt.Sprintf(`SELECT field_config_id, row_pk, option_id FROM dropdown_answers WHERE row_pk IN (%s)`, placeholders)
	args := make([]any, len(rowIDs))
	for i, id := range rowIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing dropdown answers: %w", err)
	}
	defer rows.Close()

	answers := make([]domain.DropdownAnswer, 0)
	for rows.Next() {
		var a domain.DropdownAnswer
		if err := rows.Scan(&a.FieldConfigID, &a.RowPK, &a.OptionID); err != nil {
			return nil, fmt.Errorf("failed reading dropdown answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed processing dropdown answers: %w", err)
	}
	return answers, nil
}

// OptionTextsByIDs batch-loads the display text of the referenced options in a
// single query.
func OptionTextsByIDs(ctx context.Context, db *sql.DB, optionIDs []string) (map[string]string, error) {
	texts := make(map[string]string, len(optionIDs))
	if len(optionIDs) == 0 {
		return texts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(optionIDs)), ", ")
	listSQL := fmt.Sprintf(`SELECT id, option_text FROM dropdown_options WHERE id IN (%s)`, placeholders)
	args := make([]any, len(optionIDs))
	for i, id := range optionIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("database error loading option texts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("failed reading option text: %w", err)
		}
		texts[id] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed processing option texts: %w", err)
	}
	return texts, nil
}
