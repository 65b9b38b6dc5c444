// internal/storage/form_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/formbridge/formbridge-backend/internal/domain"
)

// Specific errors for form configuration operations
var (
	ErrFormNotFound        = errors.New("form not found")
	ErrFieldNotFound       = errors.New("field configuration not found")
	ErrFormBindingExists   = errors.New("a form is already registered for this table and view combination")
	ErrUpsertFailed        = errors.New("upsert affected no rows")
	ErrConstraintViolation = errors.New("constraint violation")
)

// GetOrCreateFormMaster looks the form up by id and inserts it if absent,
// using the candidate's id or a freshly generated one. The existence check and
// insert are not atomic across processes; the UNIQUE (table_name, view_name)
// constraint is the real guard.
func GetOrCreateFormMaster(ctx context.Context, db *sql.DB, candidate *domain.FormMaster) (string, error) {
	if candidate.ID != "" {
		existing, err := FindFormMasterByID(ctx, db, candidate.ID)
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, ErrFormNotFound) {
			return "", err
		}
	}

	id := candidate.ID
	if id == "" {
		id = uuid.New().String()
	}
	insertSQL := `INSERT INTO form_masters (id, name, table_name, table_id, view_name, view_id, pk_column, status, schema_query_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, insertSQL, id, candidate.Name, candidate.TableName, candidate.TableID,
		candidate.ViewName, candidate.ViewID, candidate.PKColumn, candidate.Status, candidate.SchemaQueryType)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return "", ErrFormBindingExists
		}
		customLog.Warnf("Storage: Failed to insert form master for table '%s': %v", candidate.TableName, err)
		return "", fmt.Errorf("database error creating form master: %w", err)
	}
	return id, nil
}

func scanFormMaster(row *sql.Row) (*domain.FormMaster, error) {
	var m domain.FormMaster
	err := row.Scan(&m.ID, &m.Name, &m.TableName, &m.TableID, &m.ViewName, &m.ViewID,
		&m.PKColumn, &m.Status, &m.SchemaQueryType, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("database error finding form master: %w", err)
	}
	return &m, nil
}

const formMasterColumns = `id, name, table_name, table_id, view_name, view_id, pk_column, status, schema_query_type, created_at, updated_at`

// FindFormMasterByID retrieves one form master by id.
func FindFormMasterByID(ctx context.Context, db *sql.DB, id string) (*domain.FormMaster, error) {
	lookupSQL := `SELECT ` + formMasterColumns + ` FROM form_masters WHERE id = ? LIMIT 1`
	return scanFormMaster(db.QueryRowContext(ctx, lookupSQL, id))
}

// FindFormMasterByTable retrieves the form master bound to a base table.
func FindFormMasterByTable(ctx context.Context, db *sql.DB, tableName string) (*domain.FormMaster, error) {
	lookupSQL := `SELECT ` + formMasterColumns + ` FROM form_masters WHERE table_name = ? COLLATE NOCASE LIMIT 1`
	return scanFormMaster(db.QueryRowContext(ctx, lookupSQL, tableName))
}

// FindFormMasterByName retrieves the form master whose base table or view
// carries the given name. The oldest registration wins when more than one
// master matches, keeping the read deterministic.
func FindFormMasterByName(ctx context.Context, db *sql.DB, name string) (*domain.FormMaster, error) {
	lookupSQL := `SELECT ` + formMasterColumns + ` FROM form_masters
		WHERE table_name = ? COLLATE NOCASE OR view_name = ? COLLATE NOCASE
		ORDER BY created_at, id LIMIT 1`
	return scanFormMaster(db.QueryRowContext(ctx, lookupSQL, name, name))
}

// UpdateFormMaster updates the header settings of a form.
func UpdateFormMaster(ctx context.Context, db *sql.DB, m *domain.FormMaster) error {
	updateSQL := `UPDATE form_masters
		SET name = ?, view_name = ?, view_id = ?, pk_column = ?, status = ?, schema_query_type = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	result, err := db.ExecContext(ctx, updateSQL, m.Name, m.ViewName, m.ViewID, m.PKColumn, m.Status, m.SchemaQueryType, m.ID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrFormBindingExists
		}
		return fmt.Errorf("database error updating form master: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming form master update: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFormNotFound
	}
	return nil
}

// DeleteFormMasterCascade removes a form's configuration: dropdown answers and
// options first, then dropdowns, validation rules, field configs and finally
// the master row. The underlying data tables are never touched.
func DeleteFormMasterCascade(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM dropdown_answers WHERE field_config_id IN (SELECT id FROM field_configs WHERE form_master_id = ?)`,
		`DELETE FROM dropdown_options WHERE dropdown_id IN (
			SELECT d.id FROM dropdowns d JOIN field_configs fc ON fc.id = d.field_config_id WHERE fc.form_master_id = ?)`,
		`DELETE FROM dropdowns WHERE field_config_id IN (SELECT id FROM field_configs WHERE form_master_id = ?)`,
		`DELETE FROM validation_rules WHERE field_config_id IN (SELECT id FROM field_configs WHERE form_master_id = ?)`,
		`DELETE FROM field_configs WHERE form_master_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("database error during cascade delete: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM form_masters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("database error deleting form master: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming form master delete: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFormNotFound
	}
	return tx.Commit()
}

// --- Field configuration operations ---

const fieldConfigColumns = `id, form_master_id, table_name, column_name, control_type, default_value,
	is_visible, is_editable, display_width, display_order, created_at, updated_at`

func scanFieldConfig(scanner interface{ Scan(...any) error }) (*domain.FieldConfig, error) {
	var fc domain.FieldConfig
	var controlType sql.NullString
	err := scanner.Scan(&fc.ID, &fc.FormMasterID, &fc.TableName, &fc.ColumnName, &controlType, &fc.DefaultValue,
		&fc.IsVisible, &fc.IsEditable, &fc.DisplayWidth, &fc.DisplayOrder, &fc.CreatedAt, &fc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if controlType.Valid {
		fc.ControlType = domain.ControlType(controlType.String)
	}
	return &fc, nil
}

// ListFieldConfigs returns all field configurations of a form, ordered for display.
func ListFieldConfigs(ctx context.Context, db *sql.DB, formMasterID string) ([]domain.FieldConfig, error) {
	listSQL := `SELECT ` + fieldConfigColumns + ` FROM field_configs
		WHERE form_master_id = ? ORDER BY display_order, created_at, column_name`
	rows, err := db.QueryContext(ctx, listSQL, formMasterID)
	if err != nil {
		return nil, fmt.Errorf("database error listing field configs: %w", err)
	}
	defer rows.Close()

	configs := make([]domain.FieldConfig, 0)
	for rows.Next() {
		fc, err := scanFieldConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed reading field config: %w", err)
		}
		configs = append(configs, *fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed processing field configs: %w", err)
	}
	return configs, nil
}

// FindFieldConfigByID retrieves one field configuration.
func FindFieldConfigByID(ctx context.Context, db *sql.DB, id string) (*domain.FieldConfig, error) {
	lookupSQL := `SELECT ` + fieldConfigColumns + ` FROM field_configs WHERE id = ? LIMIT 1`
	fc, err := scanFieldConfig(db.QueryRowContext(ctx, lookupSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("database error finding field config: %w", err)
	}
	return fc, nil
}

// InsertFieldConfig inserts a new field configuration row.
func InsertFieldConfig(ctx context.Context, db *sql.DB, fc *domain.FieldConfig) error {
	var controlType any
	if fc.ControlType != domain.ControlTypeUnset {
		controlType = string(fc.ControlType)
	}
	insertSQL := `INSERT INTO field_configs (id, form_master_id, table_name, column_name, control_type,
		default_value, is_visible, is_editable, display_width, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, insertSQL, fc.ID, fc.FormMasterID, fc.TableName, fc.ColumnName, controlType,
		fc.DefaultValue, fc.IsVisible, fc.IsEditable, fc.DisplayWidth, fc.DisplayOrder)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConstraintViolation
		}
		customLog.Warnf("Storage: Failed to insert field config for column '%s': %v", fc.ColumnName, err)
		return fmt.Errorf("database error inserting field config: %w", err)
	}
	return nil
}

// UpdateFieldConfig updates the editable settings of an existing field
// configuration. A zero affected-row count is reported as ErrUpsertFailed: a
// silent no-op on an existing id means the store lost the row.
func UpdateFieldConfig(ctx context.Context, db *sql.DB, fc *domain.FieldConfig) error {
	var controlType any
	if fc.ControlType != domain.ControlTypeUnset {
		controlType = string(fc.ControlType)
	}
	updateSQL := `UPDATE field_configs
		SET control_type = ?, default_value = ?, is_visible = ?, is_editable = ?,
			display_width = ?, display_order = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	result, err := db.ExecContext(ctx, updateSQL, controlType, fc.DefaultValue, fc.IsVisible, fc.IsEditable,
		fc.DisplayWidth, fc.DisplayOrder, fc.ID)
	if err != nil {
		return fmt.Errorf("database error updating field config: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming field config update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: field config %s", ErrUpsertFailed, fc.ID)
	}
	return nil
}
