// internal/storage/rule_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/formbridge/formbridge-backend/internal/domain"
)

var ErrRuleNotFound = errors.New("validation rule not found")

// ListValidationRules returns the ordered rule list of one field.
func ListValidationRules(ctx context.Context, db *sql.DB, fieldConfigID string) ([]domain.ValidationRule, error) {
	listSQL := `SELECT id, field_config_id, kind, value, message, message_local, rule_order, created_at
		FROM validation_rules WHERE field_config_id = ? ORDER BY rule_order`
	rows, err := db.QueryContext(ctx, listSQL, fieldConfigID)
	if err != nil {
		return nil, fmt.Errorf("database error listing validation rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListValidationRulesForForm returns every rule of every field of a form in
// one query, ordered per field.
func ListValidationRulesForForm(ctx context.Context, db *sql.DB, formMasterID string) ([]domain.ValidationRule, error) {
	listSQL := `SELECT r.id, r.field_config_id, r.kind, r.value, r.message, r.message_local, r.rule_order, r.created_at
		FROM validation_rules r
		JOIN field_configs fc ON fc.id = r.field_config_id
		WHERE fc.form_master_id = ?
		ORDER BY r.field_config_id, r.rule_order`
	rows, err := db.QueryContext(ctx, listSQL, formMasterID)
	if err != nil {
		return nil, fmt.Errorf("database error listing validation rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows *sql.Rows) ([]domain.ValidationRule, error) {
	rules := make([]domain.ValidationRule, 0)
	for rows.Next() {
		var r domain.ValidationRule
		if err := rows.Scan(&r.ID, &r.FieldConfigID, &r.Kind, &r.Value, &r.Message, &r.MessageLocal, &r.Order, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading validation rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed processing validation rules: %w", err)
	}
	return rules, nil
}

// HasValidationRules reports whether any rule exists for the field.
func HasValidationRules(ctx context.Context, db *sql.DB, fieldConfigID string) (bool, error) {
	var count int
	countSQL := `SELECT COUNT(*) FROM validation_rules WHERE field_config_id = ?`
	if err := db.QueryRowContext(ctx, countSQL, fieldConfigID).Scan(&count); err != nil {
		return false, fmt.Errorf("database error counting validation rules: %w", err)
	}
	return count > 0, nil
}

// NextRuleOrder returns the next order index for the field: current max plus
// one, or 1 when no rule exists. Deleting a rule below the max never frees its
// number for reuse.
func NextRuleOrder(ctx context.Context, db *sql.DB, fieldConfigID string) (int, error) {
	var next int
	orderSQL := `SELECT COALESCE(MAX(rule_order), 0) + 1 FROM validation_rules WHERE field_config_id = ?`
	if err := db.QueryRowContext(ctx, orderSQL, fieldConfigID).Scan(&next); err != nil {
		return 0, fmt.Errorf("database error resolving next rule order: %w", err)
	}
	return next, nil
}

// InsertValidationRule inserts one rule row.
func InsertValidationRule(ctx context.Context, db *sql.DB, r *domain.ValidationRule) error {
	insertSQL := `INSERT INTO validation_rules (id, field_config_id, kind, value, message, message_local, rule_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, insertSQL, r.ID, r.FieldConfigID, r.Kind, r.Value, r.Message, r.MessageLocal, r.Order)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConstraintViolation
		}
		return fmt.Errorf("database error inserting validation rule: %w", err)
	}
	return nil
}

// UpdateValidationRule updates a rule's value and messages.
func UpdateValidationRule(ctx context.Context, db *sql.DB, r *domain.ValidationRule) error {
	updateSQL := `UPDATE validation_rules SET value = ?, message = ?, message_local = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, updateSQL, r.Value, r.Message, r.MessageLocal, r.ID)
	if err != nil {
		return fmt.Errorf("database error updating validation rule: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming validation rule update: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// DeleteValidationRule removes one rule.
func DeleteValidationRule(ctx context.Context, db *sql.DB, ruleID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM validation_rules WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("database error deleting validation rule: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming validation rule delete: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
