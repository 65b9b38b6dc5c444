// internal/forms/submission.go
package forms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/formbridge/formbridge-backend/config"
	"github.com/formbridge/formbridge-backend/internal/core"
	"github.com/formbridge/formbridge-backend/internal/domain"
	"github.com/formbridge/formbridge-backend/internal/schema"
	"github.com/formbridge/formbridge-backend/internal/storage"
)

// Engine persists one form submission: base-table scalars and dropdown
// answers, committed together or not at all.
type Engine struct {
	db        *sql.DB
	cfg       *config.Config
	inspector *schema.Inspector
}

func NewEngine(db *sql.DB, cfg *config.Config, inspector *schema.Inspector) *Engine {
	return &Engine{db: db, cfg: cfg, inspector: inspector}
}

// scalarWrite is one base-table column assignment derived from a submitted value.
type scalarWrite struct {
	column string
	value  any
}

// answerWrite is one dropdown choice to record for the submitted row.
type answerWrite struct {
	fieldConfigID string
	optionID      string
}

// Submit writes one submission keyed by field-config id. An empty rowID
// inserts a new row; otherwise the existing row is updated. Values are
// classified before any write: unknown field ids, view fields not backed by
// the base table, columns absent from the live base schema, the primary key
// column itself and malformed dropdown option ids are all silently dropped.
// Everything that survives is written inside a single transaction.
func (e *Engine) Submit(ctx context.Context, formMasterID, rowID string, values map[string]string) (string, error) {
	master, err := storage.FindFormMasterByID(ctx, e.db, formMasterID)
	if err != nil {
		return "", err
	}

	configs, err := storage.ListFieldConfigs(ctx, e.db, formMasterID)
	if err != nil {
		return "", err
	}
	configByID := make(map[string]domain.FieldConfig, len(configs))
	for _, fc := range configs {
		configByID[fc.ID] = fc
	}

	baseColumns, err := e.inspector.ListColumns(ctx, master.TableName, domain.QueryAll)
	if err != nil {
		return "", err
	}
	columnNames := make([]string, len(baseColumns))
	typeByColumn := make(map[string]string, len(baseColumns))
	for i, col := range baseColumns {
		columnNames[i] = col.Name
		typeByColumn[strings.ToLower(col.Name)] = col.DeclaredType
	}
	allowed := core.NewColumnSet(columnNames)

	var lineage schema.Lineage
	if master.ViewName != "" {
		lineage, err = e.inspector.ViewColumnLineage(ctx, master.ViewName)
		if err != nil {
			return "", err
		}
	}

	pkName := master.ViewName
	if pkName == "" {
		pkName = master.TableName
	}
	pk, err := e.inspector.ResolvePrimaryKey(ctx, pkName)
	if err != nil {
		return "", err
	}

	scalars, answers := e.classify(master, configByID, allowed, typeByColumn, lineage, pk.ColumnName, values)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start submission transaction: %w", err)
	}
	defer tx.Rollback()

	finalRowID := rowID
	if rowID == "" {
		finalRowID, err = e.insertRow(ctx, tx, master, pk, scalars)
	} else {
		err = e.updateRow(ctx, tx, master, pk, rowID, scalars)
	}
	if err != nil {
		return "", err
	}

	for _, a := range answers {
		if err := storage.UpsertDropdownAnswer(ctx, tx, a.fieldConfigID, finalRowID, a.optionID); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit submission: %w", err)
	}
	customLog.Printf("Submission: Wrote row '%s' of form '%s' (%d columns, %d answers)",
		finalRowID, formMasterID, len(scalars), len(answers))
	return finalRowID, nil
}

// classify splits submitted values into base-table column writes and dropdown
// answers, dropping everything that cannot be safely written.
func (e *Engine) classify(
	master *domain.FormMaster,
	configByID map[string]domain.FieldConfig,
	allowed core.ColumnSet,
	typeByColumn map[string]string,
	lineage schema.Lineage,
	pkColumn string,
	values map[string]string,
) ([]scalarWrite, []answerWrite) {
	scalars := make([]scalarWrite, 0, len(values))
	answers := make([]answerWrite, 0)

	for fieldConfigID, raw := range values {
		fc, ok := configByID[fieldConfigID]
		if !ok {
			customLog.Warnf("Submission: Dropping value for unknown field id '%s'", fieldConfigID)
			continue
		}

		if fc.ControlType == domain.ControlTypeDropdown {
			optionID, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				customLog.Warnf("Submission: Dropping malformed option id for field '%s'", fc.ColumnName)
				continue
			}
			answers = append(answers, answerWrite{fieldConfigID: fc.ID, optionID: optionID.String()})
			continue
		}

		// Fields configured against the view must trace back to the base table.
		if master.ViewName != "" && strings.EqualFold(fc.TableName, master.ViewName) {
			if lineage == nil {
				continue
			}
			source, resolved := lineage.SourceOf(fc.ColumnName)
			if !resolved || !strings.EqualFold(source, master.TableName) {
				customLog.Warnf("Submission: Dropping view field '%s' not backed by '%s'", fc.ColumnName, master.TableName)
				continue
			}
		}

		canonical, ok := allowed.Allows(fc.ColumnName)
		if !ok {
			customLog.Warnf("Submission: Dropping field '%s' absent from live schema of '%s'", fc.ColumnName, master.TableName)
			continue
		}
		if strings.EqualFold(canonical, pkColumn) {
			continue
		}
		scalars = append(scalars, scalarWrite{
			column: canonical,
			value:  core.ConvertDeclaredValue(typeByColumn[strings.ToLower(canonical)], raw),
		})
	}
	return scalars, answers
}

// insertRow writes a new base-table row. Identity keys are assigned by the
// database and read back; every other supported key type is generated here
// and prepended to the column list.
func (e *Engine) insertRow(ctx context.Context, tx *sql.Tx, master *domain.FormMaster, pk *schema.PKInfo, scalars []scalarWrite) (string, error) {
	identity, err := e.inspector.IsIdentityColumn(ctx, master.TableName, pk.ColumnName)
	if err != nil {
		return "", err
	}

	columns := make([]string, 0, len(scalars)+1)
	args := make([]any, 0, len(scalars)+1)

	if identity {
		for _, s := range scalars {
			columns = append(columns, s.column)
			args = append(args, s.value)
		}
		lastID, err := storage.InsertRow(ctx, tx, master.TableName, columns, args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", lastID), nil
	}

	generated := core.GeneratePKValue(pk.DeclaredType)
	columns = append(columns, pk.ColumnName)
	args = append(args, generated)
	for _, s := range scalars {
		columns = append(columns, s.column)
		args = append(args, s.value)
	}
	if _, err := storage.InsertRow(ctx, tx, master.TableName, columns, args); err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", generated), nil
}

// updateRow writes the surviving scalars to the existing base-table row. With
// no scalars left after classification there is nothing to update and the
// dropdown answers alone carry the submission.
func (e *Engine) updateRow(ctx context.Context, tx *sql.Tx, master *domain.FormMaster, pk *schema.PKInfo, rowID string, scalars []scalarWrite) error {
	if len(scalars) == 0 {
		return nil
	}

	pkValue, err := core.ConvertPKValue(pk.DeclaredType, rowID)
	if err != nil {
		return err
	}
	columns := make([]string, len(scalars))
	args := make([]any, len(scalars))
	for i, s := range scalars {
		columns[i] = s.column
		args[i] = s.value
	}
	if err := storage.UpdateRowByPK(ctx, tx, master.TableName, columns, args, pk.ColumnName, pkValue); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return fmt.Errorf("%w: row %s of %s", storage.ErrRecordNotFound, rowID, master.TableName)
		}
		return err
	}
	return nil
}
