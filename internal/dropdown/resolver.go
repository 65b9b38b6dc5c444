// internal/dropdown/resolver.go
package dropdown

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/formbridge/formbridge-backend/internal/domain"
	"github.com/formbridge/formbridge-backend/internal/logger"
	"github.com/formbridge/formbridge-backend/internal/storage"
)

var (
	ErrSQLRejected = errors.New("dropdown SQL rejected")
	customLog      = logger.NewLogger()
)

// Deny-list of mutating keywords, matched as whole words, case-insensitive.
// This guards a trusted operator against accidental mutation; it is not a
// security boundary against a malicious author of the SQL text.
var mutatingKeywordRegex = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|truncate|exec|merge)\b`)

// PreviewSampleLimit caps how many rows a SQL preview returns.
const PreviewSampleLimit = 10

// PreviewResult is the structured outcome of validating and test-running
// dropdown SQL. Execution failures land in Message, they are never returned as
// errors: this operation is explicitly a "try it and tell me" preview.
type PreviewResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	RowCount int              `json:"row_count"`
	Rows     []map[string]any `json:"sample_rows,omitempty"`
}

// Resolver manages dropdown bindings, options and answers, and rewrites raw
// cell values into display text.
type Resolver struct {
	db *sql.DB
}

func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// screenSQL applies the deny-list to SQL text.
func screenSQL(sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return fmt.Errorf("%w: SQL text is empty", ErrSQLRejected)
	}
	if match := mutatingKeywordRegex.FindString(sqlText); match != "" {
		return fmt.Errorf("%w: mutating keyword %q detected", ErrSQLRejected, strings.ToUpper(match))
	}
	return nil
}

// EnsureBinding inserts a binding row for the field if none exists (idempotent).
func (r *Resolver) EnsureBinding(ctx context.Context, fieldConfigID string, isUseSQL bool, sqlText string) error {
	if sqlText != "" {
		if err := screenSQL(sqlText); err != nil {
			return err
		}
	}
	return storage.EnsureDropdown(ctx, r.db, uuid.New().String(), fieldConfigID, isUseSQL, sqlText)
}

// Binding returns the field's binding with options attached; an empty binding
// object when none exists yet.
func (r *Resolver) Binding(ctx context.Context, fieldConfigID string) (*domain.Dropdown, error) {
	return storage.FindDropdownByFieldID(ctx, r.db, fieldConfigID)
}

// SetSQLSource upserts the SQL text of the field's binding and flips it into
// SQL mode. The text must pass the read-only screen.
func (r *Resolver) SetSQLSource(ctx context.Context, fieldConfigID, sqlText string) error {
	if err := screenSQL(sqlText); err != nil {
		return err
	}
	return storage.SetDropdownSQL(ctx, r.db, uuid.New().String(), fieldConfigID, sqlText)
}

// SetMode toggles between fixed-list and SQL-sourced options.
func (r *Resolver) SetMode(ctx context.Context, dropdownID string, isUseSQL bool) error {
	return storage.SetDropdownMode(ctx, r.db, dropdownID, isUseSQL)
}

// SaveOption upserts an option; an absent id generates a new one. Returns the
// option id.
func (r *Resolver) SaveOption(ctx context.Context, optionID, dropdownID, text string) (string, error) {
	if optionID == "" {
		optionID = uuid.New().String()
	}
	opt := &domain.DropdownOption{ID: optionID, DropdownID: dropdownID, Text: text}
	if err := storage.SaveDropdownOption(ctx, r.db, opt); err != nil {
		return "", err
	}
	return optionID, nil
}

// DeleteOption removes one option.
func (r *Resolver) DeleteOption(ctx context.Context, optionID string) error {
	return storage.DeleteDropdownOption(ctx, r.db, optionID)
}

// RefreshSQLOptions re-runs the binding's SQL source and replaces every
// SQL-sourced option with the current result rows, using the first column as
// display text. Manually entered options are preserved.
func (r *Resolver) RefreshSQLOptions(ctx context.Context, fieldConfigID string) ([]domain.DropdownOption, error) {
	binding, err := storage.FindDropdownByFieldID(ctx, r.db, fieldConfigID)
	if err != nil {
		return nil, err
	}
	if binding.ID == "" || !binding.IsUseSQL {
		return nil, fmt.Errorf("%w: field %s has no SQL-sourced binding", ErrSQLRejected, fieldConfigID)
	}
	if err := screenSQL(binding.SQLText); err != nil {
		return nil, err
	}

	count, samples, err := storage.ExecReadOnlyQuery(ctx, r.db, binding.SQLText, 1000)
	if err != nil {
		return nil, fmt.Errorf("dropdown SQL source failed: %w", err)
	}
	customLog.Printf("Dropdown: Refreshing %d SQL-sourced options for field '%s'", count, fieldConfigID)

	if err := storage.DeleteSQLSourcedOptions(ctx, r.db, binding.ID); err != nil {
		return nil, err
	}
	for _, row := range samples {
		opt := &domain.DropdownOption{
			ID:          uuid.New().String(),
			DropdownID:  binding.ID,
			Text:        firstCellText(row),
			OptionTable: "SQL",
		}
		if err := storage.SaveDropdownOption(ctx, r.db, opt); err != nil {
			return nil, err
		}
	}
	return storage.ListDropdownOptions(ctx, r.db, binding.ID)
}

// ValidateReadOnlySQL screens and test-runs dropdown SQL, returning up to ten
// sample rows.
func (r *Resolver) ValidateReadOnlySQL(ctx context.Context, sqlText string) *PreviewResult {
	if err := screenSQL(sqlText); err != nil {
		return &PreviewResult{Success: false, Message: err.Error()}
	}

	count, samples, err := storage.ExecReadOnlyQuery(ctx, r.db, sqlText, PreviewSampleLimit)
	if err != nil {
		customLog.Warnf("Dropdown: SQL preview failed: %v", err)
		return &PreviewResult{Success: false, Message: fmt.Sprintf("query failed: %v", err)}
	}
	return &PreviewResult{Success: true, Message: "OK", RowCount: count, Rows: samples}
}

// ToDisplayRows converts raw column-value maps into the row/cell structure,
// extracting each row's primary-key value as its row identifier.
func ToDisplayRows(rawRows []map[string]any, pkColumn string) ([]domain.DataRow, []string) {
	rows := make([]domain.DataRow, 0, len(rawRows))
	rowIDs := make([]string, 0, len(rawRows))
	for _, raw := range rawRows {
		row := domain.DataRow{Cells: raw}
		for col, val := range raw {
			if strings.EqualFold(col, pkColumn) {
				row.ID = cellText(val)
				break
			}
		}
		rows = append(rows, row)
		if row.ID != "" {
			rowIDs = append(rowIDs, row.ID)
		}
	}
	return rows, rowIDs
}

// AnswersForRows batch-loads the stored answers of the given rows.
func (r *Resolver) AnswersForRows(ctx context.Context, rowIDs []string) ([]domain.DropdownAnswer, error) {
	return storage.ListAnswersForRows(ctx, r.db, rowIDs)
}

// OptionTextMap batch-loads the display text of every option referenced by the
// answers.
func (r *Resolver) OptionTextMap(ctx context.Context, answers []domain.DropdownAnswer) (map[string]string, error) {
	seen := make(map[string]bool, len(answers))
	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		if !seen[a.OptionID] {
			seen[a.OptionID] = true
			ids = append(ids, a.OptionID)
		}
	}
	return storage.OptionTextsByIDs(ctx, r.db, ids)
}

// RewriteAnswersAsText replaces, for every dropdown-typed field, the raw cell
// value with the chosen option's display text wherever an answer exists for
// that (row, field) pair. Cells without a matching answer are left unchanged.
func RewriteAnswersAsText(rows []domain.DataRow, fields []domain.FieldConfig, answers []domain.DropdownAnswer, optionTexts map[string]string) {
	type answerKey struct{ rowID, fieldID string }
	index := make(map[answerKey]string, len(answers))
	for _, a := range answers {
		index[answerKey{rowID: a.RowPK, fieldID: a.FieldConfigID}] = a.OptionID
	}

	for _, field := range fields {
		if field.ControlType != domain.ControlTypeDropdown {
			continue
		}
		for i := range rows {
			optionID, ok := index[answerKey{rowID: rows[i].ID, fieldID: field.ID}]
			if !ok {
				continue
			}
			text, ok := optionTexts[optionID]
			if !ok {
				continue
			}
			for col := range rows[i].Cells {
				if strings.EqualFold(col, field.ColumnName) {
					rows[i].Cells[col] = text
					break
				}
			}
		}
	}
}

func cellText(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func firstCellText(row map[string]any) string {
	// Map iteration order is unspecified; prefer conventional text columns.
	for _, preferred := range []string{"text", "name", "label", "option_text"} {
		for col, val := range row {
			if strings.EqualFold(col, preferred) {
				return cellText(val)
			}
		}
	}
	for _, val := range row {
		return cellText(val)
	}
	return ""
}
