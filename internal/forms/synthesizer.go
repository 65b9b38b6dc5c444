// internal/forms/synthesizer.go
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
	"github.com/formbridge/formbridge-backend/internal/dropdown"
	"github.com/formbridge/formbridge-backend/internal/logger"
	"github.com/formbridge/formbridge-backend/internal/schema"
	"github.com/formbridge/formbridge-backend/internal/storage"
)

// Errors surfaced to callers for direct user feedback
var (
	ErrMissingRequiredName       = errors.New("a table or view name is required")
	ErrControlTypeChangeRejected = errors.New("control type cannot change while validation rules exist")
	ErrUnknownControlType        = errors.New("unknown control type")
	ErrRuleKindNotAllowed        = errors.New("validation rule kind is not allowed for this control type")
	customLog                    = logger.NewLogger()
)

// Field is one synthesized form field: live schema merged with persisted
// configuration and decorated with rules and dropdown options.
type Field struct {
	FieldConfigID      string                  `json:"field_config_id,omitempty"`
	FormMasterID       string                  `json:"form_master_id,omitempty"`
	TableName          string                  `json:"table_name"`
	ColumnName         string                  `json:"column_name"`
	DeclaredType       string                  `json:"declared_type"`
	OrdinalPosition    int                     `json:"ordinal_position"`
	ControlType        domain.ControlType      `json:"control_type"`
	ControlTypeOptions []domain.ControlType    `json:"control_type_options"`
	DefaultValue       string                  `json:"default_value"`
	IsVisible          bool                    `json:"is_visible"`
	IsEditable         bool                    `json:"is_editable"`
	DisplayWidth       int                     `json:"display_width"`
	DisplayOrder       int                     `json:"display_order"`
	IsValidationRule   bool                    `json:"is_validation_rule"`
	Rules              []domain.ValidationRule `json:"rules,omitempty"`
	Options            []domain.DropdownOption `json:"options,omitempty"`
	SourceTable        string                  `json:"source_table,omitempty"`
	CurrentValue       any                     `json:"current_value,omitempty"`
}

// FieldUpsert carries the editable settings of one field configuration.
type FieldUpsert struct {
	ID           string
	FormMasterID string
	TableName    string
	ColumnName   string
	ControlType  domain.ControlType
	DefaultValue string
	IsVisible    bool
	IsEditable   bool
	DisplayWidth int
	DisplayOrder int
}

// Synthesizer combines schema inspection, field configuration, validation
// rules and dropdown bindings into unified field lists.
type Synthesizer struct {
	db        *sql.DB
	cfg       *config.Config
	inspector *schema.Inspector
	resolver  *dropdown.Resolver
}

func NewSynthesizer(db *sql.DB, cfg *config.Config, inspector *schema.Inspector, resolver *dropdown.Resolver) *Synthesizer {
	return &Synthesizer{db: db, cfg: cfg, inspector: inspector, resolver: resolver}
}

// FieldsByTable joins live columns with persisted configuration. Configuration
// wins for control type, visibility, editability, default value and width;
// columns without configuration default to visible and editable. A name with
// no matching schema yields an empty list, never an error: a half-configured
// designer screen must stay usable.
func (s *Synthesizer) FieldsByTable(ctx context.Context, table string, queryType domain.SchemaQueryType) ([]Field, error) {
	if strings.TrimSpace(table) == "" {
		return nil, ErrMissingRequiredName
	}

	columns, err := s.inspector.ListColumns(ctx, table, queryType)
	if err != nil {
		if errors.Is(err, schema.ErrSchemaNotFound) {
			return []Field{}, nil
		}
		return nil, err
	}

	configs, rules, formMasterID, err := s.loadConfiguration(ctx, table)
	if err != nil {
		return nil, err
	}
	return mergeFields(table, formMasterID, columns, configs, rules), nil
}

// EnsureFieldsSaved inspects columns and inserts a default configuration for
// every column that has none yet, under a resolved-or-created form master.
// Existing configurations are never modified; calling it twice changes
// nothing the second time. Returns the fully merged, reloaded field list.
func (s *Synthesizer) EnsureFieldsSaved(ctx context.Context, table string, queryType domain.SchemaQueryType) ([]Field, error) {
	if strings.TrimSpace(table) == "" {
		return nil, ErrMissingRequiredName
	}

	columns, err := s.inspector.ListColumns(ctx, table, queryType)
	if err != nil {
		return nil, err
	}

	formMasterID, err := s.resolveOrCreateFormMaster(ctx, table, queryType)
	if err != nil {
		return nil, err
	}

	existing, err := storage.ListFieldConfigs(ctx, s.db, formMasterID)
	if err != nil {
		return nil, err
	}
	configured := make(map[string]bool, len(existing))
	for _, fc := range existing {
		configured[strings.ToLower(fc.ColumnName)] = true
	}

	created := 0
	for _, col := range columns {
		if configured[strings.ToLower(col.Name)] {
			continue
		}
		fc := &domain.FieldConfig{
			ID:           uuid.New().String(),
			FormMasterID: formMasterID,
			TableName:    table,
			ColumnName:   col.Name,
			ControlType:  domain.ControlTypeUnset,
			DefaultValue: "",
			IsVisible:    true,
			IsEditable:   true,
			DisplayWidth: core.DefaultDisplayWidth,
			DisplayOrder: col.OrdinalPosition,
		}
		if err := storage.InsertFieldConfig(ctx, s.db, fc); err != nil {
			return nil, err
		}
		created++
	}
	if created > 0 {
		customLog.Printf("Forms: Provisioned %d field configs for '%s'", created, table)
	}

	return s.FieldsByTable(ctx, table, queryType)
}

// UpsertField updates an existing field configuration or inserts a new one.
// A control-type change is rejected while validation rules exist: rules
// encode semantics tied to the prior control type.
func (s *Synthesizer) UpsertField(ctx context.Context, vm *FieldUpsert) (*domain.FieldConfig, error) {
	if vm.ControlType != domain.ControlTypeUnset && !core.IsKnownControlType(vm.ControlType) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownControlType, vm.ControlType)
	}

	existing, err := storage.FindFieldConfigByID(ctx, s.db, vm.ID)
	if err != nil && !errors.Is(err, storage.ErrFieldNotFound) {
		return nil, err
	}

	if existing != nil {
		if vm.ControlType != existing.ControlType {
			hasRules, err := storage.HasValidationRules(ctx, s.db, existing.ID)
			if err != nil {
				return nil, err
			}
			if hasRules {
				return nil, fmt.Errorf("%w: field %s", ErrControlTypeChangeRejected, existing.ColumnName)
			}
		}
		existing.ControlType = vm.ControlType
		existing.DefaultValue = vm.DefaultValue
		existing.IsVisible = vm.IsVisible
		existing.IsEditable = vm.IsEditable
		existing.DisplayWidth = vm.DisplayWidth
		existing.DisplayOrder = vm.DisplayOrder
		if err := storage.UpdateFieldConfig(ctx, s.db, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if vm.FormMasterID == "" || vm.TableName == "" || vm.ColumnName == "" {
		return nil, fmt.Errorf("%w: form, table and column are required for a new field", ErrMissingRequiredName)
	}
	fc := &domain.FieldConfig{
		ID:           vm.ID,
		FormMasterID: vm.FormMasterID,
		TableName:    vm.TableName,
		ColumnName:   vm.ColumnName,
		ControlType:  vm.ControlType,
		DefaultValue: vm.DefaultValue,
		IsVisible:    vm.IsVisible,
		IsEditable:   vm.IsEditable,
		DisplayWidth: vm.DisplayWidth,
		DisplayOrder: vm.DisplayOrder,
	}
	if fc.ID == "" {
		fc.ID = uuid.New().String()
	}
	if fc.DisplayWidth == 0 {
		fc.DisplayWidth = core.DefaultDisplayWidth
	}
	if err := storage.InsertFieldConfig(ctx, s.db, fc); err != nil {
		return nil, err
	}
	return fc, nil
}

// AddRule appends a validation rule to a field at the next order index,
// enforcing the per-control-type kind whitelist.
func (s *Synthesizer) AddRule(ctx context.Context, fieldConfigID string, kind domain.RuleKind, value, message, messageLocal string) (*domain.ValidationRule, error) {
	fc, err := storage.FindFieldConfigByID(ctx, s.db, fieldConfigID)
	if err != nil {
		return nil, err
	}
	if !core.IsRuleKindAllowed(fc.ControlType, kind) {
		return nil, fmt.Errorf("%w: %s on %s", ErrRuleKindNotAllowed, kind, fc.ControlType)
	}

	order, err := storage.NextRuleOrder(ctx, s.db, fieldConfigID)
	if err != nil {
		return nil, err
	}
	rule := &domain.ValidationRule{
		ID:            uuid.New().String(),
		FieldConfigID: fieldConfigID,
		Kind:          kind,
		Value:         value,
		Message:       message,
		MessageLocal:  messageLocal,
		Order:         order,
	}
	if err := storage.InsertValidationRule(ctx, s.db, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule updates a rule's value and messages.
func (s *Synthesizer) UpdateRule(ctx context.Context, rule *domain.ValidationRule) error {
	return storage.UpdateValidationRule(ctx, s.db, rule)
}

// DeleteRule removes one rule.
func (s *Synthesizer) DeleteRule(ctx context.Context, ruleID string) error {
	return storage.DeleteValidationRule(ctx, s.db, ruleID)
}

// RulesForField returns the ordered rule list of one field.
func (s *Synthesizer) RulesForField(ctx context.Context, fieldConfigID string) ([]domain.ValidationRule, error) {
	if _, err := storage.FindFieldConfigByID(ctx, s.db, fieldConfigID); err != nil {
		return nil, err
	}
	return storage.ListValidationRules(ctx, s.db, fieldConfigID)
}

// SubmissionFields merges base-table and view fields into the field list for
// editing one row. A view field is editable only when its lineage-resolved
// source table is the form's base table AND the matching base-table field is
// editable; every other view field is read-only display data. With rowID set,
// current values are loaded from the view (scalar fields) and from stored
// dropdown answers (dropdown fields get the chosen option id, not its text).
func (s *Synthesizer) SubmissionFields(ctx context.Context, formMasterID, rowID string) ([]Field, error) {
	master, err := storage.FindFormMasterByID(ctx, s.db, formMasterID)
	if err != nil {
		return nil, err
	}

	baseFields, err := s.FieldsByTable(ctx, master.TableName, domain.QueryAll)
	if err != nil {
		return nil, err
	}
	if master.ViewName == "" {
		return s.fillCurrentValues(ctx, master.TableName, baseFields, rowID)
	}

	viewFields, err := s.FieldsByTable(ctx, master.ViewName, domain.QueryAll)
	if err != nil {
		return nil, err
	}
	lineage, err := s.inspector.ViewColumnLineage(ctx, master.ViewName)
	if err != nil {
		return nil, err
	}

	baseEditable := make(map[string]bool, len(baseFields))
	for _, bf := range baseFields {
		baseEditable[strings.ToLower(bf.ColumnName)] = bf.IsEditable
	}

	merged := make([]Field, 0, len(viewFields))
	for _, vf := range viewFields {
		source, resolved := lineage.SourceOf(vf.ColumnName)
		vf.SourceTable = source
		editable := false
		if resolved && strings.EqualFold(source, master.TableName) {
			editable = baseEditable[strings.ToLower(vf.ColumnName)]
		}
		vf.IsEditable = editable
		merged = append(merged, vf)
	}
	return s.fillCurrentValues(ctx, master.ViewName, merged, rowID)
}

// fillCurrentValues populates each field's current value from the named
// table/view row and from stored dropdown answers.
func (s *Synthesizer) fillCurrentValues(ctx context.Context, sourceName string, fields []Field, rowID string) ([]Field, error) {
	if rowID == "" {
		return fields, nil
	}

	pk, err := s.inspector.ResolvePrimaryKey(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	pkValue, err := core.ConvertPKValue(pk.DeclaredType, rowID)
	if err != nil {
		return nil, err
	}

	row, err := storage.GetRowByPK(ctx, s.db, sourceName, pk.ColumnName, pkValue)
	if err != nil {
		return nil, err
	}

	answers, err := s.resolver.AnswersForRows(ctx, []string{rowID})
	if err != nil {
		return nil, err
	}
	answerByField := make(map[string]string, len(answers))
	for _, a := range answers {
		answerByField[a.FieldConfigID] = a.OptionID
	}

	for i := range fields {
		if fields[i].ControlType == domain.ControlTypeDropdown {
			// Edit context: the chosen option id, not its display text.
			if optionID, ok := answerByField[fields[i].FieldConfigID]; ok {
				fields[i].CurrentValue = optionID
			}
			continue
		}
		for col, val := range row {
			if strings.EqualFold(col, fields[i].ColumnName) {
				fields[i].CurrentValue = val
				break
			}
		}
	}
	return fields, nil
}

// FormList loads all rows of the configured view, batch-loads every dropdown
// answer and option text in one query each, and rewrites dropdown cells into
// display text. Batching is deliberate: one query per row would explode on
// large row counts.
func (s *Synthesizer) FormList(ctx context.Context, formMasterID string) ([]domain.DataRow, error) {
	master, err := storage.FindFormMasterByID(ctx, s.db, formMasterID)
	if err != nil {
		return nil, err
	}
	listName := master.ViewName
	if listName == "" {
		listName = master.TableName
	}

	// Confirm the name against the live catalog before it reaches SQL text.
	if _, err := s.inspector.ListColumns(ctx, listName, domain.QueryAll); err != nil {
		if errors.Is(err, schema.ErrSchemaNotFound) {
			return []domain.DataRow{}, nil
		}
		return nil, err
	}
	pk, err := s.inspector.ResolvePrimaryKey(ctx, listName)
	if err != nil {
		return nil, err
	}

	rawRows, err := storage.ListRows(ctx, s.db, listName)
	if err != nil {
		return nil, err
	}
	rows, rowIDs := dropdown.ToDisplayRows(rawRows, pk.ColumnName)

	answers, err := s.resolver.AnswersForRows(ctx, rowIDs)
	if err != nil {
		return nil, err
	}
	optionTexts, err := s.resolver.OptionTextMap(ctx, answers)
	if err != nil {
		return nil, err
	}
	configs, err := storage.ListFieldConfigs(ctx, s.db, formMasterID)
	if err != nil {
		return nil, err
	}

	dropdown.RewriteAnswersAsText(rows, configs, answers, optionTexts)
	return rows, nil
}

// resolveOrCreateFormMaster finds the form whose base table or view carries
// the given name, or registers a draft one, resolving the primary key
// heuristically when possible. Lookup matches table or view so provisioning a
// bound view reuses the existing master instead of registering a second one.
func (s *Synthesizer) resolveOrCreateFormMaster(ctx context.Context, table string, queryType domain.SchemaQueryType) (string, error) {
	master, err := storage.FindFormMasterByName(ctx, s.db, table)
	if err == nil {
		return master.ID, nil
	}
	if !errors.Is(err, storage.ErrFormNotFound) {
		return "", err
	}

	candidate := &domain.FormMaster{
		Name:            table,
		TableName:       table,
		Status:          domain.FormDraft,
		SchemaQueryType: queryType,
	}
	if pk, pkErr := s.inspector.ResolvePrimaryKey(ctx, table); pkErr == nil {
		candidate.PKColumn = pk.ColumnName
	}
	return storage.GetOrCreateFormMaster(ctx, s.db, candidate)
}

// loadConfiguration loads field configs and rules for the form whose base
// table or view carries the given name, tolerating the name having no form
// yet. Configs join columns by name, so a view column and its base column
// share one configuration.
func (s *Synthesizer) loadConfiguration(ctx context.Context, table string) (map[string]domain.FieldConfig, map[string][]domain.ValidationRule, string, error) {
	master, err := storage.FindFormMasterByName(ctx, s.db, table)
	if errors.Is(err, storage.ErrFormNotFound) {
		return map[string]domain.FieldConfig{}, map[string][]domain.ValidationRule{}, "", nil
	}
	if err != nil {
		return nil, nil, "", err
	}

	configs, err := storage.ListFieldConfigs(ctx, s.db, master.ID)
	if err != nil {
		return nil, nil, "", err
	}
	configByColumn := make(map[string]domain.FieldConfig, len(configs))
	for _, fc := range configs {
		configByColumn[strings.ToLower(fc.ColumnName)] = fc
	}

	rules, err := storage.ListValidationRulesForForm(ctx, s.db, master.ID)
	if err != nil {
		return nil, nil, "", err
	}
	rulesByField := make(map[string][]domain.ValidationRule)
	for _, r := range rules {
		rulesByField[r.FieldConfigID] = append(rulesByField[r.FieldConfigID], r)
	}
	return configByColumn, rulesByField, master.ID, nil
}

// mergeFields joins live columns with persisted configuration, configuration
// winning where present.
func mergeFields(table, formMasterID string, columns []schema.ColumnInfo, configs map[string]domain.FieldConfig, rules map[string][]domain.ValidationRule) []Field {
	fields := make([]Field, 0, len(columns))
	for _, col := range columns {
		field := Field{
			FormMasterID:       formMasterID,
			TableName:          table,
			ColumnName:         col.Name,
			DeclaredType:       col.DeclaredType,
			OrdinalPosition:    col.OrdinalPosition,
			ControlTypeOptions: core.ControlTypesForDataType(col.DeclaredType),
			IsVisible:          true,
			IsEditable:         true,
			DisplayWidth:       core.DefaultDisplayWidth,
			DisplayOrder:       col.OrdinalPosition,
		}
		if fc, ok := configs[strings.ToLower(col.Name)]; ok {
			field.FieldConfigID = fc.ID
			field.ControlType = fc.ControlType
			field.DefaultValue = fc.DefaultValue
			field.IsVisible = fc.IsVisible
			field.IsEditable = fc.IsEditable
			field.DisplayWidth = fc.DisplayWidth
			field.DisplayOrder = fc.DisplayOrder
			field.Rules = rules[fc.ID]
			field.IsValidationRule = len(rules[fc.ID]) > 0
		}
		fields = append(fields, field)
	}
	return fields
}
