// api/models/form_models.go
package models

import "github.com/formbridge/formbridge-backend/internal/domain"

// --- Schema / field designer DTOs ---

// FieldListRequest selects which catalog objects a field listing may target.
type FieldListRequest struct {
	Name            string `form:"name" binding:"required"`
	SchemaQueryType string `form:"schema_query_type"`
}

// FieldUpsertRequest carries the editable settings of one field configuration.
type FieldUpsertRequest struct {
	ID           string `json:"id"`
	FormMasterID string `json:"form_master_id"`
	TableName    string `json:"table_name"`
	ColumnName   string `json:"column_name"`
	ControlType  string `json:"control_type"`
	DefaultValue string `json:"default_value"`
	IsVisible    bool   `json:"is_visible"`
	IsEditable   bool   `json:"is_editable"`
	DisplayWidth int    `json:"display_width" binding:"omitempty,min=0"`
	DisplayOrder int    `json:"display_order" binding:"omitempty,min=0"`
}

// FormUpdateRequest carries the editable header settings of a form.
type FormUpdateRequest struct {
	Name            string `json:"name" binding:"required"`
	ViewName        string `json:"view_name"`
	PKColumn        string `json:"pk_column"`
	Status          int    `json:"status" binding:"min=0,max=2"`
	SchemaQueryType string `json:"schema_query_type"`
}

// --- Validation rule DTOs ---

// RuleCreateRequest adds one validation rule to a field.
type RuleCreateRequest struct {
	Kind         string `json:"kind" binding:"required"`
	Value        string `json:"value"`
	Message      string `json:"message" binding:"required"`
	MessageLocal string `json:"message_local"`
}

// RuleUpdateRequest edits an existing rule's value and messages.
type RuleUpdateRequest struct {
	Value        string `json:"value"`
	Message      string `json:"message" binding:"required"`
	MessageLocal string `json:"message_local"`
}

// --- Dropdown DTOs ---

// DropdownSQLRequest sets the SQL source of a field's dropdown binding.
type DropdownSQLRequest struct {
	SQLText string `json:"sql_text" binding:"required"`
}

// DropdownModeRequest toggles a binding between fixed-list and SQL mode.
type DropdownModeRequest struct {
	IsUseSQL bool `json:"is_use_sql"`
}

// DropdownOptionRequest upserts one manually entered option.
type DropdownOptionRequest struct {
	ID   string `json:"id"`
	Text string `json:"text" binding:"required"`
}

// SQLPreviewRequest test-runs candidate dropdown SQL.
type SQLPreviewRequest struct {
	SQLText string `json:"sql_text" binding:"required"`
}

// --- Submission DTOs ---

// SubmissionRequest writes one form submission. Values are keyed by
// field-config id; every value travels as a string and is converted
// server-side against the live column types.
type SubmissionRequest struct {
	RowID  string            `json:"row_id"`
	Values map[string]string `json:"values" binding:"required"`
}

// SubmissionResponse reports the written row.
type SubmissionResponse struct {
	Message string `json:"message"`
	RowID   string `json:"row_id"`
}

// FormListResponse carries the display rows of a form's list screen. Total is
// the unwindowed row count so pagers can size themselves.
type FormListResponse struct {
	Rows  []domain.DataRow `json:"rows"`
	Total int              `json:"total"`
}
