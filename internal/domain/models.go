// internal/domain/models.go
package domain

import "time"

// ControlType is the UI control rendered for a configured field.
// The empty string means the operator has not picked one yet.
type ControlType string

const (
	ControlTypeUnset    ControlType = ""
	ControlTypeText     ControlType = "TEXT"
	ControlTypeNumber   ControlType = "NUMBER"
	ControlTypeDate     ControlType = "DATE"
	ControlTypeCheckbox ControlType = "CHECKBOX"
	ControlTypeTextarea ControlType = "TEXTAREA"
	ControlTypeDropdown ControlType = "DROPDOWN"
)

// RuleKind identifies a validation rule attached to a field.
type RuleKind string

const (
	RuleRequired RuleKind = "REQUIRED"
	RuleMin      RuleKind = "MIN"
	RuleMax      RuleKind = "MAX"
	RuleRegex    RuleKind = "REGEX"
	RuleEmail    RuleKind = "EMAIL"
	RuleNumber   RuleKind = "NUMBER"
)

// SchemaQueryType selects whether inspection targets base tables, views, or both.
type SchemaQueryType string

const (
	QueryOnlyTable SchemaQueryType = "ONLY_TABLE"
	QueryOnlyView  SchemaQueryType = "ONLY_VIEW"
	QueryAll       SchemaQueryType = "ALL"
)

// FormStatus is the lifecycle state of a configured form.
type FormStatus int

const (
	FormDraft    FormStatus = 0
	FormActive   FormStatus = 1
	FormDisabled FormStatus = 2
)

// User defines the structure for user data in the DB
type User struct {
	UserId       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FormMaster is one configured form bound to a base table and (optionally) a view.
type FormMaster struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TableName       string          `json:"table_name"`
	TableID         string          `json:"table_id,omitempty"`
	ViewName        string          `json:"view_name,omitempty"`
	ViewID          string          `json:"view_id,omitempty"`
	PKColumn        string          `json:"pk_column,omitempty"`
	Status          FormStatus      `json:"status"`
	SchemaQueryType SchemaQueryType `json:"schema_query_type"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FieldConfig is the persisted per-column configuration of a form.
// Unique per (FormMasterID, ColumnName).
type FieldConfig struct {
	ID           string      `json:"id"`
	FormMasterID string      `json:"form_master_id"`
	TableName    string      `json:"table_name"`
	ColumnName   string      `json:"column_name"`
	ControlType  ControlType `json:"control_type"`
	DefaultValue string      `json:"default_value"`
	IsVisible    bool        `json:"is_visible"`
	IsEditable   bool        `json:"is_editable"`
	DisplayWidth int         `json:"display_width"`
	DisplayOrder int         `json:"display_order"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ValidationRule belongs to exactly one FieldConfig. Order is unique and
// increasing per field.
type ValidationRule struct {
	ID            string    `json:"id"`
	FieldConfigID string    `json:"field_config_id"`
	Kind          RuleKind  `json:"kind"`
	Value         string    `json:"value"`
	Message       string    `json:"message"`
	MessageLocal  string    `json:"message_local"`
	Order         int       `json:"order"`
	CreatedAt     time.Time `json:"created_at"`
}

// Dropdown is the 1:1 option-source binding of a field: either a fixed option
// list or an ad-hoc read-only SQL query.
type Dropdown struct {
	ID            string           `json:"id,omitempty"`
	FieldConfigID string           `json:"field_config_id"`
	IsUseSQL      bool             `json:"is_use_sql"`
	SQLText       string           `json:"sql_text,omitempty"`
	Options       []DropdownOption `json:"options"`
}

// DropdownOption is one selectable option. OptionTable marks rows sourced from
// SQL as opposed to manually entered ones.
type DropdownOption struct {
	ID          string `json:"id"`
	DropdownID  string `json:"dropdown_id"`
	Text        string `json:"text"`
	OptionTable string `json:"option_table,omitempty"`
}

// DropdownAnswer records the chosen option for one data row and one dropdown
// field. It references the data row by its primary-key value as text.
type DropdownAnswer struct {
	FieldConfigID string `json:"field_config_id"`
	RowPK         string `json:"row_pk"`
	OptionID      string `json:"option_id"`
}

// DataRow is one row of a listed table/view, keyed by its primary-key value.
type DataRow struct {
	ID    string         `json:"row_id"`
	Cells map[string]any `json:"cells"`
}
