// internal/forms/synthesizer_test.go
package forms_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/formbridge/formbridge-backend/config"
	"github.com/formbridge/formbridge-backend/internal/domain"
	"github.com/formbridge/formbridge-backend/internal/dropdown"
	"github.com/formbridge/formbridge-backend/internal/forms"
	"github.com/formbridge/formbridge-backend/internal/schema"
	"github.com/formbridge/formbridge-backend/internal/storage"
)

type testEnv struct {
	db        *sql.DB
	cfg       *config.Config
	inspector *schema.Inspector
	resolver  *dropdown.Resolver
	synth     *forms.Synthesizer
	engine    *forms.Engine
}

// testEnvSetup creates a temporary SQLite DB with the application tables plus
// operator tables and a joined view.
func testEnvSetup(t *testing.T) *testEnv {
	t.Helper()

	tempDir := t.TempDir()
	cfg := &config.Config{
		ServerPort:      ":0",
		JWTSecret:       "test_secret_key_for_forms_tests_1234567890",
		JWTExpiration:   time.Minute * 5,
		AppDbDir:        tempDir,
		AppDbFile:       "test_app.db",
		ViewNamePrefix:  "V_",
		PKNameFragments: []string{"ID"},
		LineageCacheTTL: time.Minute,
	}

	db, err := storage.ConnectAppDB(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	statements := []string{
		`CREATE TABLE CUSTOMER (
			CustomerID INTEGER PRIMARY KEY,
			Name NVARCHAR(100),
			Email NVARCHAR(255)
		)`,
		`CREATE TABLE ORDERS (
			OrderID INTEGER PRIMARY KEY,
			CustomerID INTEGER,
			Total DECIMAL(18,2),
			Status NVARCHAR(20)
		)`,
		`CREATE VIEW V_ORDER AS
			SELECT o.OrderID, o.Total, o.Status, c.Name
			FROM ORDERS o JOIN CUSTOMER c ON c.CustomerID = o.CustomerID`,
		`INSERT INTO CUSTOMER (CustomerID, Name, Email) VALUES (1, 'Acme Corp', 'ops@acme.example')`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create operator schema: %v", err)
		}
	}

	inspector := schema.NewInspector(db, cfg)
	resolver := dropdown.NewResolver(db)
	return &testEnv{
		db:        db,
		cfg:       cfg,
		inspector: inspector,
		resolver:  resolver,
		synth:     forms.NewSynthesizer(db, cfg, inspector, resolver),
		engine:    forms.NewEngine(db, cfg, inspector),
	}
}

func TestFieldsByTableWithoutConfiguration(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	fields, err := env.synth.FieldsByTable(ctx, "CUSTOMER", domain.QueryOnlyTable)
	assert.NoError(err)

	if assert.Len(fields, 3) {
		for _, f := range fields {
			assert.True(f.IsVisible, "unconfigured field defaults to visible")
			assert.True(f.IsEditable, "unconfigured field defaults to editable")
			assert.Equal(domain.ControlTypeUnset, f.ControlType)
			assert.False(f.IsValidationRule)
			assert.Empty(f.FieldConfigID)
			assert.NotEmpty(f.ControlTypeOptions)
		}
		assert.Equal("CustomerID", fields[0].ColumnName)
		assert.Equal(1, fields[0].OrdinalPosition)
	}

	t.Run("unknown table degrades to empty list", func(t *testing.T) {
		fields, err := env.synth.FieldsByTable(ctx, "NO_SUCH_TABLE", domain.QueryAll)
		assert.NoError(err)
		assert.Empty(fields)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := env.synth.FieldsByTable(ctx, "  ", domain.QueryAll)
		assert.ErrorIs(err, forms.ErrMissingRequiredName)
	})
}

func TestEnsureFieldsSavedIdempotent(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	fields, err := env.synth.EnsureFieldsSaved(ctx, "CUSTOMER", domain.QueryOnlyTable)
	assert.NoError(err)
	if assert.Len(fields, 3) {
		for _, f := range fields {
			assert.NotEmpty(f.FieldConfigID, "every column gets a persisted config")
			assert.NotEmpty(f.FormMasterID)
		}
	}

	again, err := env.synth.EnsureFieldsSaved(ctx, "CUSTOMER", domain.QueryOnlyTable)
	assert.NoError(err)
	if assert.Len(again, 3) {
		for i := range again {
			assert.Equal(fields[i].FieldConfigID, again[i].FieldConfigID, "second call must not duplicate configs")
		}
	}

	t.Run("unknown table propagates the error", func(t *testing.T) {
		_, err := env.synth.EnsureFieldsSaved(ctx, "NO_SUCH_TABLE", domain.QueryAll)
		assert.ErrorIs(err, schema.ErrSchemaNotFound)
	})
}

func TestUpsertFieldControlTypeFreeze(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	fields, err := env.synth.EnsureFieldsSaved(ctx, "CUSTOMER", domain.QueryOnlyTable)
	assert.NoError(err)

	var emailField forms.Field
	for _, f := range fields {
		if f.ColumnName == "Email" {
			emailField = f
		}
	}
	assert.NotEmpty(emailField.FieldConfigID)

	// Pick a control type while no rules exist.
	fc, err := env.synth.UpsertField(ctx, &forms.FieldUpsert{
		ID: emailField.FieldConfigID, ControlType: domain.ControlTypeText,
		IsVisible: true, IsEditable: true, DisplayWidth: 150, DisplayOrder: 3,
	})
	assert.NoError(err)
	assert.Equal(domain.ControlTypeText, fc.ControlType)

	rule, err := env.synth.AddRule(ctx, emailField.FieldConfigID, domain.RuleEmail, "", "must be an email", "")
	assert.NoError(err)
	assert.Equal(1, rule.Order)

	t.Run("change rejected while rules exist", func(t *testing.T) {
		_, err := env.synth.UpsertField(ctx, &forms.FieldUpsert{
			ID: emailField.FieldConfigID, ControlType: domain.ControlTypeTextarea,
			IsVisible: true, IsEditable: true, DisplayWidth: 150, DisplayOrder: 3,
		})
		assert.ErrorIs(err, forms.ErrControlTypeChangeRejected)
	})

	t.Run("same type still editable", func(t *testing.T) {
		fc, err := env.synth.UpsertField(ctx, &forms.FieldUpsert{
			ID: emailField.FieldConfigID, ControlType: domain.ControlTypeText,
			IsVisible: false, IsEditable: true, DisplayWidth: 200, DisplayOrder: 3,
		})
		assert.NoError(err)
		assert.False(fc.IsVisible)
	})

	t.Run("change allowed after rules are gone", func(t *testing.T) {
		assert.NoError(env.synth.DeleteRule(ctx, rule.ID))
		fc, err := env.synth.UpsertField(ctx, &forms.FieldUpsert{
			ID: emailField.FieldConfigID, ControlType: domain.ControlTypeTextarea,
			IsVisible: true, IsEditable: true, DisplayWidth: 150, DisplayOrder: 3,
		})
		assert.NoError(err)
		assert.Equal(domain.ControlTypeTextarea, fc.ControlType)
	})

	t.Run("unknown control type rejected", func(t *testing.T) {
		_, err := env.synth.UpsertField(ctx, &forms.FieldUpsert{
			ID: emailField.FieldConfigID, ControlType: domain.ControlType("SLIDER"),
		})
		assert.ErrorIs(err, forms.ErrUnknownControlType)
	})
}

func TestAddRuleWhitelist(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	fields, err := env.synth.EnsureFieldsSaved(ctx, "CUSTOMER", domain.QueryOnlyTable)
	assert.NoError(err)

	var nameField forms.Field
	for _, f := range fields {
		if f.ColumnName == "Name" {
			nameField = f
		}
	}
	_, err = env.synth.UpsertField(ctx, &forms.FieldUpsert{
		ID: nameField.FieldConfigID, ControlType: domain.ControlTypeText,
		IsVisible: true, IsEditable: true, DisplayWidth: 100, DisplayOrder: 2,
	})
	assert.NoError(err)

	_, err = env.synth.AddRule(ctx, nameField.FieldConfigID, domain.RuleMin, "5", "too short", "")
	assert.ErrorIs(err, forms.ErrRuleKindNotAllowed, "MIN is not legal on a text control")

	_, err = env.synth.AddRule(ctx, nameField.FieldConfigID, domain.RuleRequired, "", "required", "")
	assert.NoError(err)

	t.Run("rules surface in synthesized fields", func(t *testing.T) {
		fields, err := env.synth.FieldsByTable(ctx, "CUSTOMER", domain.QueryOnlyTable)
		assert.NoError(err)
		for _, f := range fields {
			if f.ColumnName == "Name" {
				assert.True(f.IsValidationRule)
				assert.Len(f.Rules, 1)
			}
		}
	})
}

// setupOrderForm registers a form bound to ORDERS with V_ORDER as its list
// view and provisions field configs against the view's columns.
func setupOrderForm(t *testing.T, env *testEnv) (string, map[string]string) {
	t.Helper()
	ctx := context.Background()

	formID, err := storage.GetOrCreateFormMaster(ctx, env.db, &domain.FormMaster{
		Name: "Orders", TableName: "ORDERS", ViewName: "V_ORDER", PKColumn: "OrderID",
		Status: domain.FormActive, SchemaQueryType: domain.QueryAll,
	})
	if err != nil {
		t.Fatalf("Failed to create order form: %v", err)
	}

	fieldIDs := make(map[string]string)
	for i, col := range []string{"OrderID", "Total", "Status", "Name"} {
		fc := &domain.FieldConfig{
			ID: uuid.New().String(), FormMasterID: formID, TableName: "V_ORDER", ColumnName: col,
			IsVisible: true, IsEditable: true, DisplayWidth: 100, DisplayOrder: i + 1,
		}
		if col == "Status" {
			fc.ControlType = domain.ControlTypeDropdown
		}
		if err := storage.InsertFieldConfig(ctx, env.db, fc); err != nil {
			t.Fatalf("Failed to insert field config for %s: %v", col, err)
		}
		fieldIDs[col] = fc.ID
	}
	return formID, fieldIDs
}

func TestEnsureFieldsSavedOnBoundViewReusesForm(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, fieldIDs := setupOrderForm(t, env)

	// Provisioning by view name must resolve to the form bound to ORDERS,
	// not register a second master for V_ORDER.
	fields, err := env.synth.EnsureFieldsSaved(ctx, "V_ORDER", domain.QueryOnlyView)
	assert.NoError(err)
	assert.Len(fields, 4)

	var masterCount int
	err = env.db.QueryRow(`SELECT COUNT(*) FROM form_masters`).Scan(&masterCount)
	assert.NoError(err)
	assert.Equal(1, masterCount, "bound view must reuse the existing form master")

	for _, f := range fields {
		assert.Equal(formID, f.FormMasterID)
		assert.Equal(fieldIDs[f.ColumnName], f.FieldConfigID, "existing configuration for %s must survive", f.ColumnName)
	}

	configs, err := storage.ListFieldConfigs(ctx, env.db, formID)
	assert.NoError(err)
	assert.Len(configs, 4, "no duplicate field configs after provisioning the view")
}

func TestSubmissionFieldsViewEditability(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, _ := setupOrderForm(t, env)

	fields, err := env.synth.SubmissionFields(ctx, formID, "")
	assert.NoError(err)

	editable := make(map[string]bool)
	sources := make(map[string]string)
	for _, f := range fields {
		editable[f.ColumnName] = f.IsEditable
		sources[f.ColumnName] = f.SourceTable
	}

	assert.True(editable["Total"], "view column backed by the base table stays editable")
	assert.True(editable["Status"], "view column backed by the base table stays editable")
	assert.False(editable["Name"], "column sourced from a joined table is read-only")
	assert.Equal("ORDERS", sources["Total"])
	assert.Equal("CUSTOMER", sources["Name"])
}

func TestSubmissionFieldsLoadsCurrentValues(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, fieldIDs := setupOrderForm(t, env)

	_, err := env.db.Exec(`INSERT INTO ORDERS (OrderID, CustomerID, Total, Status) VALUES (7, 1, 99.50, 'legacy')`)
	assert.NoError(err)

	// Record a dropdown answer for the Status field of row 7.
	assert.NoError(env.resolver.EnsureBinding(ctx, fieldIDs["Status"], false, ""))
	binding, err := env.resolver.Binding(ctx, fieldIDs["Status"])
	assert.NoError(err)
	optionID, err := env.resolver.SaveOption(ctx, "", binding.ID, "Open")
	assert.NoError(err)
	assert.NoError(storage.UpsertDropdownAnswer(ctx, env.db, fieldIDs["Status"], "7", optionID))

	fields, err := env.synth.SubmissionFields(ctx, formID, "7")
	assert.NoError(err)

	values := make(map[string]any)
	for _, f := range fields {
		values[f.ColumnName] = f.CurrentValue
	}
	assert.Equal("Acme Corp", values["Name"])
	assert.Equal(optionID, values["Status"], "dropdown fields carry the chosen option id, not its text")
	assert.NotNil(values["Total"])
}

func TestFormListRewritesDropdownCells(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, fieldIDs := setupOrderForm(t, env)

	_, err := env.db.Exec(`INSERT INTO ORDERS (OrderID, CustomerID, Total, Status) VALUES (1, 1, 10.00, 'raw'), (2, 1, 20.00, 'raw')`)
	assert.NoError(err)

	assert.NoError(env.resolver.EnsureBinding(ctx, fieldIDs["Status"], false, ""))
	binding, err := env.resolver.Binding(ctx, fieldIDs["Status"])
	assert.NoError(err)
	optionID, err := env.resolver.SaveOption(ctx, "", binding.ID, "Open")
	assert.NoError(err)
	assert.NoError(storage.UpsertDropdownAnswer(ctx, env.db, fieldIDs["Status"], "1", optionID))

	rows, err := env.synth.FormList(ctx, formID)
	assert.NoError(err)

	if assert.Len(rows, 2) {
		byID := make(map[string]domain.DataRow)
		for _, r := range rows {
			byID[r.ID] = r
		}
		assert.Equal("Open", byID["1"].Cells["Status"], "answered dropdown cell shows option text")
		assert.Equal("raw", byID["2"].Cells["Status"], "unanswered cell keeps the raw value")
		assert.Equal("Acme Corp", byID["1"].Cells["Name"])
	}
}
