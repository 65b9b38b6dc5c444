// internal/dropdown/resolver_test.go
package dropdown_test

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
	"github.com/formbridge/formbridge-backend/internal/storage"
)

func testResolverSetup(t *testing.T) (*dropdown.Resolver, *sql.DB) {
	t.Helper()

	tempDir := t.TempDir()
	testCfg := &config.Config{
		ServerPort:      ":0",
		JWTSecret:       "test_secret_key_for_dropdown_tests_1234567890",
		JWTExpiration:   time.Minute * 5,
		AppDbDir:        tempDir,
		AppDbFile:       "test_app.db",
		ViewNamePrefix:  "V_",
		PKNameFragments: []string{"ID"},
		LineageCacheTTL: time.Minute,
	}

	db, err := storage.ConnectAppDB(testCfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	statements := []string{
		`CREATE TABLE STATUS_CODE (Code NVARCHAR(10), Description NVARCHAR(100))`,
		`INSERT INTO STATUS_CODE (Code, Description) VALUES ('OPN', 'Open'), ('CLS', 'Closed')`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to seed test data: %v", err)
		}
	}

	return dropdown.NewResolver(db), db
}

func testFieldSetup(t *testing.T, db *sql.DB) string {
	t.Helper()
	ctx := context.Background()

	formID, err := storage.GetOrCreateFormMaster(ctx, db, &domain.FormMaster{
		Name: "ORDERS", TableName: "ORDERS", Status: domain.FormDraft, SchemaQueryType: domain.QueryAll,
	})
	if err != nil {
		t.Fatalf("Failed to create test form: %v", err)
	}
	fc := &domain.FieldConfig{
		ID: uuid.New().String(), FormMasterID: formID, TableName: "ORDERS", ColumnName: "Status",
		ControlType: domain.ControlTypeDropdown, IsVisible: true, IsEditable: true, DisplayWidth: 100,
	}
	if err := storage.InsertFieldConfig(ctx, db, fc); err != nil {
		t.Fatalf("Failed to insert test field config: %v", err)
	}
	return fc.ID
}

func TestValidateReadOnlySQL(t *testing.T) {
	resolver, _ := testResolverSetup(t)
	ctx := context.Background()

	testCases := []struct {
		name        string
		sqlText     string
		wantSuccess bool
		wantRows    int
	}{
		{"select allowed", "SELECT Description FROM STATUS_CODE", true, 2},
		{"select one", "SELECT 1", true, 1},
		{"delete rejected", "DELETE FROM STATUS_CODE", false, 0},
		{"lowercase drop rejected", "drop table STATUS_CODE", false, 0},
		{"mixed case update rejected", "UpDaTe STATUS_CODE SET Code = 'X'", false, 0},
		{"embedded keyword rejected", "SELECT 1; DROP TABLE STATUS_CODE", false, 0},
		{"empty rejected", "   ", false, 0},
		{"broken query reported not thrown", "SELECT * FROM NO_SUCH_TABLE", false, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := resolver.ValidateReadOnlySQL(ctx, tc.sqlText)
			if result.Success != tc.wantSuccess {
				t.Fatalf("ValidateReadOnlySQL(%q).Success = %v (%s); want %v", tc.sqlText, result.Success, result.Message, tc.wantSuccess)
			}
			if result.RowCount != tc.wantRows {
				t.Errorf("ValidateReadOnlySQL(%q).RowCount = %d; want %d", tc.sqlText, result.RowCount, tc.wantRows)
			}
		})
	}
}

func TestValidateReadOnlySQLSampleLimit(t *testing.T) {
	resolver, db := testResolverSetup(t)
	assert := assert.New(t)

	for i := 0; i < 25; i++ {
		_, err := db.Exec(`INSERT INTO STATUS_CODE (Code, Description) VALUES ('X', 'Filler')`)
		assert.NoError(err)
	}

	result := resolver.ValidateReadOnlySQL(context.Background(), "SELECT Code FROM STATUS_CODE")
	assert.True(result.Success)
	assert.Equal(27, result.RowCount, "count covers all rows")
	assert.Len(result.Rows, dropdown.PreviewSampleLimit, "samples stay capped")
}

func TestSetSQLSourceScreening(t *testing.T) {
	resolver, db := testResolverSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	fieldID := testFieldSetup(t, db)

	assert.ErrorIs(resolver.SetSQLSource(ctx, fieldID, "DELETE FROM STATUS_CODE"), dropdown.ErrSQLRejected)
	assert.NoError(resolver.SetSQLSource(ctx, fieldID, "SELECT Description FROM STATUS_CODE"))
}

func TestRefreshSQLOptions(t *testing.T) {
	resolver, db := testResolverSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	fieldID := testFieldSetup(t, db)
	assert.NoError(resolver.SetSQLSource(ctx, fieldID, "SELECT Description FROM STATUS_CODE"))

	binding, err := resolver.Binding(ctx, fieldID)
	assert.NoError(err)
	_, err = resolver.SaveOption(ctx, "", binding.ID, "Manual entry")
	assert.NoError(err)

	options, err := resolver.RefreshSQLOptions(ctx, fieldID)
	assert.NoError(err)
	assert.Len(options, 3, "two SQL-sourced options plus the manual one")

	// A second refresh replaces, never accumulates.
	options, err = resolver.RefreshSQLOptions(ctx, fieldID)
	assert.NoError(err)
	assert.Len(options, 3)

	t.Run("refresh without sql binding rejected", func(t *testing.T) {
		_, err := resolver.RefreshSQLOptions(ctx, "no-such-field")
		assert.ErrorIs(err, dropdown.ErrSQLRejected)
	})
}

func TestToDisplayRows(t *testing.T) {
	assert := assert.New(t)

	raw := []map[string]any{
		{"OrderID": int64(1), "Total": "10.00"},
		{"OrderID": int64(2), "Total": "20.00"},
		{"Total": "30.00"}, // row without a pk cell
	}

	rows, rowIDs := dropdown.ToDisplayRows(raw, "orderid")
	assert.Len(rows, 3)
	assert.Equal([]string{"1", "2"}, rowIDs)
	assert.Equal("1", rows[0].ID)
	assert.Empty(rows[2].ID)
}

func TestRewriteAnswersAsText(t *testing.T) {
	assert := assert.New(t)

	fields := []domain.FieldConfig{
		{ID: "f-status", ColumnName: "Status", ControlType: domain.ControlTypeDropdown},
		{ID: "f-total", ColumnName: "Total", ControlType: domain.ControlTypeNumber},
	}
	rows := []domain.DataRow{
		{ID: "1", Cells: map[string]any{"Status": "opt-1", "Total": "10.00"}},
		{ID: "2", Cells: map[string]any{"Status": "raw", "Total": "20.00"}},
	}
	answers := []domain.DropdownAnswer{
		{FieldConfigID: "f-status", RowPK: "1", OptionID: "opt-1"},
	}
	optionTexts := map[string]string{"opt-1": "Open"}

	dropdown.RewriteAnswersAsText(rows, fields, answers, optionTexts)

	assert.Equal("Open", rows[0].Cells["Status"], "answered dropdown cell rewritten")
	assert.Equal("10.00", rows[0].Cells["Total"], "non-dropdown cell untouched")
	assert.Equal("raw", rows[1].Cells["Status"], "row without an answer untouched")
}
