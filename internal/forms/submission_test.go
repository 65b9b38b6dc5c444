// internal/forms/submission_test.go
package forms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formbridge/formbridge-backend/internal/storage"
)

func TestSubmitInsertWithIdentityKey(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, fieldIDs := setupOrderForm(t, env)

	assert.NoError(env.resolver.EnsureBinding(ctx, fieldIDs["Status"], false, ""))
	binding, err := env.resolver.Binding(ctx, fieldIDs["Status"])
	assert.NoError(err)
	optionID, err := env.resolver.SaveOption(ctx, "", binding.ID, "Open")
	assert.NoError(err)

	values := map[string]string{
		fieldIDs["Total"]:  "150.75",
		fieldIDs["Status"]: optionID,
		fieldIDs["Name"]:   "ignored", // sourced from CUSTOMER, must be dropped
		"unknown-field-id": "ignored",
	}

	rowID, err := env.engine.Submit(ctx, formID, "", values)
	assert.NoError(err)
	assert.Equal("1", rowID, "identity key assigned by the database")

	row, err := storage.GetRowByPK(ctx, env.db, "ORDERS", "OrderID", int64(1))
	assert.NoError(err)
	assert.InDelta(150.75, row["Total"], 0.001)
	assert.Nil(row["Status"], "dropdown choices live in answers, not the base column")

	answers, err := storage.ListAnswersForRows(ctx, env.db, []string{rowID})
	assert.NoError(err)
	if assert.Len(answers, 1) {
		assert.Equal(optionID, answers[0].OptionID)
		assert.Equal(rowID, answers[0].RowPK)
	}

	// The customer name must not have leaked into the base table.
	_, hasName := row["Name"]
	assert.False(hasName)
}

func TestSubmitUpdateExistingRow(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, fieldIDs := setupOrderForm(t, env)

	_, err := env.db.Exec(`INSERT INTO ORDERS (OrderID, CustomerID, Total, Status) VALUES (5, 1, 10.00, NULL)`)
	assert.NoError(err)

	rowID, err := env.engine.Submit(ctx, formID, "5", map[string]string{
		fieldIDs["Total"]: "88.00",
	})
	assert.NoError(err)
	assert.Equal("5", rowID)

	row, err := storage.GetRowByPK(ctx, env.db, "ORDERS", "OrderID", int64(5))
	assert.NoError(err)
	assert.InDelta(88.00, row["Total"], 0.001)
}

func TestSubmitAnswerOnlyUpdate(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, fieldIDs := setupOrderForm(t, env)

	_, err := env.db.Exec(`INSERT INTO ORDERS (OrderID, CustomerID, Total) VALUES (3, 1, 42.00)`)
	assert.NoError(err)

	assert.NoError(env.resolver.EnsureBinding(ctx, fieldIDs["Status"], false, ""))
	binding, err := env.resolver.Binding(ctx, fieldIDs["Status"])
	assert.NoError(err)
	first, err := env.resolver.SaveOption(ctx, "", binding.ID, "Open")
	assert.NoError(err)
	second, err := env.resolver.SaveOption(ctx, "", binding.ID, "Closed")
	assert.NoError(err)

	_, err = env.engine.Submit(ctx, formID, "3", map[string]string{fieldIDs["Status"]: first})
	assert.NoError(err)
	_, err = env.engine.Submit(ctx, formID, "3", map[string]string{fieldIDs["Status"]: second})
	assert.NoError(err)

	answers, err := storage.ListAnswersForRows(ctx, env.db, []string{"3"})
	assert.NoError(err)
	if assert.Len(answers, 1, "resubmission overwrites the stored choice") {
		assert.Equal(second, answers[0].OptionID)
	}

	// The scalar column is untouched by answer-only submissions.
	row, err := storage.GetRowByPK(ctx, env.db, "ORDERS", "OrderID", int64(3))
	assert.NoError(err)
	assert.InDelta(42.00, row["Total"], 0.001)
}

func TestSubmitDropsMalformedOptionIDs(t *testing.T) {
	env := testEnvSetup(t)
	ctx := context.Background()
	assert := assert.New(t)

	formID, fieldIDs := setupOrderForm(t, env)

	rowID, err := env.engine.Submit(ctx, formID, "", map[string]string{
		fieldIDs["Total"]:  "12.00",
		fieldIDs["Status"]: "not-a-uuid",
	})
	assert.NoError(err)

	answers, err := storage.ListAnswersForRows(ctx, env.db, []string{rowID})
	assert.NoError(err)
	assert.Empty(answers, "a malformed option id never reaches the answer store")
}

func TestSubmitUnknownForm(t *testing.T) {
	env := testEnvSetup(t)

	_, err := env.engine.Submit(context.Background(), "missing-form", "", map[string]string{})
	assert.ErrorIs(t, err, storage.ErrFormNotFound)
}
