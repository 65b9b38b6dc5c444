// api/handlers/field_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formbridge/formbridge-backend/api/models"
	"github.com/formbridge/formbridge-backend/internal/core"
	"github.com/formbridge/formbridge-backend/internal/domain"
	"github.com/formbridge/formbridge-backend/internal/forms"
)

// FieldHandler serves the field designer: synthesized field lists and
// per-field configuration writes.
type FieldHandler struct {
	Synth *forms.Synthesizer
}

func NewFieldHandler(synth *forms.Synthesizer) *FieldHandler {
	return &FieldHandler{Synth: synth}
}

// ListFields returns the synthesized field list for a table or view without
// touching stored configuration.
// GET /api/v1/fields?name=CUSTOMER&schema_query_type=ONLY_TABLE
func (h *FieldHandler) ListFields(c *gin.Context) {
	var req models.FieldListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(err)
		return
	}

	fields, err := h.Synth.FieldsByTable(c.Request.Context(), req.Name, core.ParseSchemaQueryType(req.SchemaQueryType))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// ProvisionFields persists default configuration for every unconfigured
// column of the named table or view and returns the merged result.
// POST /api/v1/fields/provision?name=CUSTOMER
func (h *FieldHandler) ProvisionFields(c *gin.Context) {
	var req models.FieldListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(err)
		return
	}

	fields, err := h.Synth.EnsureFieldsSaved(c.Request.Context(), req.Name, core.ParseSchemaQueryType(req.SchemaQueryType))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// UpsertField creates or updates one field configuration.
// PUT /api/v1/fields
func (h *FieldHandler) UpsertField(c *gin.Context) {
	var req models.FieldUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	fc, err := h.Synth.UpsertField(c.Request.Context(), &forms.FieldUpsert{
		ID:           req.ID,
		FormMasterID: req.FormMasterID,
		TableName:    req.TableName,
		ColumnName:   req.ColumnName,
		ControlType:  domain.ControlType(req.ControlType),
		DefaultValue: req.DefaultValue,
		IsVisible:    req.IsVisible,
		IsEditable:   req.IsEditable,
		DisplayWidth: req.DisplayWidth,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fc)
}
