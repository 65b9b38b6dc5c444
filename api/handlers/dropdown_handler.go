// api/handlers/dropdown_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formbridge/formbridge-backend/api/models"
	"github.com/formbridge/formbridge-backend/internal/dropdown"
)

// DropdownHandler serves dropdown bindings, options and SQL previews.
type DropdownHandler struct {
	Resolver *dropdown.Resolver
}

func NewDropdownHandler(resolver *dropdown.Resolver) *DropdownHandler {
	return &DropdownHandler{Resolver: resolver}
}

// GetBinding returns the field's dropdown binding with its options.
// GET /api/v1/fields/:field_id/dropdown
func (h *DropdownHandler) GetBinding(c *gin.Context) {
	fieldID := c.Param("field_id")

	binding, err := h.Resolver.Binding(c.Request.Context(), fieldID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, binding)
}

// CreateBinding registers an empty fixed-list binding for the field if none
// exists yet.
// POST /api/v1/fields/:field_id/dropdown
func (h *DropdownHandler) CreateBinding(c *gin.Context) {
	fieldID := c.Param("field_id")

	if err := h.Resolver.EnsureBinding(c.Request.Context(), fieldID, false, ""); err != nil {
		_ = c.Error(err)
		return
	}

	binding, err := h.Resolver.Binding(c.Request.Context(), fieldID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, binding)
}

// SetSQLSource stores the field's SQL option source after screening it.
// PUT /api/v1/fields/:field_id/dropdown/sql
func (h *DropdownHandler) SetSQLSource(c *gin.Context) {
	fieldID := c.Param("field_id")

	var req models.DropdownSQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.Resolver.SetSQLSource(c.Request.Context(), fieldID, req.SQLText); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dropdown SQL source saved"})
}

// SetMode toggles the binding between fixed-list and SQL-sourced options.
// PUT /api/v1/dropdowns/:dropdown_id/mode
func (h *DropdownHandler) SetMode(c *gin.Context) {
	dropdownID := c.Param("dropdown_id")

	var req models.DropdownModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.Resolver.SetMode(c.Request.Context(), dropdownID, req.IsUseSQL); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dropdown mode updated"})
}

// SaveOption upserts one manually entered option.
// POST /api/v1/dropdowns/:dropdown_id/options
func (h *DropdownHandler) SaveOption(c *gin.Context) {
	dropdownID := c.Param("dropdown_id")

	var req models.DropdownOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	optionID, err := h.Resolver.SaveOption(c.Request.Context(), req.ID, dropdownID, req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"option_id": optionID})
}

// DeleteOption removes one option.
// DELETE /api/v1/options/:option_id
func (h *DropdownHandler) DeleteOption(c *gin.Context) {
	optionID := c.Param("option_id")

	if err := h.Resolver.DeleteOption(c.Request.Context(), optionID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Option deleted successfully"})
}

// RefreshOptions re-runs the field's SQL source and replaces its SQL-sourced
// options with the current result.
// POST /api/v1/fields/:field_id/dropdown/refresh
func (h *DropdownHandler) RefreshOptions(c *gin.Context) {
	fieldID := c.Param("field_id")

	options, err := h.Resolver.RefreshSQLOptions(c.Request.Context(), fieldID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// PreviewSQL screens and test-runs candidate dropdown SQL. The outcome is
// always a 200 with a structured result; a failing query is a preview result,
// not an API error.
// POST /api/v1/dropdowns/preview
func (h *DropdownHandler) PreviewSQL(c *gin.Context) {
	var req models.SQLPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	result := h.Resolver.ValidateReadOnlySQL(c.Request.Context(), req.SQLText)
	c.JSON(http.StatusOK, result)
}
