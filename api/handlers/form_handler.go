// api/handlers/form_handler.go
package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formbridge/formbridge-backend/api/models"
	"github.com/formbridge/formbridge-backend/internal/core"
	"github.com/formbridge/formbridge-backend/internal/domain"
	"github.com/formbridge/formbridge-backend/internal/forms"
	"github.com/formbridge/formbridge-backend/internal/schema"
	"github.com/formbridge/formbridge-backend/internal/storage"
)

// FormHandler serves form headers, list screens and submissions.
type FormHandler struct {
	DB        *sql.DB
	Synth     *forms.Synthesizer
	Engine    *forms.Engine
	Inspector *schema.Inspector
}

func NewFormHandler(db *sql.DB, synth *forms.Synthesizer, engine *forms.Engine, inspector *schema.Inspector) *FormHandler {
	return &FormHandler{DB: db, Synth: synth, Engine: engine, Inspector: inspector}
}

// GetForm returns one form header.
// GET /api/v1/forms/:form_id
func (h *FormHandler) GetForm(c *gin.Context) {
	formID := c.Param("form_id")

	master, err := storage.FindFormMasterByID(c.Request.Context(), h.DB, formID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, master)
}

// UpdateForm updates a form's header settings. A view rebinding invalidates
// the cached lineage of both the old and new view synchronously, before any
// response is written.
// PUT /api/v1/forms/:form_id
func (h *FormHandler) UpdateForm(c *gin.Context) {
	formID := c.Param("form_id")

	var req models.FormUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	master, err := storage.FindFormMasterByID(c.Request.Context(), h.DB, formID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	previousView := master.ViewName
	master.Name = req.Name
	master.ViewName = req.ViewName
	master.PKColumn = req.PKColumn
	master.Status = domain.FormStatus(req.Status)
	if req.SchemaQueryType != "" {
		master.SchemaQueryType = core.ParseSchemaQueryType(req.SchemaQueryType)
	}

	if err := storage.UpdateFormMaster(c.Request.Context(), h.DB, master); err != nil {
		_ = c.Error(err)
		return
	}
	if previousView != "" && previousView != master.ViewName {
		h.Inspector.InvalidateLineage(previousView)
	}
	if master.ViewName != "" {
		h.Inspector.InvalidateLineage(master.ViewName)
	}

	c.JSON(http.StatusOK, master)
}

// DeleteForm removes a form's configuration. The underlying data tables are
// never touched.
// DELETE /api/v1/forms/:form_id
func (h *FormHandler) DeleteForm(c *gin.Context) {
	formID := c.Param("form_id")

	if err := storage.DeleteFormMasterCascade(c.Request.Context(), h.DB, formID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form deleted successfully"})
}

// ListRows returns the form's list screen: every row of the configured view
// with dropdown cells rewritten into display text. Optional limit/offset
// query parameters window the result; out-of-range values clamp rather than
// error so paging clients never fall over on a shrinking table.
// GET /api/v1/forms/:form_id/rows?limit=50&offset=0
func (h *FormHandler) ListRows(c *gin.Context) {
	formID := c.Param("form_id")

	rows, err := h.Synth.FormList(c.Request.Context(), formID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	total := len(rows)
	offset := parseBoundedInt(c.Query("offset"), 0, 0, total)
	limit := parseBoundedInt(c.Query("limit"), total, 0, total-offset)
	rows = rows[offset : offset+limit]

	c.JSON(http.StatusOK, models.FormListResponse{Rows: rows, Total: total})
}

// parseBoundedInt parses a query parameter, clamping to [min, max] and
// falling back on garbage input.
func parseBoundedInt(raw string, fallback, min, max int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		v = fallback
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}

// GetSubmissionForm returns the merged field list for creating or editing one
// row. The optional row_id query parameter loads current values.
// GET /api/v1/forms/:form_id/submission?row_id=42
func (h *FormHandler) GetSubmissionForm(c *gin.Context) {
	formID := c.Param("form_id")
	rowID := c.Query("row_id")

	fields, err := h.Synth.SubmissionFields(c.Request.Context(), formID, rowID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// Submit writes one submission: base-table scalars and dropdown answers in a
// single transaction.
// POST /api/v1/forms/:form_id/submissions
func (h *FormHandler) Submit(c *gin.Context) {
	formID := c.Param("form_id")

	var req models.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	rowID, err := h.Engine.Submit(c.Request.Context(), formID, req.RowID, req.Values)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if req.RowID == "" {
		status = http.StatusCreated
	}
	c.JSON(status, models.SubmissionResponse{Message: "Submission saved", RowID: rowID})
}
