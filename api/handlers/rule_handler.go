// api/handlers/rule_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formbridge/formbridge-backend/api/models"
	"github.com/formbridge/formbridge-backend/internal/domain"
	"github.com/formbridge/formbridge-backend/internal/forms"
)

// RuleHandler serves validation-rule configuration for fields.
type RuleHandler struct {
	Synth *forms.Synthesizer
}

func NewRuleHandler(synth *forms.Synthesizer) *RuleHandler {
	return &RuleHandler{Synth: synth}
}

// ListRules returns the ordered rules of one field.
// GET /api/v1/fields/:field_id/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	fieldID := c.Param("field_id")

	rules, err := h.Synth.RulesForField(c.Request.Context(), fieldID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateRule appends one rule to a field.
// POST /api/v1/fields/:field_id/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	fieldID := c.Param("field_id")

	var req models.RuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	rule, err := h.Synth.AddRule(c.Request.Context(), fieldID, domain.RuleKind(req.Kind), req.Value, req.Message, req.MessageLocal)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule edits an existing rule's value and messages.
// PUT /api/v1/rules/:rule_id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	ruleID := c.Param("rule_id")

	var req models.RuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	rule := &domain.ValidationRule{ID: ruleID, Value: req.Value, Message: req.Message, MessageLocal: req.MessageLocal}
	if err := h.Synth.UpdateRule(c.Request.Context(), rule); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule updated successfully"})
}

// DeleteRule removes one rule.
// DELETE /api/v1/rules/:rule_id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	ruleID := c.Param("rule_id")

	if err := h.Synth.DeleteRule(c.Request.Context(), ruleID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted successfully"})
}
