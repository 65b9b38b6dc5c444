// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/formbridge/formbridge-backend/internal/auth"
	"github.com/formbridge/formbridge-backend/internal/core"
	"github.com/formbridge/formbridge-backend/internal/dropdown"
	"github.com/formbridge/formbridge-backend/internal/forms"
	"github.com/formbridge/formbridge-backend/internal/schema"
	"github.com/formbridge/formbridge-backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
// Handlers attach domain errors with c.Error; this middleware owns the mapping
// to HTTP status codes so no handler writes error responses itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		customLog.Warnf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		switch {
		case errors.Is(err, storage.ErrUserNotFound),
			errors.Is(err, storage.ErrFormNotFound),
			errors.Is(err, storage.ErrFieldNotFound),
			errors.Is(err, storage.ErrRuleNotFound),
			errors.Is(err, storage.ErrOptionNotFound),
			errors.Is(err, storage.ErrDropdownNotFound),
			errors.Is(err, storage.ErrRecordNotFound),
			errors.Is(err, storage.ErrTableNotFound),
			errors.Is(err, schema.ErrSchemaNotFound),
			errors.Is(err, schema.ErrPrimaryKeyNotFound):
			statusCode = http.StatusNotFound
			userMessage = err.Error()

		case errors.Is(err, storage.ErrEmailExists),
			errors.Is(err, storage.ErrFormBindingExists),
			errors.Is(err, storage.ErrConstraintViolation),
			errors.Is(err, forms.ErrControlTypeChangeRejected):
			statusCode = http.StatusConflict
			userMessage = err.Error()

		case errors.Is(err, storage.ErrInvalidCredentials):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid email or password."

		case errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenClaimsInvalid),
			errors.Is(err, auth.ErrUnexpectedSigningMethod):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."

		case errors.Is(err, auth.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."

		case errors.Is(err, dropdown.ErrSQLRejected),
			errors.Is(err, core.ErrUnsupportedPKType),
			errors.Is(err, core.ErrInvalidPKValue),
			errors.Is(err, schema.ErrViewLineageUnresolvable),
			errors.Is(err, forms.ErrMissingRequiredName),
			errors.Is(err, forms.ErrUnknownControlType),
			errors.Is(err, forms.ErrRuleKindNotAllowed):
			statusCode = http.StatusBadRequest
			userMessage = err.Error()

		case errors.Is(err, storage.ErrUpsertFailed):
			statusCode = http.StatusInternalServerError
			userMessage = "The operation did not persist. Please retry."

		default:
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				statusCode = http.StatusBadRequest
				userMessage = "Validation failed. Please check your input."
				for _, fe := range validationErrs {
					customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
				}
				break
			}
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Warnf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		}
	}
}
