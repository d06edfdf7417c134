package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func abortWithCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: message})
}

// statusFor maps a checkout failure to its HTTP status.
func statusFor(ce *domain.CheckoutError) int {
	switch ce.Kind.Category {
	case domain.CategoryInput:
		return http.StatusBadRequest
	case domain.CategoryAccount:
		if ce.Kind == domain.ErrUserNotFound {
			return http.StatusNotFound
		}
		return http.StatusForbidden
	case domain.CategoryResource:
		return http.StatusConflict
	case domain.CategoryVoucher, domain.CategoryPayment:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError renders err with a status and machine-readable code. Unknown
// errors are logged and hidden behind a 500.
func writeError(c *gin.Context, logger *log.Logger, err error) {
	if ce, ok := domain.AsCheckoutError(err); ok {
		resp := errorResponse{Error: ce.Kind.Code, Message: ce.Error()}
		details := map[string]any{}
		if ce.ProductID != "" {
			details["productId"] = ce.ProductID
		}
		if ce.Kind == domain.ErrInsufficientStock {
			details["available"] = ce.Available
		}
		if ce.Kind == domain.ErrBelowMinimumOrder {
			details["minOrderValue"] = ce.MinOrderValue
		}
		if len(details) > 0 {
			resp.Details = details
		}
		c.JSON(statusFor(ce), resp)
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "ValidationFailed", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "NotFound", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, errorResponse{Error: "AlreadyExists", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse{Error: "InvalidTransition", Message: err.Error()})
	default:
		logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "InternalError", Message: "internal error"})
	}
}
