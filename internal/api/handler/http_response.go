package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meridianbank/corebank/internal/api/middleware"
	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/domain/transaction"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondForbidden sends a 403 Forbidden response with an error
func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	RespondWithError(c, http.StatusForbidden, "FORBIDDEN", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondUnprocessable sends a 422 response for business-rule rejections
func RespondUnprocessable(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusUnprocessableEntity, code, message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// respondDomainError maps the domain error taxonomy onto HTTP statuses.
// Anything unmapped is an internal failure: the cause is logged for
// operators and hidden from the caller.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var validationErr shared.ValidationError
	var forbiddenErr shared.ForbiddenError
	var accountNotFound account.ErrAccountNotFound
	var txnNotFound transaction.ErrTransactionNotFound
	var alertNotFound risk.ErrAlertNotFound

	switch {
	case errors.As(err, &validationErr):
		RespondBadRequest(c, validationErr.Error())
	case errors.As(err, &forbiddenErr):
		RespondForbidden(c, forbiddenErr.Error())
	case errors.As(err, &accountNotFound):
		RespondNotFound(c, accountNotFound.Error())
	case errors.As(err, &txnNotFound):
		RespondNotFound(c, txnNotFound.Error())
	case errors.As(err, &alertNotFound):
		RespondNotFound(c, alertNotFound.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, account.ErrInvalidAmount), errors.Is(err, account.ErrInvalidCurrencyFormat):
		RespondBadRequest(c, err.Error())
	default:
		logger.Error("request failed", "error", err, "path", c.Request.URL.Path)
		RespondInternalError(c)
	}
}
