package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// EngineError is a failure the scheduling and billing engine reports to callers.
// Two EngineErrors match under errors.Is when their codes are equal.
type EngineError struct {
	Code    string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	return ok && t.Code == e.Code
}

var (
	ErrSlotConflict           = &EngineError{Code: "SlotConflict", Message: "slot is already reserved or blocked"}
	ErrDuplicateInvoice       = &EngineError{Code: "DuplicateInvoice", Message: "appointment already has an active invoice"}
	ErrInvalidAmount          = &EngineError{Code: "InvalidAmount", Message: "invoice amount must be greater than zero"}
	ErrStaleSubscriptionWrite = &EngineError{Code: "StaleSubscriptionWrite", Message: "subscription was modified concurrently"}
	ErrStorageUnavailable     = &EngineError{Code: "StorageUnavailable", Message: "storage is temporarily unavailable"}
	ErrIllegalTransition      = &EngineError{Code: "IllegalTransition", Message: "status transition is not allowed"}
	ErrNotFound               = &EngineError{Code: "NotFound", Message: "resource not found"}
	ErrInvalidInput           = &EngineError{Code: "InvalidInput", Message: "invalid input"}
	ErrConfirmationRequired   = &EngineError{Code: "ConfirmationRequired", Message: "explicit confirmation is required"}
	ErrNotInvoiceable         = &EngineError{Code: "NotInvoiceable", Message: "appointment is not in an invoiceable state"}
	ErrInvoiceSuperseded      = &EngineError{Code: "InvoiceSuperseded", Message: "invoice has already been superseded"}
	ErrForbidden              = &EngineError{Code: "Forbidden", Message: "operation not permitted for this user"}
)

// NewEngineError returns an error with the code of base and a specific message.
func NewEngineError(base *EngineError, format string, args ...any) error {
	return &EngineError{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// WrapEngineError attaches a cause to an error with the code of base.
func WrapEngineError(base *EngineError, msg string, err error) error {
	return &EngineError{Code: base.Code, Message: msg, Err: err}
}

// ErrorCode extracts the engine error code, or "" for unclassified errors.
func ErrorCode(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

var statusByCode = map[string]int{
	ErrSlotConflict.Code:           http.StatusConflict,
	ErrDuplicateInvoice.Code:       http.StatusConflict,
	ErrInvalidAmount.Code:          http.StatusUnprocessableEntity,
	ErrStaleSubscriptionWrite.Code: http.StatusPreconditionFailed,
	ErrStorageUnavailable.Code:     http.StatusServiceUnavailable,
	ErrIllegalTransition.Code:      http.StatusConflict,
	ErrNotFound.Code:               http.StatusNotFound,
	ErrInvalidInput.Code:           http.StatusBadRequest,
	ErrConfirmationRequired.Code:   http.StatusPreconditionRequired,
	ErrNotInvoiceable.Code:         http.StatusConflict,
	ErrInvoiceSuperseded.Code:      http.StatusConflict,
	ErrForbidden.Code:              http.StatusForbidden,
}

// HTTPStatus maps an error to the response status a handler should use.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// RespondError writes err using its engine code and mapped status.
// Unclassified errors are logged and hidden behind a generic message.
func RespondError(c *gin.Context, err error) {
	status := HTTPStatus(err)
	code := ErrorCode(err)
	if code == "" {
		GetLogger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Message: "Internal Server Error"})
		return
	}
	GetLogger().Warn("request rejected", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
	var ee *EngineError
	errors.As(err, &ee)
	c.JSON(status, ErrorResponse{Message: ee.Message, Code: code})
}
