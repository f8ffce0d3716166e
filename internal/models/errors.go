package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes for the API error taxonomy.
const (
	CodeMalformedCredential = "MALFORMED_CREDENTIAL"
	CodeInvalidCredential   = "INVALID_CREDENTIAL"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeTargetNotEligible   = "TARGET_NOT_ELIGIBLE"
	CodeInvalidKind         = "INVALID_KIND"
	CodeNotFound            = "NOT_FOUND"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeInternalError       = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors

// NewMalformedCredentialError rejects credentials of the wrong shape.
// These never reach storage.
func NewMalformedCredentialError() *AppError {
	return &AppError{
		Code:    CodeMalformedCredential,
		Message: "Invalid token length",
	}
}

// NewInvalidCredentialError merges not-found, expired, and deactivated
// tokens into one indistinguishable outcome to avoid oracle leakage.
func NewInvalidCredentialError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredential,
		Message: "Invalid or expired token",
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewTargetNotEligibleError(message string) *AppError {
	return &AppError{
		Code:    CodeTargetNotEligible,
		Message: message,
	}
}

func NewInvalidKindError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidKind,
		Message: message,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidationError,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "Internal server error",
		Err:     err,
	}
}

// statusByCode maps error codes to HTTP statuses so every handler applies
// the same outcome policy.
var statusByCode = map[string]int{
	CodeMalformedCredential: fiber.StatusUnauthorized,
	CodeInvalidCredential:   fiber.StatusUnauthorized,
	CodePermissionDenied:    fiber.StatusForbidden,
	CodeTargetNotEligible:   fiber.StatusConflict,
	CodeInvalidKind:         fiber.StatusBadRequest,
	CodeNotFound:            fiber.StatusNotFound,
	CodeValidationError:     fiber.StatusBadRequest,
	CodeConflict:            fiber.StatusConflict,
	CodeInternalError:       fiber.StatusInternalServerError,
}

// RespondWithError creates a standardized error response with an explicit status.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// Respond writes err with the status derived from its error code.
// Non-AppError values become 500s without leaking internals.
func Respond(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status, ok := statusByCode[appErr.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return RespondWithError(c, status, appErr)
	}
	return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(err))
}
