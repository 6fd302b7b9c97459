package gateway

import (
	"errors"
	"fmt"

	"barberia-gateway/internal/backend"
)

// AppError is the envelope every gateway failure renders as. Status drives
// the HTTP response; the rest is the JSON body under "error". A wrapped
// cause, when present, stays out of the response and surfaces in logs only.
type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`

	cause error
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
	}
}

func UnknownResourceError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_RESOURCE",
		Status:  404,
		Message: fmt.Sprintf("Unknown resource: %s", name),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

func BadGatewayError(msg string) *AppError {
	return &AppError{Code: "BAD_GATEWAY", Status: 502, Message: msg}
}

// FromBackend maps a backend client error to the gateway envelope, keeping
// the original error as the wrapped cause. Anything that is not a backend
// error passes through untouched for the top-level handler.
func FromBackend(err error) error {
	var appErr *AppError
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		appErr = UnauthorizedError("Session rejected by backend")
	case errors.Is(err, backend.ErrForbidden):
		appErr = ForbiddenError("Rejected by backend")
	case errors.Is(err, backend.ErrNotFound):
		appErr = NewAppError("NOT_FOUND", 404, "Not found")
	case errors.Is(err, backend.ErrUnavailable):
		appErr = BadGatewayError("Backend unavailable")
	default:
		var apiErr *backend.APIError
		if !errors.As(err, &apiErr) {
			return err
		}
		code := apiErr.Code
		if code == "" {
			code = "BACKEND_ERROR"
		}
		msg := apiErr.Message
		if msg == "" {
			msg = "Backend rejected the request"
		}
		appErr = NewAppError(code, apiErr.StatusCode, msg)
	}
	appErr.cause = err
	return appErr
}
