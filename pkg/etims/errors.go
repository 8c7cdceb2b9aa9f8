package etims

import (
	"errors"
	"net/http"

	"github.com/Checker-Finance/etims-adapter/pkg/validation"
)

// FieldError describes one failed validation rule.
type FieldError = validation.FieldError

// ValidationError is returned when a request fails its schema before any outbound call.
type ValidationError struct {
	Message string
	Errors  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + ": " + e.Errors[0].Message
}

// AuthenticationError is returned when a token cannot be obtained, or when an
// inbound caller presents no usable bearer token.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// APIError is returned when eTims answers with a non-success result code or
// an unusable body.
type APIError struct {
	Message    string
	StatusCode int
	Code       string
	Details    any
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return "etims api error " + e.Code + ": " + e.Message
	}
	return "etims api error: " + e.Message
}

// ErrorBody is the "error" member of a failure envelope.
type ErrorBody struct {
	Message          string       `json:"message"`
	Code             string       `json:"code,omitempty"`
	Details          any          `json:"details,omitempty"`
	ValidationErrors []FieldError `json:"validationErrors,omitempty"`
}

// ErrorResponse is the failure envelope rendered to callers.
type ErrorResponse struct {
	Success    bool      `json:"success"`
	Error      ErrorBody `json:"error"`
	StatusCode int       `json:"statusCode"`
}

// FormatError maps any error onto the failure envelope and its HTTP status.
func FormatError(err error) ErrorResponse {
	var (
		apiErr   *APIError
		valErr   *ValidationError
		authErr  *AuthenticationError
		response = ErrorResponse{Success: false}
	)

	switch {
	case errors.As(err, &apiErr):
		response.Error = ErrorBody{
			Message: apiErr.Message,
			Code:    apiErr.Code,
			Details: apiErr.Details,
		}
		response.StatusCode = apiErr.StatusCode
		if response.StatusCode == 0 {
			response.StatusCode = http.StatusInternalServerError
		}
	case errors.As(err, &valErr):
		response.Error = ErrorBody{
			Message:          valErr.Message,
			ValidationErrors: valErr.Errors,
		}
		response.StatusCode = http.StatusBadRequest
	case errors.As(err, &authErr):
		response.Error = ErrorBody{Message: authErr.Message}
		response.StatusCode = http.StatusUnauthorized
	default:
		msg := "Internal Server Error"
		if err != nil && err.Error() != "" {
			msg = err.Error()
		}
		response.Error = ErrorBody{Message: msg}
		response.StatusCode = http.StatusInternalServerError
	}
	return response
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	var (
		apiErr  *APIError
		valErr  *ValidationError
		authErr *AuthenticationError
	)
	switch {
	case errors.As(err, &valErr):
		return "validation"
	case errors.As(err, &authErr):
		return "authentication"
	case errors.As(err, &apiErr):
		return "api"
	}
	return "transport"
}
