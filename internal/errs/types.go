// Package errs defines the error types the API returns to clients.
//
// Every failure, wherever it originates, is eventually translated into an
// *HTTPError and serialized as JSON by the global error handler, so clients
// always receive the same shape: a machine code, a message, field-level
// errors for validation failures, and an optional client action.
package errs

import "strings"

// FieldError represents a field-level validation error.
//
//	{ "field": "login", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType is a string enum describing what the client should do next.
type ActionType string

const (
	// ActionTypeRedirect tells the client to navigate elsewhere; Value holds
	// the target URL or route.
	ActionTypeRedirect ActionType = "redirect"
)

// Action is an optional client instruction attached to an error response.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the error type serialized to API clients.
//
// Code is a stable machine-readable identifier (e.g. "USER_ALREADY_EXISTS"),
// Message is for humans, Status is the HTTP status the response carries.
// Override signals that the message is safe to show verbatim in a UI.
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	// Errors holds field-level validation errors, when applicable.
	Errors []FieldError `json:"errors"`

	// Action is an optional client instruction.
	Action *Action `json:"action"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports whether target is also an *HTTPError, so that
// errors.Is(err, &HTTPError{}) matches regardless of code or status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of the error with only the message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	return &HTTPError{
		Code:     e.Code,
		Message:  message,
		Status:   e.Status,
		Override: e.Override,
		Errors:   e.Errors,
		Action:   e.Action,
	}
}

// MakeUpperCaseWithUnderscores converts text into UPPER_CASE_WITH_UNDERSCORES,
// e.g. "Bad Request" -> "BAD_REQUEST". Used to derive error codes from HTTP
// status text.
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
