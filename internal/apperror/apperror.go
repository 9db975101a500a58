package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrUpstream   = errors.New("upstream failure")

	// Authentication failures.
	ErrMissingField      = errors.New("missing field")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrWrongAuthMethod   = errors.New("wrong auth method")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Upstream wraps a failure of an external collaborator such as the OAuth2
// identity provider. The cause is kept for logs but not shown to users.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, cause),
		Message: message,
	}
}

func MissingField(field, message string) *AppError {
	return &AppError{Err: ErrMissingField, Message: message, Field: field}
}

func InvalidFormat(field, message string) *AppError {
	return &AppError{Err: ErrInvalidFormat, Message: message, Field: field}
}

func WrongAuthMethod(message string) *AppError {
	return &AppError{Err: ErrWrongAuthMethod, Message: message}
}

func IncorrectPassword() *AppError {
	return &AppError{Err: ErrIncorrectPassword, Message: "Incorrect password", Field: "password"}
}

func Unauthenticated() *AppError {
	return &AppError{Err: ErrUnauthenticated, Message: "authentication required"}
}

// FieldErrors reports several field-attributed problems at once, e.g. an
// empty email together with a malformed password.
type FieldErrors []*AppError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (fe FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(fe))
	for _, e := range fe {
		errs = append(errs, e)
	}
	return errs
}

// ByField returns the message for each field, keyed by field name.
func (fe FieldErrors) ByField() map[string]string {
	out := make(map[string]string, len(fe))
	for _, e := range fe {
		if e.Field != "" {
			out[e.Field] = e.Message
		}
	}
	return out
}

// OrNil returns nil when no errors were collected, so callers can write
// `return errs.OrNil()` without tripping over a typed nil.
func (fe FieldErrors) OrNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
