package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Lifecycle errors
	ErrorTypeDependencyMissing ErrorType = "dependency_missing"
	ErrorTypeHookFailure       ErrorType = "hook_failure"
	ErrorTypeBatch             ErrorType = "batch"

	// Lookup errors
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeConflict            ErrorType = "conflict"
	ErrorTypePluginClassNotFound ErrorType = "plugin_class_not_found"

	// Input errors
	ErrorTypeInvalid ErrorType = "invalid"

	// System errors
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Sentinels for errors.Is. AppError.Is matches on Type only.
var (
	ErrDependencyMissing   = &AppError{Type: ErrorTypeDependencyMissing}
	ErrHookFailure         = &AppError{Type: ErrorTypeHookFailure}
	ErrBatch               = &AppError{Type: ErrorTypeBatch}
	ErrNotFound            = &AppError{Type: ErrorTypeNotFound}
	ErrConflict            = &AppError{Type: ErrorTypeConflict}
	ErrPluginClassNotFound = &AppError{Type: ErrorTypePluginClassNotFound}
	ErrInvalid             = &AppError{Type: ErrorTypeInvalid}
	ErrPersistence         = &AppError{Type: ErrorTypePersistence}
	ErrInternal            = &AppError{Type: ErrorTypeInternal}
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	HTTPStatus int            `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		if e.InnerError != nil {
			return e.Message + ": " + e.InnerError.Error()
		}
		return e.Message
	}
	if e.InnerError != nil {
		return e.InnerError.Error()
	}
	return string(e.Type)
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// WithMessage adds a message to the error
func (e *AppError) WithMessage(msg string) *AppError {
	e.Message = msg
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       string(ErrorTypeUnknown),
		InnerError: err,
	}
}

// Wrap wraps an error with a specific type
func Wrap(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// TypeOf returns the AppError type found in err's chain, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

func NewDependencyMissing(pluginID, dependencyID string) *AppError {
	return New(ErrorTypeDependencyMissing,
		fmt.Sprintf("plugin %s requires %s, which is not installed", pluginID, dependencyID)).
		WithDetail("plugin", pluginID).
		WithDetail("dependency", dependencyID).
		WithHTTPStatus(http.StatusFailedDependency)
}

func NewNotFound(resource string, id any) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s %v not found", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id).
		WithHTTPStatus(http.StatusNotFound)
}

func NewConflict(resource string, id any) *AppError {
	return New(ErrorTypeConflict, fmt.Sprintf("%s %v already exists", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id).
		WithHTTPStatus(http.StatusConflict)
}

func NewHookFailure(pluginID, hook string, err error) *AppError {
	return Wrap(err, ErrorTypeHookFailure, fmt.Sprintf("plugin %s: %s hook failed", pluginID, hook)).
		WithDetail("plugin", pluginID).
		WithDetail("hook", hook).
		WithHTTPStatus(http.StatusInternalServerError)
}

func NewPersistence(op string, err error) *AppError {
	return Wrap(err, ErrorTypePersistence, fmt.Sprintf("persistence %s failed", op)).
		WithDetail("op", op).
		WithHTTPStatus(http.StatusInternalServerError)
}

func NewPluginClassNotFound(moduleID string) *AppError {
	return New(ErrorTypePluginClassNotFound, fmt.Sprintf("no plugin export found in module %s", moduleID)).
		WithDetail("module", moduleID).
		WithHTTPStatus(http.StatusNotFound)
}

func NewInvalid(field string, value any, reason string) *AppError {
	return New(ErrorTypeInvalid, fmt.Sprintf("invalid value for %s: %v (%s)", field, value, reason)).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason).
		WithHTTPStatus(http.StatusBadRequest)
}

func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message).WithHTTPStatus(http.StatusInternalServerError)
}

// NewBatch reports how many items of a batch operation failed. Every failure
// stays reachable through errors.Is / errors.As.
func NewBatch(op string, errs []error) *AppError {
	joined := errors.Join(errs...)
	return &AppError{
		Type:       ErrorTypeBatch,
		Code:       string(ErrorTypeBatch),
		Message:    fmt.Sprintf("failed to %s %d plugins", op, len(errs)),
		InnerError: joined,
		Details:    map[string]any{"op": op, "failed": len(errs)},
		HTTPStatus: http.StatusMultiStatus,
	}
}

// Recover runs fn and converts a panic into an internal AppError.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = Wrap(v, ErrorTypeInternal, "panic recovered")
			case string:
				err = New(ErrorTypeInternal, "panic recovered: "+v)
			default:
				err = New(ErrorTypeInternal, fmt.Sprintf("panic recovered: %v", v))
			}
		}
	}()
	return fn()
}

// HTTPStatus returns the HTTP status carried by err, 500 when none is set.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus > 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Describe renders an error chain on one line, mainly for CLI output.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(appErr.Type))
	b.WriteString("] ")
	b.WriteString(appErr.Error())
	return b.String()
}
