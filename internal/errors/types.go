package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RutsError defines the base interface for all generator errors
type RutsError interface {
	error
	ErrorCode() ErrorCode
	Location() SourceLocation
	Context() map[string]any
	Suggestions() []string
	Unwrap() error
}

// ErrorCode represents the type of error that occurred
type ErrorCode int

const (
	UnknownErrorCode ErrorCode = iota
	SyntaxErrorCode
	ValidationErrorCode
	GenerationErrorCode
	FileSystemErrorCode
	ModuleErrorCode
)

func (e ErrorCode) String() string {
	switch e {
	case SyntaxErrorCode:
		return "SyntaxError"
	case ValidationErrorCode:
		return "ValidationError"
	case GenerationErrorCode:
		return "GenerationError"
	case FileSystemErrorCode:
		return "FileSystemError"
	case ModuleErrorCode:
		return "ModuleError"
	default:
		return "UnknownError"
	}
}

// SourceLocation represents where an error occurred in source code
type SourceLocation struct {
	File   string
	Line   int // 1-based
	Column int // 1-based
}

func (s SourceLocation) String() string {
	if s.File == "" {
		return "unknown location"
	}
	if s.Line == 0 {
		return s.File
	}
	if s.Column == 0 {
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// IsEmpty returns true if the location has no useful information
func (s SourceLocation) IsEmpty() bool {
	return s.File == ""
}

// BaseError provides a common implementation of the RutsError interface
type BaseError struct {
	Code        ErrorCode
	Message     string
	Loc         SourceLocation
	Cause       error
	ContextData map[string]any
	Hints       []string
}

func (e *BaseError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Loc.IsEmpty() {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Loc, msg)
}

func (e *BaseError) ErrorCode() ErrorCode     { return e.Code }
func (e *BaseError) Location() SourceLocation { return e.Loc }
func (e *BaseError) Suggestions() []string    { return e.Hints }
func (e *BaseError) Unwrap() error            { return e.Cause }

// Context returns the error context data, never nil
func (e *BaseError) Context() map[string]any {
	if e.ContextData == nil {
		return map[string]any{}
	}
	return e.ContextData
}

// WithLocation adds location information to the error
func (e *BaseError) WithLocation(loc SourceLocation) *BaseError {
	e.Loc = loc
	return e
}

// WithCause adds an underlying error cause
func (e *BaseError) WithCause(cause error) *BaseError {
	e.Cause = cause
	return e
}

// WithContext adds context data to the error
func (e *BaseError) WithContext(key string, value any) *BaseError {
	if e.ContextData == nil {
		e.ContextData = make(map[string]any)
	}
	e.ContextData[key] = value
	return e
}

// WithSuggestion adds a helpful suggestion for fixing the error
func (e *BaseError) WithSuggestion(suggestion string) *BaseError {
	e.Hints = append(e.Hints, suggestion)
	return e
}

// ContextKeys returns the context keys in sorted order
func (e *BaseError) ContextKeys() []string {
	keys := make([]string, 0, len(e.ContextData))
	for k := range e.ContextData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New creates a new BaseError with the specified code and message
func New(code ErrorCode, message string) *BaseError {
	return &BaseError{Code: code, Message: message}
}

// Newf creates a new BaseError with formatted message
func Newf(code ErrorCode, format string, args ...any) *BaseError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new error that wraps another error
func Wrap(code ErrorCode, message string, cause error) *BaseError {
	return &BaseError{Code: code, Message: message, Cause: cause}
}

// Wrapf creates a new error that wraps another error with formatted message
func Wrapf(code ErrorCode, cause error, format string, args ...any) *BaseError {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// Find returns the first RutsError in err's chain.
func Find(err error) (RutsError, bool) {
	var found RutsError
	if errors.As(err, &found) {
		return found, true
	}
	return nil, false
}

// MultipleErrors represents multiple errors collected together
type MultipleErrors struct {
	Errors []RutsError
}

func (e *MultipleErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	messages := make([]string, 0, len(e.Errors))
	for i, err := range e.Errors {
		messages = append(messages, fmt.Sprintf("  %d. %s", i+1, err.Error()))
	}
	return fmt.Sprintf("multiple errors (%d total):\n%s", len(e.Errors), strings.Join(messages, "\n"))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *MultipleErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Add adds an error to the collection
func (e *MultipleErrors) Add(err RutsError) {
	e.Errors = append(e.Errors, err)
}

func (e *MultipleErrors) IsEmpty() bool { return len(e.Errors) == 0 }
func (e *MultipleErrors) Count() int    { return len(e.Errors) }

// HasCode returns true if any error of the specified type exists
func (e *MultipleErrors) HasCode(code ErrorCode) bool {
	for _, err := range e.Errors {
		if err.ErrorCode() == code {
			return true
		}
	}
	return false
}

// ErrOrNil returns nil for an empty collection, the single error for one,
// and the collection otherwise.
func (e *MultipleErrors) ErrOrNil() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	default:
		return e
	}
}

// NewMultipleErrors creates a new MultipleErrors collection
func NewMultipleErrors() *MultipleErrors {
	return &MultipleErrors{Errors: make([]RutsError, 0)}
}
