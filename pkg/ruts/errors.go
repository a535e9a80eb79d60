package ruts

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// Registration failure categories. Match with errors.Is.
var (
	ErrActionPackageHasUpperCase = errors.New("action package has upper case")
	ErrOverloadedExecute         = errors.New("overloaded execute method")
	ErrExecuteNotFound           = errors.New("execute method not found")
	ErrShadowedExecute           = errors.New("execute method shadowed by index method")
	ErrExecuteAtSuperClass       = errors.New("execute method declared on embedded type")
	ErrRestfulConflict           = errors.New("restful execute conflicts with plain execute")
	ErrLonelyValidatorAnnotation = errors.New("lonely validator annotation")
	ErrIllegalExecuteSignature   = errors.New("illegal execute method signature")
	ErrURLPatternMismatch        = errors.New("URL pattern does not match parameters")
	ErrDuplicateAction           = errors.New("duplicate action")
	ErrModuleConfigFrozen        = errors.New("module config is already frozen")
)

// Request-time misuse categories.
var (
	ErrValidatorNotCalled = errors.New("validator not called")
	ErrFormTypeIsList     = errors.New("form type must not be a list")
	ErrIllegalResponse    = errors.New("illegal action response")
	ErrStreamIllegalState = errors.New("stream response in illegal state")
)

// ConfigurationError is a fatal registration-time failure of one action.
type ConfigurationError struct {
	Kind       error
	Diagnostic *Diagnostic
	Cause      error
}

func newConfigurationError(kind error, diagnostic *Diagnostic) *ConfigurationError {
	return &ConfigurationError{Kind: kind, Diagnostic: diagnostic}
}

func (e *ConfigurationError) Error() string {
	return e.Kind.Error() + "\n" + e.Diagnostic.String()
}

func (e *ConfigurationError) Is(target error) bool {
	return target == e.Kind
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// ExecuteUsageError reports a developer mistake detected while serving a request.
type ExecuteUsageError struct {
	Kind       error
	Diagnostic *Diagnostic
}

func (e *ExecuteUsageError) Error() string {
	return e.Kind.Error() + "\n" + e.Diagnostic.String()
}

func (e *ExecuteUsageError) Is(target error) bool {
	return target == e.Kind
}

// ActionFormCreateFailureError wraps a failure to instantiate a form.
type ActionFormCreateFailureError struct {
	FormType   reflect.Type
	Cause      error
	Diagnostic *Diagnostic
}

func (e *ActionFormCreateFailureError) Error() string {
	return fmt.Sprintf("failed to create the action form %v: %v\n%s", e.FormType, e.Cause, e.Diagnostic)
}

func (e *ActionFormCreateFailureError) Unwrap() error {
	return e.Cause
}

// RequestDelicateError ends a request with a fixed HTTP status and no
// application messages.
type RequestDelicateError interface {
	error
	HTTPStatus() int
	Title() string
}

// ForcedRequest404NotFoundError is raised by failed parameter checks.
type ForcedRequest404NotFoundError struct {
	DebugMsg string
	Cause    error
}

func (e *ForcedRequest404NotFoundError) Error() string { return e.DebugMsg }
func (e *ForcedRequest404NotFoundError) Unwrap() error { return e.Cause }
func (e *ForcedRequest404NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}
func (e *ForcedRequest404NotFoundError) Title() string {
	return "404 Not Found"
}

// ForcedRequest400BadRequestError is raised for client mistakes such as a broken body.
type ForcedRequest400BadRequestError struct {
	DebugMsg string
	Cause    error
}

func (e *ForcedRequest400BadRequestError) Error() string { return e.DebugMsg }
func (e *ForcedRequest400BadRequestError) Unwrap() error { return e.Cause }
func (e *ForcedRequest400BadRequestError) HTTPStatus() int {
	return http.StatusBadRequest
}
func (e *ForcedRequest400BadRequestError) Title() string {
	return "400 Bad Request"
}

// ApplicationMessage is a resource-keyed message carried by an application error.
type ApplicationMessage struct {
	Key    string `json:"key"`
	Values []any  `json:"values,omitempty"`
}

// ApplicationError is an expected business failure. Errors embedding it are
// routed through the exception monologue.
type ApplicationError struct {
	DebugMsg string
	Messages []ApplicationMessage
	Cause    error
}

// NewApplicationError creates an application error with optional messages.
func NewApplicationError(debugMsg string, messages ...ApplicationMessage) *ApplicationError {
	return &ApplicationError{DebugMsg: debugMsg, Messages: messages}
}

func (e *ApplicationError) Error() string { return e.DebugMsg }
func (e *ApplicationError) Unwrap() error { return e.Cause }

func (e *ApplicationError) application() *ApplicationError {
	return e
}

type applicationCarrier interface {
	application() *ApplicationError
}

// AsApplicationError finds the application error in err's chain, including
// errors that embed *ApplicationError.
func AsApplicationError(err error) (*ApplicationError, bool) {
	var carrier applicationCarrier
	if errors.As(err, &carrier) {
		return carrier.application(), true
	}
	return nil, false
}

// IllegalTransitionMessageKey is the message for ForcedIllegalTransitionApplicationError.
const IllegalTransitionMessageKey = "errors.app.illegal.transition"

// ForcedIllegalTransitionApplicationError reports a screen transition the user
// should never be able to make.
type ForcedIllegalTransitionApplicationError struct {
	*ApplicationError
	TransitionKey string
}

// NewForcedIllegalTransitionApplicationError creates the error for transitionKey.
func NewForcedIllegalTransitionApplicationError(debugMsg string, transitionKey string) *ForcedIllegalTransitionApplicationError {
	return &ForcedIllegalTransitionApplicationError{
		ApplicationError: NewApplicationError(debugMsg, ApplicationMessage{Key: IllegalTransitionMessageKey, Values: []any{transitionKey}}),
		TransitionKey:    transitionKey,
	}
}

// ValidationFailureError carries the messages of a failed Validate call.
type ValidationFailureError struct {
	Messages *UserMessages
}

func (e *ValidationFailureError) Error() string {
	return fmt.Sprintf("validation failed: %d message(s)", e.Messages.Size())
}

// HTTPError is returned to adapters, which render it as JSON.
type HTTPError struct {
	Code     int   `json:"code"`
	Message  any   `json:"message"`
	Internal error `json:"-"`
}

func (he *HTTPError) Error() string {
	if he.Internal != nil {
		return he.Internal.Error()
	}
	return fmt.Sprint(he.Message)
}

func (he *HTTPError) Unwrap() error {
	return he.Internal
}

// NewHTTPError creates an HTTPError. The optional message defaults to the status text.
func NewHTTPError(code int, message ...any) *HTTPError {
	he := &HTTPError{Code: code}
	if len(message) > 0 {
		he.Message = message[0]
	} else {
		he.Message = http.StatusText(code)
	}
	if len(message) > 1 {
		if err, ok := message[1].(error); ok {
			he.Internal = err
		}
	}
	return he
}
