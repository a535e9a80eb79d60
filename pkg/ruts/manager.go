package ruts

import (
	"errors"

	"gorm.io/gorm"

	"github.com/toyz/ruts/pkg/ruts/dbaccess"
)

// RequestManager gives hooks read access to the current request.
type RequestManager interface {
	RequestContext() RequestContext
	RequestPath() string
	HTTPMethod() string
	Header(name string) Optional[string]
	Parameter(name string) Optional[string]
	RemoteIP() string
}

// ResponseManager gives hooks write access to the response headers.
type ResponseManager interface {
	SetHeader(name, value string)
	AddCookie(cookie Cookie)
}

// LoginManager decides whether the current request may run the action.
type LoginManager interface {
	// CheckLoginRequired returns a response, usually a redirect, when the
	// action needs a login and the session has none.
	CheckLoginRequired(rt *ActionRuntime) (ActionResponse, error)

	// CurrentUser returns the logged-in user name from the session.
	CurrentUser(session SessionManager) Optional[string]
}

// ExceptionTranslator converts infrastructure errors into framework errors
// before they reach the monologue stage.
type ExceptionTranslator interface {
	Translate(err error) error
}

// ExceptionTranslatorFunc adapts a function to ExceptionTranslator.
type ExceptionTranslatorFunc func(err error) error

func (f ExceptionTranslatorFunc) Translate(err error) error { return f(err) }

// DefaultExceptionTranslator turns missing entities into a 404.
var DefaultExceptionTranslator ExceptionTranslator = ExceptionTranslatorFunc(func(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var forced *ForcedRequest404NotFoundError
		if errors.As(err, &forced) {
			return err
		}
		return &ForcedRequest404NotFoundError{DebugMsg: "entity not found: " + err.Error(), Cause: err}
	}
	return err
})

// AccessContextArranger builds the access context stored for the request.
type AccessContextArranger func(resource *GodHandResource) (dbaccess.AccessContext, error)

// DefaultAccessContextArranger uses the login user (or "guest") and the action name.
func DefaultAccessContextArranger(module string) AccessContextArranger {
	return func(resource *GodHandResource) (dbaccess.AccessContext, error) {
		user := "guest"
		if login, ok := resource.Login.Get(); ok && resource.Session != nil {
			user = login.CurrentUser(resource.Session).OrElse(user)
		}
		return dbaccess.AccessContext{
			AccessUser:    user,
			AccessProcess: resource.Runtime.ActionMapping().ActionName(),
			AccessModule:  module,
			AccessDate:    resource.Runtime.BeginTime(),
		}, nil
	}
}

// GodHandResource bundles the managers available to the god-hand hooks.
type GodHandResource struct {
	Runtime    *ActionRuntime
	Request    RequestManager
	Response   ResponseManager
	Session    SessionManager
	Login      Optional[LoginManager]
	Translator ExceptionTranslator
}

type requestManager struct {
	rc RequestContext
}

func (m *requestManager) RequestContext() RequestContext { return m.rc }
func (m *requestManager) RequestPath() string { return m.rc.Path() }
func (m *requestManager) HTTPMethod() string { return m.rc.Method() }
func (m *requestManager) RemoteIP() string { return m.rc.RealIP() }

func (m *requestManager) Header(name string) Optional[string] {
	if value := m.rc.Request().Header(name); value != "" {
		return OptionalOf(value)
	}
	return OptionalEmpty[string]()
}

func (m *requestManager) Parameter(name string) Optional[string] {
	if values, ok := m.rc.QueryParams()[name]; ok && len(values) > 0 {
		return OptionalOf(values[0])
	}
	if form, err := m.rc.FormParams(); err == nil {
		if values, ok := form[name]; ok && len(values) > 0 {
			return OptionalOf(values[0])
		}
	}
	return OptionalEmpty[string]()
}

type responseManager struct {
	rc RequestContext
}

func (m *responseManager) SetHeader(name, value string) { m.rc.Response().SetHeader(name, value) }
func (m *responseManager) AddCookie(cookie Cookie) { m.rc.Response().SetCookie(cookie) }
