package ruts

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// WebServerInterface is implemented by the server adapters.
type WebServerInterface interface {
	RegisterRoute(method string, path RoutePath, handler HandlerFunc, middlewares ...MiddlewareFunc)
	Use(middleware MiddlewareFunc)

	// RegisterHTTPHandler mounts a plain net/http handler, e.g. the metrics endpoint.
	RegisterHTTPHandler(method string, path RoutePath, handler http.Handler)

	Start(addr string) error
	Stop(ctx context.Context) error

	Name() string
}

// RequestContext is the framework-agnostic view of one HTTP exchange.
type RequestContext interface {
	// Context is the request-scoped context of the underlying server.
	Context() context.Context

	Method() string
	Path() string
	RealIP() string

	QueryParams() map[string][]string
	FormParams() (map[string][]string, error)
	MultipartForm() (*multipart.Form, error)

	Request() RequestInterface
	Response() ResponseInterface

	Get(key string) any
	Set(key string, val any)
}

// RequestInterface provides access to the underlying request.
type RequestInterface interface {
	Header(key string) string
	Body() ([]byte, error)
	ContentLength() int64
	ContentType() string
	Cookie(name string) (Cookie, error)
}

// ResponseInterface provides response writing capabilities.
type ResponseInterface interface {
	Status() int
	Header(key string) string
	SetHeader(key, value string)
	AddHeader(key, value string)

	HTML(code int, html string) error
	Blob(code int, contentType string, b []byte) error
	Stream(code int, contentType string, r io.Reader) error
	NoContent(code int) error

	SetCookie(cookie Cookie)
	Written() bool
}

// HandlerFunc handles one request.
type HandlerFunc func(RequestContext) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Cookie is a framework-agnostic HTTP cookie.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite SameSiteMode
}

// SameSiteMode mirrors http.SameSite.
type SameSiteMode int

const (
	SameSiteDefaultMode SameSiteMode = iota + 1
	SameSiteLaxMode
	SameSiteStrictMode
	SameSiteNoneMode
)
