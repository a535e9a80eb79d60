package adapters

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/toyz/ruts/pkg/ruts"
)

// EchoAdapter implements ruts.WebServerInterface for Echo v4
type EchoAdapter struct {
	engine *echo.Echo
}

// NewEchoAdapter creates a new Echo adapter
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	return &EchoAdapter{engine: e}
}

// NewDefaultEchoAdapter creates a new Echo adapter with a quiet Echo instance
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return &EchoAdapter{engine: e}
}

func echoPath(path ruts.RoutePath) string {
	return path.Convert(func(name string) string { return ":" + name }, "*")
}

// RegisterRoute registers a route with the Echo server
func (ea *EchoAdapter) RegisterRoute(method string, path ruts.RoutePath, handler ruts.HandlerFunc, middlewares ...ruts.MiddlewareFunc) {
	echoMiddlewares := make([]echo.MiddlewareFunc, len(middlewares))
	for i, mw := range middlewares {
		echoMiddlewares[i] = ea.convertMiddleware(mw)
	}
	ea.engine.Add(method, echoPath(path), ea.convertHandler(handler), echoMiddlewares...)
}

// RegisterHTTPHandler mounts a net/http handler
func (ea *EchoAdapter) RegisterHTTPHandler(method string, path ruts.RoutePath, handler http.Handler) {
	ea.engine.Add(method, echoPath(path), echo.WrapHandler(handler))
}

// Use adds global middleware
func (ea *EchoAdapter) Use(middleware ruts.MiddlewareFunc) {
	ea.engine.Use(ea.convertMiddleware(middleware))
}

// Start starts the server
func (ea *EchoAdapter) Start(addr string) error {
	return ea.engine.Start(addr)
}

// Stop stops the server
func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}

// convertHandler converts ruts.HandlerFunc to echo.HandlerFunc
func (ea *EchoAdapter) convertHandler(handler ruts.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := handler(&EchoRequestContext{context: c}); err != nil {
			if c.Response().Committed {
				return nil
			}
			code, body := errorBody(err)
			return c.JSON(code, body)
		}
		return nil
	}
}

// convertMiddleware converts ruts.MiddlewareFunc to echo.MiddlewareFunc
func (ea *EchoAdapter) convertMiddleware(middleware ruts.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rutsNext := func(ctx ruts.RequestContext) error {
				return next(c)
			}
			return middleware(rutsNext)(&EchoRequestContext{context: c})
		}
	}
}

// EchoRequestContext implements ruts.RequestContext for Echo
type EchoRequestContext struct {
	context echo.Context
}

func (erc *EchoRequestContext) Context() context.Context {
	return erc.context.Request().Context()
}

func (erc *EchoRequestContext) Method() string {
	return erc.context.Request().Method
}

func (erc *EchoRequestContext) Path() string {
	return erc.context.Request().URL.Path
}

func (erc *EchoRequestContext) RealIP() string {
	return erc.context.RealIP()
}

func (erc *EchoRequestContext) QueryParams() map[string][]string {
	return erc.context.QueryParams()
}

func (erc *EchoRequestContext) FormParams() (map[string][]string, error) {
	return erc.context.FormParams()
}

func (erc *EchoRequestContext) MultipartForm() (*multipart.Form, error) {
	return erc.context.MultipartForm()
}

func (erc *EchoRequestContext) Request() ruts.RequestInterface {
	return &EchoRequestInterface{request: erc.context.Request()}
}

func (erc *EchoRequestContext) Response() ruts.ResponseInterface {
	return &EchoResponseInterface{response: erc.context.Response(), context: erc.context}
}

func (erc *EchoRequestContext) Get(key string) any {
	return erc.context.Get(key)
}

func (erc *EchoRequestContext) Set(key string, val any) {
	erc.context.Set(key, val)
}

// EchoRequestInterface implements ruts.RequestInterface for Echo requests
type EchoRequestInterface struct {
	request *http.Request
}

func (eri *EchoRequestInterface) Header(key string) string {
	return eri.request.Header.Get(key)
}

// Body reads the body and puts it back so it can be read again
func (eri *EchoRequestInterface) Body() ([]byte, error) {
	return readBody(eri.request)
}

func (eri *EchoRequestInterface) ContentLength() int64 {
	return eri.request.ContentLength
}

func (eri *EchoRequestInterface) ContentType() string {
	return eri.request.Header.Get(echo.HeaderContentType)
}

func (eri *EchoRequestInterface) Cookie(name string) (ruts.Cookie, error) {
	c, err := eri.request.Cookie(name)
	if err != nil {
		return ruts.Cookie{}, err
	}
	return fromHTTPCookie(c), nil
}

// EchoResponseInterface implements ruts.ResponseInterface for Echo responses
type EchoResponseInterface struct {
	response *echo.Response
	context  echo.Context
}

func (eri *EchoResponseInterface) Status() int {
	return eri.response.Status
}

func (eri *EchoResponseInterface) Header(key string) string {
	return eri.response.Header().Get(key)
}

func (eri *EchoResponseInterface) SetHeader(key, value string) {
	eri.response.Header().Set(key, value)
}

func (eri *EchoResponseInterface) AddHeader(key, value string) {
	eri.response.Header().Add(key, value)
}

func (eri *EchoResponseInterface) HTML(code int, html string) error {
	return eri.context.HTML(code, html)
}

func (eri *EchoResponseInterface) Blob(code int, contentType string, b []byte) error {
	return eri.context.Blob(code, contentType, b)
}

func (eri *EchoResponseInterface) Stream(code int, contentType string, r io.Reader) error {
	return eri.context.Stream(code, contentType, r)
}

func (eri *EchoResponseInterface) NoContent(code int) error {
	return eri.context.NoContent(code)
}

func (eri *EchoResponseInterface) SetCookie(cookie ruts.Cookie) {
	eri.context.SetCookie(toHTTPCookie(cookie))
}

func (eri *EchoResponseInterface) Written() bool {
	return eri.response.Committed
}

func readBody(request *http.Request) ([]byte, error) {
	if request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(request.Body)
	if err != nil {
		return nil, err
	}
	request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
