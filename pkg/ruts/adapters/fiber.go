package adapters

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/toyz/ruts/pkg/ruts"
)

const fiberWrittenKey = "ruts.fiber.written"

// FiberAdapter wraps a Fiber app to implement ruts.WebServerInterface
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter creates a new Fiber adapter instance
func NewFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter creates a new Fiber adapter with panic recovery
func NewDefaultFiberAdapter() *FiberAdapter {
	adapter := NewFiberAdapter()
	adapter.app.Use(recover.New())
	return adapter
}

func fiberPath(path ruts.RoutePath) string {
	return path.Convert(func(name string) string { return ":" + name }, "*")
}

// RegisterRoute registers a route with the Fiber app
func (fa *FiberAdapter) RegisterRoute(method string, path ruts.RoutePath, handler ruts.HandlerFunc, middlewares ...ruts.MiddlewareFunc) {
	handlers := make([]fiber.Handler, 0, len(middlewares)+1)
	for _, mw := range middlewares {
		handlers = append(handlers, convertMiddlewareToFiber(mw))
	}
	handlers = append(handlers, convertHandlerToFiber(handler))
	fa.app.Add(strings.ToUpper(method), fiberPath(path), handlers...)
}

// RegisterHTTPHandler mounts a net/http handler
func (fa *FiberAdapter) RegisterHTTPHandler(method string, path ruts.RoutePath, handler http.Handler) {
	fa.app.Add(strings.ToUpper(method), fiberPath(path), adaptor.HTTPHandler(handler))
}

// Use adds middleware to the Fiber app
func (fa *FiberAdapter) Use(middleware ruts.MiddlewareFunc) {
	fa.app.Use(convertMiddlewareToFiber(middleware))
}

// Start starts the Fiber server
func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

// Stop stops the Fiber server
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

// convertHandlerToFiber converts a ruts handler to a Fiber handler
func convertHandlerToFiber(handler ruts.HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := &FiberRequestContext{ctx: c}
		if err := handler(rc); err != nil {
			if rc.Response().Written() {
				return nil
			}
			code, body := errorBody(err)
			return c.Status(code).JSON(body)
		}
		return nil
	}
}

// convertMiddlewareToFiber converts a ruts middleware to a Fiber handler
func convertMiddlewareToFiber(middleware ruts.MiddlewareFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		next := func(ctx ruts.RequestContext) error {
			return c.Next()
		}
		return middleware(next)(&FiberRequestContext{ctx: c})
	}
}

// FiberRequestContext implements ruts.RequestContext for Fiber
type FiberRequestContext struct {
	ctx *fiber.Ctx
}

func (frc *FiberRequestContext) Context() context.Context {
	return frc.ctx.UserContext()
}

func (frc *FiberRequestContext) Method() string {
	return frc.ctx.Method()
}

func (frc *FiberRequestContext) Path() string {
	return frc.ctx.Path()
}

func (frc *FiberRequestContext) RealIP() string {
	return frc.ctx.IP()
}

func (frc *FiberRequestContext) QueryParams() map[string][]string {
	params := make(map[string][]string)
	frc.ctx.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		params[k] = append(params[k], string(value))
	})
	return params
}

func (frc *FiberRequestContext) FormParams() (map[string][]string, error) {
	params := make(map[string][]string)
	frc.ctx.Request().PostArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		params[k] = append(params[k], string(value))
	})
	return params, nil
}

func (frc *FiberRequestContext) MultipartForm() (*multipart.Form, error) {
	return frc.ctx.MultipartForm()
}

func (frc *FiberRequestContext) Request() ruts.RequestInterface {
	return &FiberRequest{ctx: frc.ctx}
}

func (frc *FiberRequestContext) Response() ruts.ResponseInterface {
	return &FiberResponse{ctx: frc.ctx}
}

func (frc *FiberRequestContext) Get(key string) any {
	return frc.ctx.Locals(key)
}

func (frc *FiberRequestContext) Set(key string, val any) {
	frc.ctx.Locals(key, val)
}

// FiberRequest implements ruts.RequestInterface for Fiber
type FiberRequest struct {
	ctx *fiber.Ctx
}

func (fr *FiberRequest) Header(key string) string {
	return fr.ctx.Get(key)
}

// Body returns a copy; fasthttp reuses the request buffer.
func (fr *FiberRequest) Body() ([]byte, error) {
	body := fr.ctx.Body()
	copied := make([]byte, len(body))
	copy(copied, body)
	return copied, nil
}

func (fr *FiberRequest) ContentLength() int64 {
	return int64(fr.ctx.Request().Header.ContentLength())
}

func (fr *FiberRequest) ContentType() string {
	return string(fr.ctx.Request().Header.ContentType())
}

func (fr *FiberRequest) Cookie(name string) (ruts.Cookie, error) {
	value := fr.ctx.Cookies(name)
	if value == "" {
		return ruts.Cookie{}, http.ErrNoCookie
	}
	return ruts.Cookie{Name: name, Value: value}, nil
}

// FiberResponse implements ruts.ResponseInterface for Fiber
type FiberResponse struct {
	ctx *fiber.Ctx
}

func (fr *FiberResponse) Status() int {
	return fr.ctx.Response().StatusCode()
}

func (fr *FiberResponse) Header(key string) string {
	return string(fr.ctx.Response().Header.Peek(key))
}

func (fr *FiberResponse) SetHeader(key, value string) {
	fr.ctx.Set(key, value)
}

func (fr *FiberResponse) AddHeader(key, value string) {
	fr.ctx.Response().Header.Add(key, value)
}

func (fr *FiberResponse) HTML(code int, html string) error {
	fr.markWritten()
	fr.ctx.Status(code)
	fr.ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return fr.ctx.SendString(html)
}

func (fr *FiberResponse) Blob(code int, contentType string, b []byte) error {
	fr.markWritten()
	fr.ctx.Status(code)
	fr.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.ctx.Send(b)
}

func (fr *FiberResponse) Stream(code int, contentType string, r io.Reader) error {
	fr.markWritten()
	fr.ctx.Status(code)
	fr.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.ctx.SendStream(r)
}

func (fr *FiberResponse) NoContent(code int) error {
	fr.markWritten()
	fr.ctx.Status(code)
	return nil
}

func (fr *FiberResponse) SetCookie(cookie ruts.Cookie) {
	fiberCookie := &fiber.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		MaxAge:   cookie.MaxAge,
		Expires:  cookie.Expires,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HttpOnly,
	}
	switch cookie.SameSite {
	case ruts.SameSiteStrictMode:
		fiberCookie.SameSite = "Strict"
	case ruts.SameSiteNoneMode:
		fiberCookie.SameSite = "None"
	default:
		fiberCookie.SameSite = "Lax"
	}
	fr.ctx.Cookie(fiberCookie)
}

func (fr *FiberResponse) Written() bool {
	written, _ := fr.ctx.Locals(fiberWrittenKey).(bool)
	return written
}

func (fr *FiberResponse) markWritten() {
	fr.ctx.Locals(fiberWrittenKey, true)
}
