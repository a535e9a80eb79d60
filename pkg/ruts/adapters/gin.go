package adapters

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/toyz/ruts/pkg/ruts"
)

// GinAdapter implements ruts.WebServerInterface for Gin framework
type GinAdapter struct {
	engine *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	catchAll map[string]gin.HandlerFunc
}

// NewGinAdapter creates a new Gin adapter
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g, catchAll: make(map[string]gin.HandlerFunc)}
}

// NewDefaultGinAdapter creates a new Gin adapter with a recovering Gin instance
func NewDefaultGinAdapter() *GinAdapter {
	engine := gin.New()
	engine.Use(gin.Recovery())
	return NewGinAdapter(engine)
}

func ginPath(path ruts.RoutePath) string {
	return path.Convert(func(name string) string { return ":" + name }, "*path")
}

// RegisterRoute registers a route with the Gin engine. The catch-all path is
// served from NoRoute because gin refuses a root wildcard next to other routes.
func (ga *GinAdapter) RegisterRoute(method string, path ruts.RoutePath, handler ruts.HandlerFunc, middlewares ...ruts.MiddlewareFunc) {
	if path == ruts.CatchAllPath {
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		ga.registerCatchAll(method, ga.convertHandler(handler))
		return
	}
	handlers := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	for _, mw := range middlewares {
		handlers = append(handlers, ga.convertMiddleware(mw))
	}
	handlers = append(handlers, ga.convertHandler(handler))
	ga.engine.Handle(method, ginPath(path), handlers...)
}

func (ga *GinAdapter) registerCatchAll(method string, handler gin.HandlerFunc) {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	first := len(ga.catchAll) == 0
	ga.catchAll[method] = handler
	if !first {
		return
	}
	ga.engine.NoRoute(func(c *gin.Context) {
		ga.mu.Lock()
		h, ok := ga.catchAll[c.Request.Method]
		ga.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}
		c.Status(http.StatusOK)
		h(c)
	})
}

// RegisterHTTPHandler mounts a net/http handler
func (ga *GinAdapter) RegisterHTTPHandler(method string, path ruts.RoutePath, handler http.Handler) {
	ga.engine.Handle(method, ginPath(path), gin.WrapH(handler))
}

// Use adds global middleware
func (ga *GinAdapter) Use(middleware ruts.MiddlewareFunc) {
	ga.engine.Use(ga.convertMiddleware(middleware))
}

// Start starts the server
func (ga *GinAdapter) Start(addr string) error {
	ga.mu.Lock()
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	server := ga.server
	ga.mu.Unlock()
	return server.ListenAndServe()
}

// Stop gracefully shuts the server down
func (ga *GinAdapter) Stop(ctx context.Context) error {
	ga.mu.Lock()
	server := ga.server
	ga.mu.Unlock()
	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

// convertHandler converts ruts.HandlerFunc to gin.HandlerFunc
func (ga *GinAdapter) convertHandler(handler ruts.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&GinRequestContext{context: c}); err != nil {
			if c.Writer.Written() {
				return
			}
			code, body := errorBody(err)
			c.JSON(code, body)
		}
	}
}

// convertMiddleware converts ruts.MiddlewareFunc to gin.HandlerFunc
func (ga *GinAdapter) convertMiddleware(middleware ruts.MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := func(ctx ruts.RequestContext) error {
			c.Next()
			return nil
		}
		if err := middleware(next)(&GinRequestContext{context: c}); err != nil {
			c.Abort()
			if !c.Writer.Written() {
				code, body := errorBody(err)
				c.JSON(code, body)
			}
		}
	}
}

// GinRequestContext implements ruts.RequestContext for Gin
type GinRequestContext struct {
	context *gin.Context
}

func (grc *GinRequestContext) Context() context.Context {
	return grc.context.Request.Context()
}

func (grc *GinRequestContext) Method() string {
	return grc.context.Request.Method
}

func (grc *GinRequestContext) Path() string {
	return grc.context.Request.URL.Path
}

func (grc *GinRequestContext) RealIP() string {
	return grc.context.ClientIP()
}

func (grc *GinRequestContext) QueryParams() map[string][]string {
	return grc.context.Request.URL.Query()
}

func (grc *GinRequestContext) FormParams() (map[string][]string, error) {
	if err := grc.context.Request.ParseForm(); err != nil {
		return nil, err
	}
	return grc.context.Request.PostForm, nil
}

func (grc *GinRequestContext) MultipartForm() (*multipart.Form, error) {
	return grc.context.MultipartForm()
}

func (grc *GinRequestContext) Request() ruts.RequestInterface {
	return &GinRequestInterface{request: grc.context.Request}
}

func (grc *GinRequestContext) Response() ruts.ResponseInterface {
	return &GinResponseInterface{context: grc.context}
}

func (grc *GinRequestContext) Get(key string) any {
	value, _ := grc.context.Get(key)
	return value
}

func (grc *GinRequestContext) Set(key string, val any) {
	grc.context.Set(key, val)
}

// GinRequestInterface implements ruts.RequestInterface for Gin requests
type GinRequestInterface struct {
	request *http.Request
}

func (gri *GinRequestInterface) Header(key string) string {
	return gri.request.Header.Get(key)
}

func (gri *GinRequestInterface) Body() ([]byte, error) {
	return readBody(gri.request)
}

func (gri *GinRequestInterface) ContentLength() int64 {
	return gri.request.ContentLength
}

func (gri *GinRequestInterface) ContentType() string {
	return gri.request.Header.Get("Content-Type")
}

func (gri *GinRequestInterface) Cookie(name string) (ruts.Cookie, error) {
	c, err := gri.request.Cookie(name)
	if err != nil {
		return ruts.Cookie{}, err
	}
	return fromHTTPCookie(c), nil
}

// GinResponseInterface implements ruts.ResponseInterface for Gin responses
type GinResponseInterface struct {
	context *gin.Context
}

func (gri *GinResponseInterface) Status() int {
	return gri.context.Writer.Status()
}

func (gri *GinResponseInterface) Header(key string) string {
	return gri.context.Writer.Header().Get(key)
}

func (gri *GinResponseInterface) SetHeader(key, value string) {
	gri.context.Writer.Header().Set(key, value)
}

func (gri *GinResponseInterface) AddHeader(key, value string) {
	gri.context.Writer.Header().Add(key, value)
}

func (gri *GinResponseInterface) HTML(code int, html string) error {
	gri.context.Data(code, "text/html; charset=utf-8", []byte(html))
	return nil
}

func (gri *GinResponseInterface) Blob(code int, contentType string, b []byte) error {
	gri.context.Data(code, contentType, b)
	return nil
}

func (gri *GinResponseInterface) Stream(code int, contentType string, r io.Reader) error {
	gri.context.DataFromReader(code, -1, contentType, r, nil)
	return nil
}

func (gri *GinResponseInterface) NoContent(code int) error {
	gri.context.Status(code)
	gri.context.Writer.WriteHeaderNow()
	return nil
}

func (gri *GinResponseInterface) SetCookie(cookie ruts.Cookie) {
	http.SetCookie(gri.context.Writer, toHTTPCookie(cookie))
}

func (gri *GinResponseInterface) Written() bool {
	return gri.context.Writer.Written()
}
