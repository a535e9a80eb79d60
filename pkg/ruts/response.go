package ruts

import (
	"net/http"
)

// ActionResponse is what an execute method returns.
type ActionResponse interface {
	HTTPStatus() Optional[int]
	Headers() map[string][]string
	IsReturnAsEmptyBody() bool
	// IsUndefined means the execute wrote the response itself.
	IsUndefined() bool
}

type responseHeaders struct {
	status    int
	headers   map[string][]string
	emptyBody bool
}

func (r *responseHeaders) HTTPStatus() Optional[int] {
	if r.status == 0 {
		return OptionalEmpty[int]()
	}
	return OptionalOf(r.status)
}

func (r *responseHeaders) Headers() map[string][]string {
	return r.headers
}

func (r *responseHeaders) IsReturnAsEmptyBody() bool {
	return r.emptyBody
}

func (r *responseHeaders) IsUndefined() bool {
	return false
}

func (r *responseHeaders) addHeader(name string, values []string) {
	if r.headers == nil {
		r.headers = make(map[string][]string)
	}
	name = http.CanonicalHeaderKey(name)
	r.headers[name] = append(r.headers[name], values...)
}

// JSONResponse renders its body as JSON.
type JSONResponse struct {
	responseHeaders
	body   any
	pretty bool
}

// AsJSON creates a JSON response of body.
func AsJSON(body any) *JSONResponse {
	return &JSONResponse{body: body}
}

func (r *JSONResponse) Body() any { return r.body }
func (r *JSONResponse) IsPretty() bool { return r.pretty }

// Pretty indents the rendered JSON.
func (r *JSONResponse) Pretty() *JSONResponse {
	r.pretty = true
	return r
}

func (r *JSONResponse) Status(code int) *JSONResponse {
	r.status = code
	return r
}

func (r *JSONResponse) Header(name string, values ...string) *JSONResponse {
	r.addHeader(name, values)
	return r
}

// AsEmptyBody writes headers and status only.
func (r *JSONResponse) AsEmptyBody() *JSONResponse {
	r.emptyBody = true
	return r
}

// HTMLResponse renders a template, or redirects.
type HTMLResponse struct {
	responseHeaders
	templatePath string
	renderData   map[string]any
	redirectPath string
}

// AsHTML creates a response rendering the template at templatePath.
func AsHTML(templatePath string) *HTMLResponse {
	return &HTMLResponse{templatePath: templatePath, renderData: make(map[string]any)}
}

// RedirectTo creates a redirect to path.
func RedirectTo(path string) *HTMLResponse {
	return &HTMLResponse{redirectPath: path, renderData: make(map[string]any)}
}

func (r *HTMLResponse) TemplatePath() string { return r.templatePath }
func (r *HTMLResponse) RenderData() map[string]any { return r.renderData }

// RedirectPath returns the redirect target when this is a redirect.
func (r *HTMLResponse) RedirectPath() Optional[string] {
	if r.redirectPath == "" {
		return OptionalEmpty[string]()
	}
	return OptionalOf(r.redirectPath)
}

// RenderWith registers data for the template.
func (r *HTMLResponse) RenderWith(key string, value any) *HTMLResponse {
	r.renderData[key] = value
	return r
}

func (r *HTMLResponse) Status(code int) *HTMLResponse {
	r.status = code
	return r
}

func (r *HTMLResponse) Header(name string, values ...string) *HTMLResponse {
	r.addHeader(name, values)
	return r
}

type emptyResponse struct {
	responseHeaders
}

// EmptyResponse writes 200 with no body.
func EmptyResponse() ActionResponse {
	return &emptyResponse{responseHeaders{emptyBody: true}}
}

type undefinedResponse struct {
	responseHeaders
}

func (r *undefinedResponse) IsUndefined() bool { return true }

var theUndefinedResponse ActionResponse = &undefinedResponse{}

// UndefinedResponse tells the dispatcher the execute already wrote the response.
func UndefinedResponse() ActionResponse {
	return theUndefinedResponse
}
