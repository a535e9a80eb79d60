package ruts

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/toyz/ruts/pkg/ruts/jsonmanager"
)

// TemplateRenderer renders HTML responses.
type TemplateRenderer interface {
	Render(w io.Writer, templatePath string, data map[string]any) error
}

// HTMLTemplateRenderer renders html/template files from a file system and
// caches the parsed templates.
type HTMLTemplateRenderer struct {
	fsys  fs.FS
	funcs template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewHTMLTemplateRenderer creates a renderer reading templates from fsys.
func NewHTMLTemplateRenderer(fsys fs.FS, funcs template.FuncMap) *HTMLTemplateRenderer {
	return &HTMLTemplateRenderer{fsys: fsys, funcs: funcs, cache: make(map[string]*template.Template)}
}

func (r *HTMLTemplateRenderer) Render(w io.Writer, templatePath string, data map[string]any) error {
	tmpl, err := r.lookup(templatePath)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

func (r *HTMLTemplateRenderer) lookup(templatePath string) (*template.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.cache[templatePath]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.cache[templatePath]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New(templatePath).Funcs(r.funcs).ParseFS(r.fsys, templatePath)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", templatePath, err)
	}
	tmpl = tmpl.Lookup(baseName(templatePath))
	r.cache[templatePath] = tmpl
	return tmpl, nil
}

func baseName(templatePath string) string {
	for i := len(templatePath) - 1; i >= 0; i-- {
		if templatePath[i] == '/' {
			return templatePath[i+1:]
		}
	}
	return templatePath
}

// ActionResponder writes action responses through the adapter.
type ActionResponder struct {
	json      jsonmanager.Manager
	templates TemplateRenderer
}

// NewActionResponder creates a responder; templates may be nil when no
// action returns HTML.
func NewActionResponder(json jsonmanager.Manager, templates TemplateRenderer) *ActionResponder {
	return &ActionResponder{json: json, templates: templates}
}

// Respond writes response for the request of rt.
func (r *ActionResponder) Respond(rt *ActionRuntime, response ActionResponse) error {
	if response.IsUndefined() {
		return nil
	}
	out := rt.rc.Response()
	status := response.HTTPStatus().OrElse(http.StatusOK)

	switch typed := response.(type) {
	case *StreamResponse:
		return r.respondStream(out, typed)
	case *JSONResponse:
		writeHeaders(out, typed.Headers())
		if typed.IsReturnAsEmptyBody() {
			return out.NoContent(status)
		}
		body, err := r.encodeJSON(typed)
		if err != nil {
			return err
		}
		return out.Blob(status, "application/json; charset=UTF-8", body)
	case *HTMLResponse:
		writeHeaders(out, typed.Headers())
		if redirect, ok := typed.RedirectPath().Get(); ok {
			out.SetHeader("Location", redirect)
			return out.NoContent(response.HTTPStatus().OrElse(http.StatusFound))
		}
		if r.templates == nil {
			return fmt.Errorf("%w: no template renderer for %s", ErrIllegalResponse, typed.TemplatePath())
		}
		data := make(map[string]any, len(rt.displayData)+len(typed.RenderData())+1)
		for k, v := range rt.displayData {
			data[k] = v
		}
		for k, v := range typed.RenderData() {
			data[k] = v
		}
		if messages, ok := rt.ValidationErrors().Get(); ok {
			data["errors"] = messages
		}
		var buf bytes.Buffer
		if err := r.templates.Render(&buf, typed.TemplatePath(), data); err != nil {
			return err
		}
		return out.HTML(status, buf.String())
	case *emptyResponse:
		writeHeaders(out, typed.Headers())
		return out.NoContent(status)
	default:
		return fmt.Errorf("%w: unsupported response type %T", ErrIllegalResponse, response)
	}
}

func (r *ActionResponder) encodeJSON(response *JSONResponse) ([]byte, error) {
	if response.IsPretty() {
		return gojson.MarshalIndent(response.Body(), "", "  ")
	}
	body, err := r.json.Encode(response.Body())
	return []byte(body), err
}

func (r *ActionResponder) respondStream(out ResponseInterface, response *StreamResponse) error {
	resource, err := response.ToDownloadResource()
	if err != nil {
		return err
	}
	for _, name := range resource.HeaderOrder {
		for _, value := range resource.Headers[name] {
			out.AddHeader(name, value)
		}
	}
	switch {
	case resource.EmptyBody:
		return out.NoContent(resource.Status)
	case resource.Stream != nil:
		if resource.ContentLength >= 0 {
			out.SetHeader("Content-Length", strconv.FormatInt(resource.ContentLength, 10))
		}
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(resource.Stream(pw))
		}()
		defer pr.Close()
		return out.Stream(resource.Status, resource.ContentType, pr)
	case resource.ZipStream != nil:
		pr, pw := io.Pipe()
		go func() {
			zw := zip.NewWriter(pw)
			err := resource.ZipStream(zw)
			if err == nil {
				err = zw.Close()
			}
			pw.CloseWithError(err)
		}()
		defer pr.Close()
		return out.Stream(resource.Status, resource.ContentType, pr)
	default:
		out.SetHeader("Content-Length", strconv.Itoa(len(resource.Data)))
		return out.Blob(resource.Status, resource.ContentType, resource.Data)
	}
}

func writeHeaders(out ResponseInterface, headers map[string][]string) {
	for name, values := range headers {
		for _, value := range values {
			out.AddHeader(name, value)
		}
	}
}
