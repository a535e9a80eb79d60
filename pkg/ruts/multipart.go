package ruts

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"reflect"
	"strings"
)

// ErrMultipartExceeded reports a multipart body over the size limit.
var ErrMultipartExceeded = errors.New("multipart request size exceeded")

// MultipartRequestHandler parses a multipart request into text and file elements.
type MultipartRequestHandler interface {
	HandleRequest(rc RequestContext) error
	// Rollback discards what was parsed, e.g. after a failed execute.
	Rollback()
	// Finish removes temporary files of the parsed form.
	Finish()

	AllElements() map[string]any
	FileElements() map[string][]*multipart.FileHeader
	TextElements() map[string][]string
}

// DefaultMultipartRequestHandler reads the multipart form of the adapter.
type DefaultMultipartRequestHandler struct {
	// MaxSize limits the request content length; <= 0 means no limit.
	MaxSize int64

	form *multipart.Form
}

func NewDefaultMultipartRequestHandler(maxSize int64) *DefaultMultipartRequestHandler {
	return &DefaultMultipartRequestHandler{MaxSize: maxSize}
}

func (h *DefaultMultipartRequestHandler) HandleRequest(rc RequestContext) error {
	if h.MaxSize > 0 && rc.Request().ContentLength() > h.MaxSize {
		return &ForcedRequest400BadRequestError{
			DebugMsg: fmt.Sprintf("the request size %d is over the limit %d", rc.Request().ContentLength(), h.MaxSize),
			Cause:    ErrMultipartExceeded,
		}
	}
	form, err := rc.MultipartForm()
	if err != nil {
		return badRequest("cannot parse the multipart form", err)
	}
	h.form = form
	return nil
}

func (h *DefaultMultipartRequestHandler) Rollback() {
	h.Finish()
}

func (h *DefaultMultipartRequestHandler) Finish() {
	if h.form != nil {
		_ = h.form.RemoveAll()
		h.form = nil
	}
}

func (h *DefaultMultipartRequestHandler) AllElements() map[string]any {
	all := make(map[string]any)
	for name, values := range h.TextElements() {
		all[name] = values
	}
	for name, files := range h.FileElements() {
		all[name] = files
	}
	return all
}

func (h *DefaultMultipartRequestHandler) FileElements() map[string][]*multipart.FileHeader {
	if h.form == nil {
		return nil
	}
	return h.form.File
}

func (h *DefaultMultipartRequestHandler) TextElements() map[string][]string {
	if h.form == nil {
		return nil
	}
	return h.form.Value
}

var (
	fileHeaderType      = reflect.TypeOf((*multipart.FileHeader)(nil))
	fileHeaderSliceType = reflect.TypeOf([]*multipart.FileHeader(nil))
)

func isMultipartRequest(rc RequestContext) bool {
	mediaType, _, err := mime.ParseMediaType(rc.Request().ContentType())
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// bindFiles sets the *multipart.FileHeader properties of form.
func bindFiles(meta *ActionFormMeta, form any, files map[string][]*multipart.FileHeader) {
	rv := reflect.ValueOf(form).Elem()
	for _, property := range meta.Properties() {
		field := property.Field()
		name := field.Tag.Get("form")
		if name == "" || name == "-" {
			name = property.Name()
		}
		headers := files[name]
		if len(headers) == 0 {
			continue
		}
		target := rv.FieldByIndex(field.Index)
		switch field.Type {
		case fileHeaderType:
			target.Set(reflect.ValueOf(headers[0]))
		case fileHeaderSliceType:
			target.Set(reflect.ValueOf(headers))
		}
	}
}
