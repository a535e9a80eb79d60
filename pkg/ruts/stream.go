package ruts

import (
	"archive/zip"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	ContentTypeOctetStream = "application/octet-stream"
	ContentTypeJPEG        = "image/jpeg"
	ContentTypeZip         = "application/zip"

	headerContentDisposition = "Content-Disposition"
)

// WrittenStreamCall writes a stream payload.
type WrittenStreamCall func(w io.Writer) error

// ZipWrittenCall writes the entries of a chunked zip payload.
type ZipWrittenCall func(zw *zip.Writer) error

// StreamResponse is a download. Exactly one payload kind (data, stream or
// zip stream) is allowed unless the response is an empty body. Misuse is
// recorded and reported by ToDownloadResource before anything is written.
type StreamResponse struct {
	fileName      string
	contentType   string
	headers       map[string][]string
	headerOrder   []string
	status        int
	data          []byte
	hasData       bool
	stream        WrittenStreamCall
	contentLength int64
	zipStream     ZipWrittenCall
	emptyBody     bool
	undefined     bool
	afterTxCommit func()
	err           error
}

// AsStream creates a download of fileName.
func AsStream(fileName string) *StreamResponse {
	r := &StreamResponse{fileName: fileName}
	if strings.TrimSpace(fileName) == "" {
		r.fail("the file name is required")
	}
	return r
}

var theUndefinedStreamResponse = &StreamResponse{undefined: true}

// UndefinedStreamResponse is the shared undefined stream. It cannot be modified.
func UndefinedStreamResponse() *StreamResponse {
	return theUndefinedStreamResponse
}

func (r *StreamResponse) fail(format string, args ...any) *StreamResponse {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s (file=%s)", ErrStreamIllegalState, fmt.Sprintf(format, args...), r.fileName)
	}
	return r
}

// mutable returns the response to modify; the undefined singleton yields a
// detached failed copy.
func (r *StreamResponse) mutable(operation string) *StreamResponse {
	if r.undefined {
		failed := &StreamResponse{}
		return failed.fail("cannot %s the undefined stream response", operation)
	}
	return r
}

func (r *StreamResponse) ContentType(contentType string) *StreamResponse {
	target := r.mutable("set the content type of")
	target.contentType = contentType
	return target
}

func (r *StreamResponse) ContentTypeOctetStream() *StreamResponse {
	return r.ContentType(ContentTypeOctetStream)
}

func (r *StreamResponse) ContentTypeJPEG() *StreamResponse {
	return r.ContentType(ContentTypeJPEG)
}

func (r *StreamResponse) ContentTypeZip() *StreamResponse {
	return r.ContentType(ContentTypeZip)
}

// Header adds a header; a header name may be set only once.
func (r *StreamResponse) Header(name string, values ...string) *StreamResponse {
	target := r.mutable("add a header to")
	name = http.CanonicalHeaderKey(name)
	if _, exists := target.headers[name]; exists {
		return target.fail("the header %s is already registered: %v", name, target.headers[name])
	}
	if target.headers == nil {
		target.headers = make(map[string][]string)
	}
	target.headers[name] = values
	target.headerOrder = append(target.headerOrder, name)
	return target
}

func (r *StreamResponse) HeaderContentDispositionAttachment() *StreamResponse {
	return r.Header(headerContentDisposition, fmt.Sprintf("attachment; filename=%q", r.fileName))
}

func (r *StreamResponse) HeaderContentDispositionInline() *StreamResponse {
	return r.Header(headerContentDisposition, fmt.Sprintf("inline; filename=%q", r.fileName))
}

func (r *StreamResponse) Status(code int) *StreamResponse {
	target := r.mutable("set the status of")
	target.status = code
	return target
}

// Data sets an in-memory payload.
func (r *StreamResponse) Data(data []byte) *StreamResponse {
	target := r.mutable("set data to")
	if err := target.checkPayloadFree("data"); err != "" {
		return target.fail("%s", err)
	}
	target.data = data
	target.hasData = true
	return target
}

// Stream sets a streamed payload of unknown length.
func (r *StreamResponse) Stream(call WrittenStreamCall) *StreamResponse {
	return r.StreamWithLength(call, -1)
}

// StreamWithLength sets a streamed payload and its Content-Length.
func (r *StreamResponse) StreamWithLength(call WrittenStreamCall, contentLength int64) *StreamResponse {
	target := r.mutable("set a stream to")
	if call == nil {
		return target.fail("the stream call must not be nil")
	}
	if err := target.checkPayloadFree("stream"); err != "" {
		return target.fail("%s", err)
	}
	target.stream = call
	target.contentLength = contentLength
	return target
}

// ZipStreamChunked sets a zip payload written entry by entry; it forces the zip content type.
func (r *StreamResponse) ZipStreamChunked(call ZipWrittenCall) *StreamResponse {
	target := r.mutable("set a zip stream to")
	if call == nil {
		return target.fail("the zip stream call must not be nil")
	}
	if err := target.checkPayloadFree("zip stream"); err != "" {
		return target.fail("%s", err)
	}
	target.zipStream = call
	target.contentType = ContentTypeZip
	return target
}

// AsEmptyBody writes headers and status only.
func (r *StreamResponse) AsEmptyBody() *StreamResponse {
	target := r.mutable("make empty body")
	target.emptyBody = true
	return target
}

// AfterTxCommit registers a hook run after the execute transaction commits.
func (r *StreamResponse) AfterTxCommit(hook func()) *StreamResponse {
	target := r.mutable("set a hook to")
	target.afterTxCommit = hook
	return target
}

func (r *StreamResponse) checkPayloadFree(requested string) string {
	switch {
	case r.hasData:
		return "cannot set " + requested + ": the response already has data"
	case r.stream != nil:
		return "cannot set " + requested + ": the response already has a stream"
	case r.zipStream != nil:
		return "cannot set " + requested + ": the response already has a zip stream"
	}
	return ""
}

func (r *StreamResponse) FileName() string { return r.fileName }

// Err returns the first misuse, if any.
func (r *StreamResponse) Err() error { return r.err }

func (r *StreamResponse) HTTPStatus() Optional[int] {
	if r.status == 0 {
		return OptionalEmpty[int]()
	}
	return OptionalOf(r.status)
}

func (r *StreamResponse) Headers() map[string][]string { return r.headers }
func (r *StreamResponse) IsReturnAsEmptyBody() bool { return r.emptyBody }
func (r *StreamResponse) IsUndefined() bool { return r.undefined }

// AfterTxCommitHook returns the registered hook.
func (r *StreamResponse) AfterTxCommitHook() Optional[func()] {
	if r.afterTxCommit == nil {
		return OptionalEmpty[func()]()
	}
	return OptionalOf(r.afterTxCommit)
}

// DownloadResource is a validated StreamResponse ready to be written.
type DownloadResource struct {
	FileName      string
	ContentType   string
	Headers       map[string][]string
	HeaderOrder   []string
	Status        int
	Data          []byte
	Stream        WrittenStreamCall
	ContentLength int64
	ZipStream     ZipWrittenCall
	EmptyBody     bool
}

// ToDownloadResource validates the response. The content type defaults from
// the file extension and Content-Disposition defaults to attachment.
func (r *StreamResponse) ToDownloadResource() (*DownloadResource, error) {
	if r.undefined {
		return nil, fmt.Errorf("%w: the undefined stream response cannot be downloaded", ErrStreamIllegalState)
	}
	if r.err != nil {
		return nil, r.err
	}
	if !r.emptyBody && !r.hasData && r.stream == nil && r.zipStream == nil {
		return nil, fmt.Errorf("%w: no payload (data, stream or zip stream) for %s", ErrStreamIllegalState, r.fileName)
	}
	contentType := r.contentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(r.fileName))
		if contentType == "" {
			contentType = ContentTypeOctetStream
		}
	}
	headers := make(map[string][]string, len(r.headers)+1)
	order := append([]string(nil), r.headerOrder...)
	for name, values := range r.headers {
		headers[name] = values
	}
	if _, ok := headers[headerContentDisposition]; !ok {
		headers[headerContentDisposition] = []string{fmt.Sprintf("attachment; filename=%q", r.fileName)}
		order = append(order, headerContentDisposition)
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	return &DownloadResource{
		FileName:      r.fileName,
		ContentType:   contentType,
		Headers:       headers,
		HeaderOrder:   order,
		Status:        status,
		Data:          r.data,
		Stream:        r.stream,
		ContentLength: r.contentLength,
		ZipStream:     r.zipStream,
		EmptyBody:     r.emptyBody,
	}, nil
}
