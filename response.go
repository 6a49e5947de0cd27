package hxpage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

// Content types of responses.
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// HTTPResponse is the response of a rendered page. Buffered documents are
// read with Body; streams with GetReader or Pipe, depending on how the
// render hook produced them. GetBody and WriteHTTP work for every kind.
type HTTPResponse struct {
	StatusCode  int
	ContentType string

	render         *htmlRender
	renderFilePath string

	mu       sync.Mutex
	body     *string
	consumed bool
}

// newHTTPResponse returns nil when there is no document.
func newHTTPResponse(render *htmlRender, statusCode int, renderFilePath string, isPageContextRequest bool) *HTTPResponse {
	if render == nil {
		return nil
	}
	contentType := ContentTypeHTML
	if isPageContextRequest {
		contentType = ContentTypeJSON
	}
	return &HTTPResponse{
		StatusCode:     statusCode,
		ContentType:    contentType,
		render:         render,
		renderFilePath: renderFilePath,
	}
}

func newHTTPResponseString(body string, statusCode int, renderFilePath string, isPageContextRequest bool) *HTTPResponse {
	return newHTTPResponse(&htmlRender{kind: htmlString, str: body}, statusCode, renderFilePath, isPageContextRequest)
}

// IsStream reports whether the document is streamed.
func (res *HTTPResponse) IsStream() bool {
	return res.render.isStream()
}

// Body returns a buffered document. For streams it fails: use GetBody,
// GetReader or Pipe.
func (res *HTTPResponse) Body() (string, error) {
	if res.render.isStream() {
		return "", usageErrorf("the `%s()` hook exported by %s returns a stream: use httpResponse.GetBody(ctx) instead of httpResponse.Body()",
			ExportRender, res.renderFilePath)
	}
	return res.render.str, nil
}

// GetBody returns the whole document, consuming the stream if needed. The
// result is cached. On a stream failure the bytes written so far are
// returned along with a *StreamingError.
func (res *HTTPResponse) GetBody(ctx context.Context) (string, error) {
	res.mu.Lock()
	defer res.mu.Unlock()
	if res.body != nil {
		return *res.body, nil
	}
	if !res.render.isStream() {
		return res.render.str, nil
	}
	if res.consumed {
		return "", ErrAlreadyConsumed
	}
	res.consumed = true

	var buf bytes.Buffer
	var err error
	switch res.render.kind {
	case htmlReader:
		_, err = io.Copy(&buf, res.render.reader)
	case htmlPipe:
		err = res.render.pipe(ctx, &buf)
	}
	body := buf.String()
	if err != nil {
		return body, err
	}
	res.body = &body
	return body, nil
}

// GetReader returns the document stream of a render hook that returned
// StreamReader markup. It can be called once.
func (res *HTTPResponse) GetReader() (io.Reader, error) {
	switch res.render.kind {
	case htmlString:
		return nil, usageErrorf("the `%s()` hook exported by %s returns a buffered document: use httpResponse.Body() instead of httpResponse.GetReader()",
			ExportRender, res.renderFilePath)
	case htmlPipe:
		return nil, usageErrorf("the `%s()` hook exported by %s returns a pipe stream: use httpResponse.Pipe(ctx, w) instead of httpResponse.GetReader()",
			ExportRender, res.renderFilePath)
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	if res.consumed {
		return nil, ErrAlreadyConsumed
	}
	res.consumed = true
	return res.render.reader, nil
}

// Pipe writes the document of a render hook that returned Stream markup to
// w. It can be called once.
func (res *HTTPResponse) Pipe(ctx context.Context, w io.Writer) error {
	switch res.render.kind {
	case htmlString:
		return usageErrorf("the `%s()` hook exported by %s returns a buffered document: use httpResponse.Body() instead of httpResponse.Pipe()",
			ExportRender, res.renderFilePath)
	case htmlReader:
		return usageErrorf("the `%s()` hook exported by %s returns a reader stream: use httpResponse.GetReader() instead of httpResponse.Pipe()",
			ExportRender, res.renderFilePath)
	}
	res.mu.Lock()
	if res.consumed {
		res.mu.Unlock()
		return ErrAlreadyConsumed
	}
	res.consumed = true
	res.mu.Unlock()
	return res.render.pipe(ctx, w)
}

// WriteHTTP sends the response, whatever its kind, flushing streams as
// they are written.
func (res *HTTPResponse) WriteHTTP(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(res.StatusCode)

	res.mu.Lock()
	cached := res.body
	res.mu.Unlock()
	if cached != nil {
		_, err := io.WriteString(w, *cached)
		return err
	}

	fw := &flushWriter{w: w}
	fw.flusher, _ = w.(http.Flusher)
	switch res.render.kind {
	case htmlReader:
		r, err := res.GetReader()
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, r)
		return err
	case htmlPipe:
		return res.Pipe(ctx, fw)
	default:
		_, err := io.WriteString(w, res.render.str)
		return err
	}
}

type flushWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return n, err
}
