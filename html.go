package hxpage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

type htmlRenderKind int

const (
	htmlString htmlRenderKind = iota
	htmlReader
	htmlPipe
)

// htmlRender is the document produced by a render hook: a buffered string,
// a reader, or a pipe writing to a transport-provided writer.
type htmlRender struct {
	kind   htmlRenderKind
	str    string
	reader io.Reader
	pipe   func(ctx context.Context, w io.Writer) error
}

func (h *htmlRender) isStream() bool {
	return h.kind != htmlString
}

// streamErrorHandler is called once when a stream fails after it started.
type streamErrorHandler func(err error) error

// renderMarkup turns validated markup into an htmlRender. Buffered markup
// renders now; streams render when the transport consumes them.
func renderMarkup(ctx context.Context, markup templ.Component, renderFilePath string, onErr streamErrorHandler) (*htmlRender, error) {
	switch m := markup.(type) {
	case *streamComponent:
		var once sync.Once
		return &htmlRender{
			kind: htmlPipe,
			pipe: func(ctx context.Context, w io.Writer) error {
				var err error
				once.Do(func() {
					if rerr := m.Render(ctx, w); rerr != nil {
						err = onErr(rerr)
					}
				})
				return err
			},
		}, nil
	case *readerComponent:
		return &htmlRender{
			kind:   htmlReader,
			reader: &streamReader{r: m.reader, onErr: onErr},
		}, nil
	}

	var buf bytes.Buffer
	if err := markup.Render(ctx, &buf); err != nil {
		return nil, &HookError{HookName: ExportRender, HookFilePath: renderFilePath, Err: err}
	}
	return &htmlRender{kind: htmlString, str: buf.String()}, nil
}

// streamReader reports the first read error other than io.EOF.
type streamReader struct {
	r      io.Reader
	onErr  streamErrorHandler
	failed bool
}

func (s *streamReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && !s.failed {
		s.failed = true
		err = s.onErr(err)
	}
	return n, err
}

const pageContextScriptID = "hxpage_pageContext"

// injectPageContext adds the serialized page context to a buffered
// document, before </body> when there is one.
func injectPageContext(html, serialized string) string {
	script := `<script id="` + pageContextScriptID + `" type="application/json">` + escapeScriptContent(serialized) + `</script>`
	if i := strings.LastIndex(html, "</body>"); i >= 0 {
		return html[:i] + script + html[i:]
	}
	return html + script
}

func escapeScriptContent(s string) string {
	return strings.ReplaceAll(s, "</", `<\/`)
}
