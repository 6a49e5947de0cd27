package hxpage

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/a-h/templ"
)

// RenderResult is returned from render hooks that also add fields to the
// page context.
//
// A render hook returns one of:
//
//	// No document: the host falls back to client-side rendering
//	return nil, nil
//
//	// A buffered document
//	return views.Page(props), nil
//
//	// A streamed document, written as the component renders
//	return hxpage.Stream(views.Page(props)), nil
//
//	// A document plus page context fields, e.g. for passToClient
//	return hxpage.RenderResult{
//	    DocumentHTML: views.Page(props),
//	    PageContext:  map[string]any{"title": props.Title},
//	}, nil
//
// The map form map[string]any{"documentHtml": ..., "pageContext": ...} is
// accepted as well. Markup is always a templ.Component: plain strings are
// rejected so that user content is never sent unescaped by accident. Wrap
// trusted markup with templ.Raw.
type RenderResult struct {
	DocumentHTML templ.Component
	PageContext  map[string]any
}

const (
	resultKeyDocumentHTML = "documentHtml"
	resultKeyPageContext  = "pageContext"
)

type renderResultKind int

const (
	resultNoDocument renderResultKind = iota
	resultMarkup
	resultMarkupWithContext
)

// renderResult is a validated render hook return value.
type renderResult struct {
	kind        renderResultKind
	markup      templ.Component
	pageContext map[string]any
}

func newRenderResult(v any, renderFilePath string) (renderResult, error) {
	switch res := v.(type) {
	case nil:
		return renderResult{kind: resultNoDocument}, nil
	case RenderResult:
		return fromParts(res.DocumentHTML, res.PageContext), nil
	case *RenderResult:
		if res == nil {
			return renderResult{kind: resultNoDocument}, nil
		}
		return fromParts(res.DocumentHTML, res.PageContext), nil
	case templ.Component:
		if res == nil {
			return renderResult{kind: resultNoDocument}, nil
		}
		return renderResult{kind: resultMarkup, markup: res}, nil
	case map[string]any:
		return renderResultFromMap(res, renderFilePath)
	case string, []byte:
		return renderResult{}, usageErrorf("the `%s()` hook exported by %s returned a plain %T: return a templ.Component (wrap trusted markup with templ.Raw) or a hxpage.RenderResult{DocumentHTML, PageContext}",
			ExportRender, renderFilePath, v)
	}
	return renderResult{}, invalidRenderResult(renderFilePath, fmt.Sprintf("%T", v))
}

func fromParts(markup templ.Component, pageContext map[string]any) renderResult {
	switch {
	case pageContext != nil:
		return renderResult{kind: resultMarkupWithContext, markup: markup, pageContext: pageContext}
	case markup != nil:
		return renderResult{kind: resultMarkup, markup: markup}
	default:
		return renderResult{kind: resultNoDocument}
	}
}

func renderResultFromMap(m map[string]any, renderFilePath string) (renderResult, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != resultKeyDocumentHTML && k != resultKeyPageContext {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		return renderResult{}, usageErrorf("the `%s()` hook exported by %s returned a map with the unknown keys %s; only %s are allowed",
			ExportRender, renderFilePath, stringifyStringArray(keys), stringifyStringArray([]string{resultKeyDocumentHTML, resultKeyPageContext}))
	}

	var markup templ.Component
	if v, ok := m[resultKeyDocumentHTML]; ok && v != nil {
		c, isComponent := v.(templ.Component)
		if !isComponent {
			return renderResult{}, invalidRenderResult(renderFilePath, fmt.Sprintf("a map whose `%s` is a %T", resultKeyDocumentHTML, v))
		}
		markup = c
	}
	var pageContext map[string]any
	if v, ok := m[resultKeyPageContext]; ok && v != nil {
		fields, isMap := v.(map[string]any)
		if !isMap {
			return renderResult{}, usageErrorf("the `%s()` hook exported by %s returned `%s` of type %T; it should be a map[string]any",
				ExportRender, renderFilePath, resultKeyPageContext, v)
		}
		pageContext = fields
	}
	if _, ok := m[resultKeyPageContext]; ok && pageContext == nil {
		pageContext = map[string]any{}
	}
	return fromParts(markup, pageContext), nil
}

func invalidRenderResult(renderFilePath, got string) *UsageError {
	return usageErrorf("the `%s()` hook exported by %s should return a templ.Component or a hxpage.RenderResult{DocumentHTML, PageContext}, got %s",
		ExportRender, renderFilePath, got)
}

// streamComponent marks markup that is written to the response while it
// renders.
type streamComponent struct {
	component templ.Component
}

func (s *streamComponent) Render(ctx context.Context, w io.Writer) error {
	return s.component.Render(ctx, w)
}

// Stream makes the renderer pipe c to the response instead of buffering
// it. The status is sent before c runs, so no stream error falls back to
// the error page, not even one raised before the first byte: the stream
// ends, the error is logged and PageContext.ErrWhileStreaming reports it.
func Stream(c templ.Component) templ.Component {
	return &streamComponent{component: c}
}

// readerComponent is markup produced by an io.Reader.
type readerComponent struct {
	reader io.Reader
}

func (s *readerComponent) Render(_ context.Context, w io.Writer) error {
	_, err := io.Copy(w, s.reader)
	return err
}

// StreamReader returns markup read from r, for documents produced outside
// templ. The response exposes r through HTTPResponse.GetReader. Read
// errors are handled like Stream errors.
func StreamReader(r io.Reader) templ.Component {
	return &readerComponent{reader: r}
}
