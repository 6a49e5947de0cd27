package hxpage

import (
	"context"
	"net/http"

	"github.com/pthm/hxpage/lib/encoding"
)

// renderPageAlreadyRouted runs the hooks of pc.pageID and sets the
// response.
func (r *Renderer) renderPageAlreadyRouted(ctx context.Context, pc *pageContext) error {
	assertf(pc.pageID != "", "renderPageAlreadyRouted() called without page id")
	assertf(!isErrorPage(pc.pageID) || pc.is404 != nil, "is404 is missing for the error page")

	files, err := loadPageFiles(ctx, pc.global.PageFiles, pc.pageID)
	if err != nil {
		return err
	}
	pc.files = files

	if err := r.executeOnBeforeRenderHooks(ctx, pc); err != nil {
		return err
	}

	if pc.isPageContextRequest {
		if err := pc.seal(); err != nil {
			return err
		}
		serialized, err := serializePageContextClientSide(pc)
		if err != nil {
			return err
		}
		pc.setHTTPResponse(newHTTPResponseString(encoding.WrapPageContext(serialized), http.StatusOK, "", true))
		return nil
	}

	render, renderFilePath, err := r.executeRenderHook(ctx, pc)
	if err != nil {
		return err
	}
	pc.setHTTPResponse(newHTTPResponse(render, statusCodeOf(pc), renderFilePath, false))
	return nil
}

func statusCodeOf(pc *pageContext) int {
	if !isErrorPage(pc.pageID) {
		return http.StatusOK
	}
	if *pc.is404 {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// executeRenderHook calls the render hook of the page and turns its result
// into a document. A nil document means the host should not send a
// response.
func (r *Renderer) executeRenderHook(ctx context.Context, pc *pageContext) (*htmlRender, string, error) {
	hf := pc.files.hookFor(layerServer, hasRender)
	if hf == nil {
		var serverFiles []string
		for s := specPage; s < numSpecificities; s++ {
			if f := pc.files.get(layerServer, s); f != nil {
				serverFiles = append(serverFiles, f.filePath)
			}
		}
		return nil, "", &UsageError{
			Msg: "no `" + ExportRender + "()` hook found for page " + quote(pc.pageID) + "; define one in " + stringifyStringArray(serverFiles),
			Err: ErrNoRenderHook,
		}
	}

	if err := pc.seal(); err != nil {
		return nil, hf.filePath, err
	}

	var value any
	err := r.callHook(ctx, ExportRender, hf.filePath, func(ctx context.Context) error {
		var err error
		value, err = hf.render(ctx, pc.view())
		return err
	})
	if err != nil {
		return nil, hf.filePath, err
	}

	result, err := newRenderResult(value, hf.filePath)
	if err != nil {
		return nil, hf.filePath, err
	}
	if result.kind == resultMarkupWithContext {
		if err := pc.merge(result.pageContext, ExportRender, hf.filePath); err != nil {
			return nil, hf.filePath, err
		}
	}
	if result.markup == nil {
		return nil, hf.filePath, nil
	}

	html, err := renderMarkup(ctx, result.markup, hf.filePath, func(err error) error {
		return r.onErrorWhileStreaming(ctx, pc, hf.filePath, err)
	})
	if err != nil {
		return nil, hf.filePath, err
	}

	if r.clientRouting && !html.isStream() {
		serialized, err := serializePageContextClientSide(pc)
		if err != nil {
			return nil, hf.filePath, err
		}
		html.str = injectPageContext(html.str, serialized)
	}
	return html, hf.filePath, nil
}

// onErrorWhileStreaming records a failure of a stream, whether or not it
// wrote anything. The bytes written so far stay written.
func (r *Renderer) onErrorWhileStreaming(ctx context.Context, pc *pageContext, renderFilePath string, err error) error {
	serr := &StreamingError{RenderFilePath: renderFilePath, Err: err}
	pc.err = serr
	pc.errWhileStreaming = true
	pc.log.logError(ctx, serr)
	return serr
}
