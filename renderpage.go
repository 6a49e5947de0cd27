package hxpage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pthm/hxpage/lib/encoding"
)

// RenderPage renders the page matching init.URL.
//
// It never fails: errors are logged once and answered with the _error page
// (status 500). The returned context's HTTPResponse is nil when the host
// should not respond, for example when the URL is outside the base URL,
// when no page matches and there is no error page, or when the render hook
// returned no document.
//
// The request id is taken from ctx when set with ContextWithRequestID.
func (r *Renderer) RenderPage(ctx context.Context, init PageContextInit) *PageContext {
	start := time.Now()
	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = ContextWithRequestID(ctx, requestID)
	}
	ctx, span := r.startSpan(ctx, "hxpage.render_page",
		attribute.String("hxpage.url", init.URL),
		attribute.String("hxpage.request_id", requestID),
	)

	pc := newPageContext(init, false)
	pc.requestID = requestID
	pc.log = r.newRequestLog(requestID, init.URL)

	result := pc
	defer func() {
		status := 0
		if res := result.httpResponse; res != nil {
			status = res.StatusCode
		}
		span.SetAttributes(attribute.Int("http.status_code", status), attribute.String("hxpage.page_id", result.pageID))
		r.metrics.observeRender(status, time.Since(start))
		endSpan(span, result.err)
	}()

	if err := assertPageContextInit(init); err != nil {
		pc.log.logError(ctx, err)
		pc.err = err
		return pc.view()
	}

	if err := r.renderPageOrPanic(ctx, pc); err != nil {
		pc.log.logError(ctx, err)
		result = r.render500(ctx, init, pc, err)
	}
	return result.view()
}

func assertPageContextInit(init PageContextInit) error {
	if init.URL == "" {
		return usageErrorf("PageContextInit.URL is missing")
	}
	if !strings.HasPrefix(init.URL, "/") && !strings.HasPrefix(init.URL, "http") {
		return usageErrorf("PageContextInit.URL should start with `/` or `http`, got %s", quote(init.URL))
	}
	for k := range init.Values {
		if reservedKeys[k] {
			return usageErrorf("PageContextInit.Values provides the reserved key %s", quote(k))
		}
	}
	return nil
}

// renderPageOrPanic converts panics escaping the pipeline into errors.
func (r *Renderer) renderPageOrPanic(ctx context.Context, pc *pageContext) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errorFromPanic(v)
		}
	}()
	return r.renderPage(ctx, pc)
}

func (r *Renderer) renderPage(ctx context.Context, pc *pageContext) error {
	g, err := r.GlobalContext(ctx)
	if err != nil {
		return err
	}
	pc.global = g

	url, isPageContextRequest := handlePageContextRequestSuffix(pc.url)
	pc.url = url
	pc.isPageContextRequest = isPageContextRequest
	parsed, hasBaseURL := parseURL(url, g.BaseURL)
	pc.urlParsed = &parsed
	if !hasBaseURL || parsed.Pathname == "/favicon.ico" {
		return nil
	}

	routed, err := r.route(ctx, pc)
	if err != nil {
		return err
	}
	pc.routeParams = routed.routeParams
	if routed.pageID == "" {
		return r.render404(ctx, pc)
	}
	pc.pageID = routed.pageID
	return r.renderPageAlreadyRouted(ctx, pc)
}

func (r *Renderer) render404(ctx context.Context, pc *pageContext) error {
	g := pc.global
	if len(g.Routes) == 0 {
		return usageErrorf("no page found; create a file that ends with the suffix .page.go or .page.server.go")
	}
	if !pc.isPageContextRequest {
		pc.log.warn404(ctx, pc.urlParsed.Pathname, g.Routes)
	}

	if !g.HasErrorPage() {
		pc.log.warnMissingErrorPage(ctx)
		if pc.isPageContextRequest {
			pc.setHTTPResponse(newHTTPResponseString(encoding.NotFoundEnvelope, http.StatusOK, "", true))
		}
		return nil
	}
	pc.pageID = g.ErrorPageID
	pc.setIs404(true)
	return r.renderPageAlreadyRouted(ctx, pc)
}

// render500 renders the error page for err from a fresh context. A failure
// while doing so is only warned about.
func (r *Renderer) render500(ctx context.Context, init PageContextInit, failed *pageContext, err error) *pageContext {
	pc := newPageContext(init, false)
	pc.requestID = failed.requestID
	pc.log = failed.log
	pc.err = err
	pc.routeParams = map[string]string{}
	pc.setIs404(false)

	g, gerr := r.GlobalContext(ctx)
	if gerr != nil {
		pc.log.warn(ctx, "the error page could not be rendered because the global context failed", "error", gerr)
		return pc
	}
	pc.global = g
	url, isPageContextRequest := handlePageContextRequestSuffix(init.URL)
	pc.url = url
	pc.isPageContextRequest = isPageContextRequest
	parsed, _ := parseURL(url, g.BaseURL)
	pc.urlParsed = &parsed

	if isPageContextRequest {
		pc.setHTTPResponse(newHTTPResponseString(encoding.ServerErrorEnvelope, http.StatusInternalServerError, "", true))
		return pc
	}
	if !g.HasErrorPage() {
		pc.log.warnMissingErrorPage(ctx)
		return pc
	}

	pc.pageID = g.ErrorPageID
	if rerr := r.renderPageAlreadyRoutedOrPanic(ctx, pc); rerr != nil {
		attrs := []any{"error", rerr}
		var he *HookError
		if errors.As(rerr, &he) {
			attrs = append(attrs, "hook", he.HookName, "hook_file", he.HookFilePath)
		}
		pc.log.warn(ctx, "the error page could not be rendered", attrs...)
		pc.setHTTPResponse(nil)
	}
	return pc
}

func (r *Renderer) renderPageAlreadyRoutedOrPanic(ctx context.Context, pc *pageContext) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errorFromPanic(v)
		}
	}()
	return r.renderPageAlreadyRouted(ctx, pc)
}
