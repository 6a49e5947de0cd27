package hxpage

import (
	"context"
	"fmt"
	"slices"
)

// GlobalContext is computed once per Renderer and shared, read-only, by
// every request.
type GlobalContext struct {
	BaseURL     string
	Production  bool
	PageFiles   AllPageFiles
	PageIDs     []string
	ErrorPageID string
	Routes      []PageRoute

	onBeforeRoute     *onBeforeRouteHook
	onBeforePrerender *onBeforePrerenderHook
}

// HasErrorPage reports whether an _error page is defined.
func (g *GlobalContext) HasErrorPage() bool {
	return g.ErrorPageID != ""
}

// HasPage reports whether pageID is a known page.
func (g *GlobalContext) HasPage(pageID string) bool {
	_, found := slices.BinarySearch(g.PageIDs, pageID)
	return found
}

// GlobalContext returns the global context, computing it on first use.
// Concurrent first callers wait for one computation; its result, including
// a failure, is returned to every later caller. The computation does not
// observe the cancellation of the caller that triggers it.
func (r *Renderer) GlobalContext(ctx context.Context) (*GlobalContext, error) {
	r.globalOnce.Do(func() {
		r.global, r.globalErr = r.computeGlobalContext(context.WithoutCancel(ctx))
	})
	return r.global, r.globalErr
}

func (r *Renderer) computeGlobalContext(ctx context.Context) (_ *GlobalContext, err error) {
	ctx, span := r.startSpan(ctx, "hxpage.global_context")
	defer func() {
		if v := recover(); v != nil {
			err = errorFromPanic(v)
		}
		endSpan(span, err)
	}()

	if err := assertBaseURL(r.baseURL); err != nil {
		return nil, err
	}
	files, err := r.manifest.PageFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load page manifest: %w", err)
	}
	all, err := groupPageFiles(files)
	if err != nil {
		return nil, err
	}

	g := &GlobalContext{
		BaseURL:    normalizeBaseURL(r.baseURL),
		Production: r.production,
		PageFiles:  all,
		PageIDs:    determinePageIDs(all),
	}
	if g.ErrorPageID, err = getErrorPageID(g.PageIDs); err != nil {
		return nil, err
	}
	if g.Routes, g.onBeforeRoute, err = loadPageRoutes(ctx, all, g.PageIDs); err != nil {
		return nil, err
	}
	if g.onBeforePrerender, err = loadOnBeforePrerenderHook(ctx, all); err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "global context ready",
		"pages", len(g.PageIDs),
		"routes", len(g.Routes),
		"base_url", g.BaseURL,
		"error_page", g.ErrorPageID,
	)
	return g, nil
}
