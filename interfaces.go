package hxpage

import (
	"context"
)

// Manifest is implemented by the build step that knows every page file of
// the application. The renderer loads it once, when the global context is
// first computed.
//
// Applications normally use the manifest produced by `hxpage generate`, which
// returns a StaticManifest listing every *.page*.go file under the pages
// directory. Tests build a StaticManifest by hand.
type Manifest interface {
	PageFiles(ctx context.Context) ([]PageFile, error)
}

// ManifestFunc adapts a function to the Manifest interface.
type ManifestFunc func(ctx context.Context) ([]PageFile, error)

// PageFiles implements Manifest.
func (f ManifestFunc) PageFiles(ctx context.Context) ([]PageFile, error) {
	return f(ctx)
}

// StaticManifest is a Manifest backed by a fixed list of page files.
type StaticManifest []PageFile

// PageFiles implements Manifest.
func (m StaticManifest) PageFiles(context.Context) ([]PageFile, error) {
	files := make([]PageFile, len(m))
	copy(files, m)
	return files, nil
}

// OnBeforeRenderFunc fetches data before a page renders. The returned
// fields are shallow-merged into the page context; returning nil adds
// nothing.
//
// Isomorphic hooks (exported by .page files) may call
// pc.RunOnBeforeRenderServerHooks or pc.SkipOnBeforeRenderServerHooks once.
type OnBeforeRenderFunc func(ctx context.Context, pc *PageContext) (map[string]any, error)

// RenderFunc produces the document. The return value must be one of:
//   - nil: no document, the host falls back to client-only rendering
//   - a templ.Component (see also Stream and StreamReader)
//   - a RenderResult, or a map with only the keys "documentHtml" and
//     "pageContext"
//
// Plain strings are rejected: wrap trusted markup with templ.Raw.
type RenderFunc func(ctx context.Context, pc *PageContext) (any, error)

// RouteFunc decides whether a page matches the current URL.
type RouteFunc func(ctx context.Context, pc *PageContext) (RouteMatch, error)

// RouteMatch is the result of a RouteFunc. Precedence orders matches of
// different route functions: higher wins.
type RouteMatch struct {
	Match       bool
	Precedence  int
	RouteParams map[string]string
}

// OnBeforeRouteFunc runs before routing. Returning a non-nil RouteOverride
// bypasses the route table: an empty PageID means "not found".
type OnBeforeRouteFunc func(ctx context.Context, pc *PageContext) (*RouteOverride, error)

// RouteOverride is returned by an OnBeforeRouteFunc.
type RouteOverride struct {
	PageID      string
	RouteParams map[string]string
	Values      map[string]any
}

// PrerenderFunc lists the URLs of a page to prerender. An entry that carries
// a PageContext skips the page's onBeforeRender hooks.
type PrerenderFunc func(ctx context.Context) ([]PrerenderEntry, error)

// OnBeforePrerenderFunc receives every entry about to be prerendered and
// returns the final list.
type OnBeforePrerenderFunc func(ctx context.Context, entries []PrerenderEntry) ([]PrerenderEntry, error)

// PrerenderEntry is one URL scheduled for prerendering.
type PrerenderEntry struct {
	URL         string
	PageID      string
	PageContext map[string]any
}
