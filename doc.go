// Package hxpage renders server-side pages built from Go page files and
// Templ components.
//
// A page is a set of files sharing an id, for example /pages/product/index:
//
//	pages/product/index.page.go          Page, onBeforeRender (isomorphic)
//	pages/product/index.page.server.go   render, onBeforeRender, passToClient, prerender
//	pages/product/index.page.route.go    route string or route function
//
// Files named default.page*.go apply to every page of their directory (and
// below); the page named error is rendered for 404s and 500s. The
// `hxpage generate` command scans the pages directory and writes a
// Manifest listing every file and its exports.
//
// # Rendering
//
// A Renderer renders one request at a time, from any number of goroutines:
//
//	r := hxpage.New(pages.Manifest(), hxpage.WithLogger(logger))
//	http.Handle("/", r.Handler())
//
// or, when the host owns the transport:
//
//	pc := r.RenderPage(ctx, hxpage.PageContextInit{URL: "/product/42"})
//	if res := pc.HTTPResponse(); res != nil {
//	    body, err := res.GetBody(ctx)
//	    ...
//	}
//
// RenderPage never fails. A failing hook is logged once and answered with
// the error page and status 500; a URL matching no page gets the error page
// with status 404. When there is no error page the response is nil.
//
// # Lifecycle
//
// For each request the renderer routes the URL, loads the page files, runs
// the onBeforeRender hooks and finally the render hook:
//
//  1. The isomorphic onBeforeRender hook (from the .page file) runs first.
//     It may call pc.RunOnBeforeRenderServerHooks(ctx) to run the server
//     hook at that point, or pc.SkipOnBeforeRenderServerHooks() to skip it.
//  2. Otherwise the server onBeforeRender hook runs afterwards.
//  3. The render hook returns a templ.Component, Stream(c) for a streamed
//     document, or a RenderResult that also adds page context fields.
//
// A page-specific hook always overrides the hook of the default file. Hook
// results are merged into the page context and never delete a field.
//
// # Page Context Requests
//
// URLs ending with /index.pageContext.json ask for the page context
// instead of the document. Only the server hooks run, and the fields named
// by passToClient are returned as {"pageContext": {...}}.
//
// # Prerendering
//
// Renderer.Prerender renders every page that has no route parameter, plus
// the URLs returned by prerender hooks, to an ArtifactWriter. The index it
// writes lets lib/cli serve the artifacts without rendering.
package hxpage
