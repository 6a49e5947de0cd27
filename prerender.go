package hxpage

import (
	"context"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxpage/lib/encoding"
)

// PrerenderIndexFile is the name of the index written by Prerender.
const PrerenderIndexFile = "_hxpage/index.msgpack"

type onBeforePrerenderHook struct {
	fn       OnBeforePrerenderFunc
	filePath string
}

// loadOnBeforePrerenderHook finds the onBeforePrerender hook among the
// _default.page.server files. Only one is allowed.
func loadOnBeforePrerenderHook(ctx context.Context, all AllPageFiles) (*onBeforePrerenderHook, error) {
	var hook *onBeforePrerenderHook
	for _, f := range findDefaultFiles(all[FileTypeServer]) {
		exports, err := f.load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.FilePath, err)
		}
		fn, err := castOnBeforePrerender(exports, f.FilePath)
		if err != nil {
			return nil, err
		}
		if fn == nil {
			continue
		}
		if hook != nil {
			return nil, usageErrorf("`%s()` is defined twice: in %s and in %s; define it only once",
				ExportOnBeforePrerender, hook.filePath, f.FilePath)
		}
		hook = &onBeforePrerenderHook{fn: fn, filePath: f.FilePath}
	}
	return hook, nil
}

// PrerenderInput describes one page to render at build time.
type PrerenderInput struct {
	URL string

	// PageID skips routing when set.
	PageID      string
	RouteParams map[string]string

	// PageContext is provided by a prerender hook. When set the page's
	// onBeforeRender hooks do not run.
	PageContext map[string]any

	Values map[string]any
}

// PrerenderOutput is a prerendered page. PageContextSerialized is set when
// client routing is enabled.
type PrerenderOutput struct {
	DocumentHTML          string
	PageContextSerialized *string
}

// PrerenderPage renders one page at build time. Unlike RenderPage it
// returns errors instead of rendering the error page.
func (r *Renderer) PrerenderPage(ctx context.Context, in PrerenderInput) (*PrerenderOutput, error) {
	return r.prerenderPage(ctx, in, nil)
}

// RenderStatic404Page prerenders the error page as a 404. It returns nil
// when there is no error page.
func (r *Renderer) RenderStatic404Page(ctx context.Context) (*PrerenderOutput, error) {
	g, err := r.GlobalContext(ctx)
	if err != nil {
		return nil, err
	}
	if !g.HasErrorPage() {
		return nil, nil
	}
	is404 := true
	return r.prerenderPage(ctx, PrerenderInput{
		URL:         "/fake-404-url",
		PageID:      g.ErrorPageID,
		RouteParams: map[string]string{},
	}, &is404)
}

func (r *Renderer) prerenderPage(ctx context.Context, in PrerenderInput, is404 *bool) (_ *PrerenderOutput, err error) {
	requestID := uuid.NewString()
	ctx = ContextWithRequestID(ctx, requestID)
	ctx, span := r.startSpan(ctx, "hxpage.prerender_page", attribute.String("hxpage.url", in.URL))
	defer func() {
		if v := recover(); v != nil {
			err = errorFromPanic(v)
		}
		endSpan(span, err)
	}()

	if err := assertPageContextInit(PageContextInit{URL: in.URL, Values: in.Values}); err != nil {
		return nil, err
	}
	g, err := r.GlobalContext(ctx)
	if err != nil {
		return nil, err
	}

	pc := newPageContext(PageContextInit{URL: in.URL, Values: in.Values}, true)
	pc.requestID = requestID
	pc.log = r.newRequestLog(requestID, in.URL)
	pc.global = g
	parsed, _ := parseURL(in.URL, g.BaseURL)
	pc.urlParsed = &parsed
	if is404 != nil {
		pc.setIs404(*is404)
	}

	if in.PageID != "" {
		if !g.HasPage(in.PageID) {
			return nil, usageErrorf("cannot prerender the unknown page %s", quote(in.PageID))
		}
		pc.pageID = in.PageID
		pc.routeParams = maps.Clone(in.RouteParams)
		if pc.routeParams == nil {
			pc.routeParams = map[string]string{}
		}
	} else {
		routed, err := r.route(ctx, pc)
		if err != nil {
			return nil, err
		}
		if routed.pageID == "" {
			return nil, usageErrorf("the URL %s cannot be prerendered: it does not match any page route", quote(in.URL))
		}
		pc.pageID = routed.pageID
		pc.routeParams = routed.routeParams
	}
	if isErrorPage(pc.pageID) && pc.is404 == nil {
		pc.setIs404(false)
	}

	if in.PageContext != nil {
		if err := pc.merge(in.PageContext, ExportPrerender, pc.pageID); err != nil {
			return nil, err
		}
		pc.providedByPrerenderHook = true
	}

	if err := r.renderPageAlreadyRouted(ctx, pc); err != nil {
		return nil, err
	}
	res := pc.httpResponse
	if res == nil {
		return nil, usageErrorf("prerendering %s requires the `%s()` hook to return a document", quote(in.URL), ExportRender)
	}
	body, err := res.GetBody(ctx)
	if err != nil {
		return nil, err
	}
	out := &PrerenderOutput{DocumentHTML: body}
	if r.clientRouting {
		serialized, err := serializePageContextClientSide(pc)
		if err != nil {
			return nil, err
		}
		out.PageContextSerialized = &serialized
	}
	r.metrics.observePrerendered()
	return out, nil
}

// ArtifactWriter stores prerendered files. lib/artifact provides directory
// and S3 implementations.
type ArtifactWriter interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
}

// PrerenderOptions configures Prerender.
type PrerenderOptions struct {
	Out ArtifactWriter

	// Encoder signs the index. Defaults to an unsigned encoder.
	Encoder *encoding.Encoder

	// Concurrency bounds the pages rendered at once. Defaults to 10.
	Concurrency int
}

// Prerender renders every page that can be rendered at build time: pages
// with a parameterless route plus the URLs returned by prerender hooks. It
// writes <url>/index.html, <url>/index.pageContext.json when client routing
// is enabled, 404.html and the index read by the static server.
func (r *Renderer) Prerender(ctx context.Context, opts PrerenderOptions) (*encoding.Index, error) {
	if opts.Out == nil {
		return nil, &ConfigError{Field: "out", Msg: "prerender needs an artifact writer"}
	}
	if opts.Encoder == nil {
		opts.Encoder = encoding.NewEncoder(nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}

	g, err := r.GlobalContext(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := r.collectPrerenderEntries(ctx, g)
	if err != nil {
		return nil, err
	}
	if hook := g.onBeforePrerender; hook != nil {
		err := r.callHook(ctx, ExportOnBeforePrerender, hook.filePath, func(ctx context.Context) error {
			var err error
			entries, err = hook.fn(ctx, entries)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	idx := &encoding.Index{
		Version:     encoding.IndexVersion,
		BaseURL:     g.BaseURL,
		GeneratedAt: time.Now().UTC(),
	}
	var mu sync.Mutex
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)
	for _, e := range entries {
		eg.Go(func() error {
			out, err := r.PrerenderPage(egctx, PrerenderInput{URL: e.URL, PageID: e.PageID, PageContext: e.PageContext})
			if err != nil {
				return fmt.Errorf("prerender %s: %w", e.URL, err)
			}
			entry, err := writePrerendered(egctx, opts.Out, e, out)
			if err != nil {
				return err
			}
			mu.Lock()
			idx.Pages = append(idx.Pages, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(idx.Pages, func(a, b encoding.IndexEntry) int { return strings.Compare(a.URL, b.URL) })

	notFound, err := r.RenderStatic404Page(ctx)
	if err != nil {
		return nil, fmt.Errorf("prerender 404 page: %w", err)
	}
	if notFound != nil {
		if err := opts.Out.Put(ctx, "404.html", []byte(notFound.DocumentHTML), ContentTypeHTML); err != nil {
			return nil, err
		}
		idx.NotFoundPath = "404.html"
	}

	data, err := opts.Encoder.EncodeIndex(idx)
	if err != nil {
		return nil, err
	}
	if err := opts.Out.Put(ctx, PrerenderIndexFile, data, "application/msgpack"); err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "prerender done", "pages", len(idx.Pages), "not_found_page", idx.NotFoundPath != "")
	return idx, nil
}

// collectPrerenderEntries lists the URLs to prerender. URLs returned by
// prerender hooks override the ones derived from routes.
func (r *Renderer) collectPrerenderEntries(ctx context.Context, g *GlobalContext) ([]PrerenderEntry, error) {
	byURL := map[string]PrerenderEntry{}
	var order []string
	add := func(e PrerenderEntry) {
		if _, ok := byURL[e.URL]; !ok {
			order = append(order, e.URL)
		}
		byURL[e.URL] = e
	}

	for _, pr := range g.Routes {
		files, err := loadPageFiles(ctx, g.PageFiles, pr.PageID)
		if err != nil {
			return nil, err
		}
		doNotPrerender := false
		for s := specPage; s < numSpecificities; s++ {
			if hf := files.get(layerServer, s); hf != nil && hf.doNotPrerender {
				doNotPrerender = true
				break
			}
		}
		if doNotPrerender {
			continue
		}

		switch {
		case pr.RouteFunc != nil:
		case pr.RouteFilePath != "":
			if isStaticRouteString(pr.RouteString) {
				add(PrerenderEntry{URL: pr.RouteString, PageID: pr.PageID})
			}
		default:
			add(PrerenderEntry{URL: pr.FilesystemRoute, PageID: pr.PageID})
		}

		hf := files.hookFor(layerServer, func(hf *hookFile) bool { return hf.prerender != nil })
		if hf == nil {
			continue
		}
		var extra []PrerenderEntry
		err = r.callHook(ctx, ExportPrerender, hf.filePath, func(ctx context.Context) error {
			var err error
			extra, err = hf.prerender(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, e := range extra {
			if !strings.HasPrefix(e.URL, "/") {
				return nil, usageErrorf("the `%s()` hook exported by %s returned the URL %s which should start with `/`",
					ExportPrerender, hf.filePath, quote(e.URL))
			}
			add(e)
		}
	}

	entries := make([]PrerenderEntry, 0, len(order))
	for _, u := range order {
		entries = append(entries, byURL[u])
	}
	return entries, nil
}

// artifactPath maps a URL to its prerendered file: "/" to "index.html",
// "/about" to "about/index.html".
func artifactPath(url, file string) string {
	pathname, _, _ := strings.Cut(url, "?")
	pathname = strings.Trim(pathname, "/")
	if pathname == "" {
		return file
	}
	return path.Join(pathname, file)
}

func writePrerendered(ctx context.Context, out ArtifactWriter, e PrerenderEntry, page *PrerenderOutput) (encoding.IndexEntry, error) {
	entry := encoding.IndexEntry{
		URL:      e.URL,
		PageID:   e.PageID,
		HTMLPath: artifactPath(e.URL, "index.html"),
	}
	if err := out.Put(ctx, entry.HTMLPath, []byte(page.DocumentHTML), ContentTypeHTML); err != nil {
		return entry, err
	}
	if page.PageContextSerialized != nil {
		entry.PageContextPath = artifactPath(e.URL, strings.TrimPrefix(PageContextRequestSuffix, "/"))
		body := encoding.WrapPageContext(*page.PageContextSerialized)
		if err := out.Put(ctx, entry.PageContextPath, []byte(body), ContentTypeJSON); err != nil {
			return entry, err
		}
	}
	return entry, nil
}
