package hxpage

import (
	"maps"
	"sort"
	"strings"
)

// PageContextInit is the input of RenderPage.
type PageContextInit struct {
	// URL is the request URL: a pathname starting with "/" or a full
	// "http(s)://" URL.
	URL string
	// Values are merged into the page context before any hook runs, for
	// example the authenticated user.
	Values map[string]any
}

// Keys owned by the renderer. Hooks cannot set them.
var reservedKeys = map[string]bool{
	"url":               true,
	"urlPathname":       true,
	"urlParsed":         true,
	"routeParams":       true,
	"Page":              true,
	"pageExports":       true,
	"is404":             true,
	"httpResponse":      true,
	"isPreRendering":    true,
	"errWhileStreaming": true,
}

const pagePropsKey = "pageProps"

// pageContext accumulates everything known about one request. Stages only
// ever add to it.
type pageContext struct {
	values map[string]any

	url                  string
	urlParsed            *URLParsed
	isPreRendering       bool
	isPageContextRequest bool
	global               *GlobalContext
	requestID            string

	pageID      string
	routeParams map[string]string
	is404       *bool
	files       *pageFiles

	httpResponse            *HTTPResponse
	err                     error
	errWhileStreaming       bool
	providedByPrerenderHook bool

	log *requestLog
}

func newPageContext(init PageContextInit, isPreRendering bool) *pageContext {
	pc := &pageContext{
		values:         map[string]any{},
		url:            init.URL,
		isPreRendering: isPreRendering,
	}
	maps.Copy(pc.values, init.Values)
	return pc
}

func (pc *pageContext) setHTTPResponse(res *HTTPResponse) {
	pc.httpResponse = res
}

func (pc *pageContext) setIs404(v bool) {
	pc.is404 = &v
}

// merge shallow-merges fields provided by a hook. Later keys overwrite
// earlier ones; reserved and underscore keys are rejected.
func (pc *pageContext) merge(fields map[string]any, hookName, hookFilePath string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, "_") || reservedKeys[k] {
			return usageErrorf("the `%s()` hook exported by %s provides `pageContext.%s` which is reserved by hxpage", hookName, hookFilePath, k)
		}
	}
	for _, k := range keys {
		pc.values[k] = fields[k]
	}
	return nil
}

// view returns the public, read-only view of the context.
func (pc *pageContext) view() *PageContext {
	return &PageContext{b: pc}
}

// seal asserts the fields user code relies on and projects is404 into
// pageProps for the error page.
func (pc *pageContext) seal() error {
	assertf(pc.url != "", "pageContext.url is missing")
	assertf(pc.urlParsed != nil, "pageContext.urlParsed is missing")
	assertf(pc.routeParams != nil, "pageContext.routeParams is missing")
	assertf(pc.files != nil, "page files of %s are not loaded", pc.pageID)
	assertf(pc.files.pageExports != nil, "pageContext.pageExports is missing")
	if isErrorPage(pc.pageID) {
		assertf(pc.is404 != nil, "pageContext.is404 is missing for the error page")
		return pc.addIs404ToPageProps()
	}
	return nil
}

func (pc *pageContext) addIs404ToPageProps() error {
	props := map[string]any{}
	if existing, ok := pc.values[pagePropsKey]; ok && existing != nil {
		m, isMap := existing.(map[string]any)
		if !isMap {
			return usageErrorf("`pageContext.pageProps` should be a map[string]any, got %T", existing)
		}
		maps.Copy(props, m)
	}
	props["is404"] = *pc.is404
	pc.values[pagePropsKey] = props
	return nil
}

// lookup resolves a key the way passToClient names it.
func (pc *pageContext) lookup(key string) (any, bool) {
	switch key {
	case "url":
		return pc.url, true
	case "urlPathname":
		if pc.urlParsed == nil {
			return nil, false
		}
		return pc.urlParsed.Pathname, true
	case "urlParsed":
		if pc.urlParsed == nil {
			return nil, false
		}
		return *pc.urlParsed, true
	case "routeParams":
		return pc.routeParams, pc.routeParams != nil
	case "is404":
		if pc.is404 == nil {
			return nil, false
		}
		return *pc.is404, true
	case "_pageId":
		return pc.pageID, pc.pageID != ""
	case "_serverSideErrorWhileStreaming":
		return pc.errWhileStreaming, pc.errWhileStreaming
	}
	v, ok := pc.values[key]
	return v, ok
}

// PageContext is the read-only view of a request handed to hooks and
// returned by RenderPage. Fields that are not known yet return their zero
// value.
type PageContext struct {
	b       *pageContext
	control *serverHookControl
}

// URL returns the request URL as passed to RenderPage.
func (p *PageContext) URL() string { return p.b.url }

// URLPathname returns the pathname relative to the base URL.
func (p *PageContext) URLPathname() string {
	if p.b.urlParsed == nil {
		return ""
	}
	return p.b.urlParsed.Pathname
}

// URLParsed returns the parsed URL.
func (p *PageContext) URLParsed() URLParsed {
	if p.b.urlParsed == nil {
		return URLParsed{}
	}
	return *p.b.urlParsed
}

// RouteParams returns a copy of the route parameters.
func (p *PageContext) RouteParams() map[string]string {
	return maps.Clone(p.b.routeParams)
}

// PageID returns the id of the page being rendered, or "" before routing
// (and when nothing matched).
func (p *PageContext) PageID() string { return p.b.pageID }

// Page returns the `Page` export of the page's .page file.
func (p *PageContext) Page() any {
	if p.b.files == nil {
		return nil
	}
	return p.b.files.page
}

// PageExports returns the exports of the page's .page files, the page
// specific file overriding the default one.
func (p *PageContext) PageExports() Exports {
	if p.b.files == nil {
		return nil
	}
	return maps.Clone(p.b.files.pageExports)
}

// Is404 reports whether the error page renders a 404. ok is false when the
// page is not the error page.
func (p *PageContext) Is404() (is404 bool, ok bool) {
	if p.b.is404 == nil {
		return false, false
	}
	return *p.b.is404, true
}

// IsPreRendering reports whether the page renders at build time.
func (p *PageContext) IsPreRendering() bool { return p.b.isPreRendering }

// IsPageContextRequest reports whether the client asked for the serialized
// page context instead of HTML.
func (p *PageContext) IsPageContextRequest() bool { return p.b.isPageContextRequest }

// Get returns a value added by PageContextInit.Values or by a hook.
func (p *PageContext) Get(key string) (any, bool) {
	v, ok := p.b.values[key]
	return v, ok
}

// Value is Get without the presence flag.
func (p *PageContext) Value(key string) any {
	return p.b.values[key]
}

// Keys lists the keys of the user values, sorted.
func (p *PageContext) Keys() []string {
	keys := make([]string, 0, len(p.b.values))
	for k := range p.b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PageProps returns pageContext.pageProps, or nil.
func (p *PageContext) PageProps() map[string]any {
	m, _ := p.b.values[pagePropsKey].(map[string]any)
	return m
}

// HTTPResponse returns the response, or nil when the host should not send
// one.
func (p *PageContext) HTTPResponse() *HTTPResponse { return p.b.httpResponse }

// Err returns the error the error page is rendered for, if any.
func (p *PageContext) Err() error { return p.b.err }

// ErrWhileStreaming reports whether the HTML stream failed after it started.
func (p *PageContext) ErrWhileStreaming() bool { return p.b.errWhileStreaming }

// RequestID returns the id attached to this render in logs and traces.
func (p *PageContext) RequestID() string { return p.b.requestID }
