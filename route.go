package hxpage

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// PageRoute is one entry of the route table. A page is routed by its route
// file when it has one, and by its filesystem route otherwise.
type PageRoute struct {
	PageID          string
	FilesystemRoute string

	// Set when the page has a .page.route file.
	RouteFilePath string
	RouteString   string
	RouteFunc     RouteFunc
}

type onBeforeRouteHook struct {
	fn       OnBeforeRouteFunc
	filePath string
}

// routeResult is the outcome of routing. An empty pageID means no page
// matches.
type routeResult struct {
	pageID      string
	routeParams map[string]string
}

// Match tiers, highest precedence first.
const (
	tierExact = iota
	tierFunc
	tierParam
	tierFilesystem
)

type routeMatch struct {
	pageID      string
	routeParams map[string]string
	tier        int
	precedence  int // route functions
	static      int // parametrized route strings
	total       int
	glob        bool
}

// filesystemRoute derives the URL of a page from its id:
// "/pages/product/index" becomes "/product".
func filesystemRoute(pageID string) string {
	var kept []string
	for _, seg := range splitSegments(pageID) {
		if seg == "pages" || seg == "src" {
			continue
		}
		kept = append(kept, seg)
	}
	if n := len(kept); n > 0 && kept[n-1] == "index" {
		kept = kept[:n-1]
	}
	return "/" + strings.Join(kept, "/")
}

// loadPageRoutes loads the route files and builds the route table, sorted
// by page id. The error page is left out.
func loadPageRoutes(ctx context.Context, all AllPageFiles, pageIDs []string) ([]PageRoute, *onBeforeRouteHook, error) {
	routeFiles := all[FileTypeRoute]
	loaded := make([]Exports, len(routeFiles))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range routeFiles {
		g.Go(func() error {
			exports, err := f.load(gctx)
			if err != nil {
				return fmt.Errorf("load %s: %w", f.FilePath, err)
			}
			loaded[i] = exports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var onBeforeRoute *onBeforeRouteHook
	byPageID := map[string]PageRoute{}
	for i, f := range routeFiles {
		exports := loaded[i]
		if isDefaultFile(f.FilePath) {
			if err := assertExports(exports, f.FilePath, []string{ExportOnBeforeRoute}); err != nil {
				return nil, nil, err
			}
			fn, err := castOnBeforeRoute(exports, f.FilePath)
			if err != nil {
				return nil, nil, err
			}
			if fn == nil {
				continue
			}
			if onBeforeRoute != nil {
				return nil, nil, usageErrorf("`%s()` is defined twice: in %s and in %s", ExportOnBeforeRoute, onBeforeRoute.filePath, f.FilePath)
			}
			onBeforeRoute = &onBeforeRouteHook{fn: fn, filePath: f.FilePath}
			continue
		}
		if err := assertExports(exports, f.FilePath, []string{ExportRoute}); err != nil {
			return nil, nil, err
		}
		routeString, routeFunc, err := castRoute(exports, f.FilePath)
		if err != nil {
			return nil, nil, err
		}
		pageID := pageIDOf(f.FilePath)
		if isErrorPage(pageID) {
			return nil, nil, usageErrorf("%s: the error page cannot have a route", f.FilePath)
		}
		byPageID[pageID] = PageRoute{
			PageID:        pageID,
			RouteFilePath: f.FilePath,
			RouteString:   routeString,
			RouteFunc:     routeFunc,
		}
	}

	routes := make([]PageRoute, 0, len(pageIDs))
	for _, pageID := range pageIDs {
		if isErrorPage(pageID) {
			continue
		}
		pr, ok := byPageID[pageID]
		if !ok {
			pr = PageRoute{PageID: pageID}
		}
		pr.FilesystemRoute = filesystemRoute(pageID)
		routes = append(routes, pr)
	}
	return routes, onBeforeRoute, nil
}

// route resolves the page for pc's URL.
func (r *Renderer) route(ctx context.Context, pc *pageContext) (routeResult, error) {
	g := pc.global
	if hook := g.onBeforeRoute; hook != nil {
		var override *RouteOverride
		err := r.callHook(ctx, ExportOnBeforeRoute, hook.filePath, func(ctx context.Context) error {
			var err error
			override, err = hook.fn(ctx, pc.view())
			return err
		})
		if err != nil {
			return routeResult{}, err
		}
		if override != nil {
			if err := pc.merge(override.Values, ExportOnBeforeRoute, hook.filePath); err != nil {
				return routeResult{}, err
			}
			if override.PageID == "" {
				return routeResult{routeParams: map[string]string{}}, nil
			}
			if isErrorPage(override.PageID) {
				return routeResult{}, usageErrorf("the `%s()` hook exported by %s returned the error page id %s; the error page cannot be routed to",
					ExportOnBeforeRoute, hook.filePath, quote(override.PageID))
			}
			if !g.HasPage(override.PageID) {
				return routeResult{}, usageErrorf("the `%s()` hook exported by %s returned the unknown page id %s; known page ids: %s",
					ExportOnBeforeRoute, hook.filePath, quote(override.PageID), stringifyStringArray(g.PageIDs))
			}
			params := override.RouteParams
			if params == nil {
				params = map[string]string{}
			}
			return routeResult{pageID: override.PageID, routeParams: maps.Clone(params)}, nil
		}
	}

	urlPathname := pc.urlParsed.Pathname
	var matches []routeMatch
	for _, pr := range g.Routes {
		switch {
		case pr.RouteFunc != nil:
			var res RouteMatch
			err := r.callHook(ctx, ExportRoute, pr.RouteFilePath, func(ctx context.Context) error {
				var err error
				res, err = pr.RouteFunc(ctx, pc.view())
				return err
			})
			if err != nil {
				return routeResult{}, err
			}
			if res.Match {
				matches = append(matches, routeMatch{
					pageID:      pr.PageID,
					routeParams: res.RouteParams,
					tier:        tierFunc,
					precedence:  res.Precedence,
				})
			}
		case pr.RouteFilePath != "":
			params := matchRouteString(pr.RouteString, urlPathname)
			if params == nil {
				continue
			}
			m := routeMatch{pageID: pr.PageID, routeParams: params, tier: tierParam}
			if isStaticRouteString(pr.RouteString) {
				m.tier = tierExact
			}
			m.static, m.total, m.glob = routeStringWeight(pr.RouteString)
			matches = append(matches, m)
		default:
			if strings.TrimSuffix(urlPathname, "/") == strings.TrimSuffix(pr.FilesystemRoute, "/") {
				matches = append(matches, routeMatch{pageID: pr.PageID, tier: tierFilesystem})
			}
		}
	}
	if len(matches) == 0 {
		return routeResult{routeParams: map[string]string{}}, nil
	}

	slices.SortStableFunc(matches, compareRouteMatches)
	winner := matches[0]
	params := winner.routeParams
	if params == nil {
		params = map[string]string{}
	}
	return routeResult{pageID: winner.pageID, routeParams: maps.Clone(params)}, nil
}

func compareRouteMatches(a, b routeMatch) int {
	if c := cmp.Compare(a.tier, b.tier); c != 0 {
		return c
	}
	switch a.tier {
	case tierFunc:
		if c := cmp.Compare(b.precedence, a.precedence); c != 0 {
			return c
		}
	case tierParam:
		if a.glob != b.glob {
			if a.glob {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(b.static, a.static); c != 0 {
			return c
		}
		if c := cmp.Compare(b.total, a.total); c != 0 {
			return c
		}
	}
	return strings.Compare(a.pageID, b.pageID)
}

// describeRoutes lists the route table for the 404 warning.
func describeRoutes(routes []PageRoute) []string {
	lines := make([]string, 0, len(routes))
	for _, pr := range routes {
		var route, routeType string
		switch {
		case pr.RouteFunc != nil:
			route = truncateString(funcName(pr.RouteFunc), 64)
			routeType = "Route Function"
		case pr.RouteFilePath != "":
			route = pr.RouteString
			routeType = "Route String"
		default:
			route = pr.FilesystemRoute
			routeType = "Filesystem Route"
		}
		lines = append(lines, fmt.Sprintf("`%s` (%s of `%s.page.*`)", route, routeType, pr.PageID))
	}
	slices.Sort(lines)
	width := len(fmt.Sprint(len(lines)))
	for i, line := range lines {
		lines[i] = fmt.Sprintf(" (%0*d) %s", width, i+1, line)
	}
	return lines
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "func"
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
