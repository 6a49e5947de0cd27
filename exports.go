package hxpage

import (
	"context"
	"fmt"
	"reflect"
	"sort"
)

// Export names understood by the renderer.
const (
	ExportPage              = "Page"
	ExportOnBeforeRender    = "onBeforeRender"
	ExportRender            = "render"
	ExportPassToClient      = "passToClient"
	ExportPrerender         = "prerender"
	ExportDoNotPrerender    = "doNotPrerender"
	ExportOnBeforePrerender = "onBeforePrerender"
	ExportRoute             = "route"
	ExportOnBeforeRoute     = "onBeforeRoute"
)

var serverExports = []string{
	ExportRender,
	ExportOnBeforeRender,
	ExportPassToClient,
	ExportPrerender,
	ExportDoNotPrerender,
	ExportOnBeforePrerender,
}

var routeExports = []string{ExportRoute, ExportOnBeforeRoute}

// renamedExports maps export names of older releases to their current name.
var renamedExports = map[string]string{
	"_onBeforePrerender": ExportOnBeforePrerender,
	"addPageContext":     ExportOnBeforeRender,
}

// assertExports rejects unknown exports, pointing at the new name of
// renamed ones.
func assertExports(exports Exports, filePath string, allowed []string) error {
	known := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		known[name] = true
	}
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if known[name] {
			continue
		}
		if renamed, ok := renamedExports[name]; ok {
			return usageErrorf("%s: rename the export `%s` to `%s`", filePath, name, renamed)
		}
		return usageErrorf("%s: unknown export `%s`; only following exports are allowed: %s",
			filePath, name, stringifyStringArray(allowed))
	}
	return nil
}

func wrongExport(filePath, name, want string, v any) *UsageError {
	if v != nil && reflect.ValueOf(v).Kind() == reflect.Func {
		return usageErrorf("the `%s()` hook defined in %s has the signature %T, but it should be %s", name, filePath, v, want)
	}
	return usageErrorf("the `%s()` hook defined in %s should be a function %s", name, filePath, want)
}

func castOnBeforeRender(exports Exports, filePath string) (OnBeforeRenderFunc, error) {
	v, ok := exports[ExportOnBeforeRender]
	if !ok {
		return nil, nil
	}
	switch f := v.(type) {
	case OnBeforeRenderFunc:
		if f != nil {
			return f, nil
		}
	case func(context.Context, *PageContext) (map[string]any, error):
		if f != nil {
			return f, nil
		}
	}
	return nil, wrongExport(filePath, ExportOnBeforeRender, "func(context.Context, *hxpage.PageContext) (map[string]any, error)", v)
}

func castRender(exports Exports, filePath string) (RenderFunc, error) {
	v, ok := exports[ExportRender]
	if !ok {
		return nil, nil
	}
	switch f := v.(type) {
	case RenderFunc:
		if f != nil {
			return f, nil
		}
	case func(context.Context, *PageContext) (any, error):
		if f != nil {
			return f, nil
		}
	}
	return nil, wrongExport(filePath, ExportRender, "func(context.Context, *hxpage.PageContext) (any, error)", v)
}

func castPrerender(exports Exports, filePath string) (PrerenderFunc, error) {
	v, ok := exports[ExportPrerender]
	if !ok {
		return nil, nil
	}
	switch f := v.(type) {
	case PrerenderFunc:
		if f != nil {
			return f, nil
		}
	case func(context.Context) ([]PrerenderEntry, error):
		if f != nil {
			return f, nil
		}
	}
	return nil, wrongExport(filePath, ExportPrerender, "func(context.Context) ([]hxpage.PrerenderEntry, error)", v)
}

func castOnBeforePrerender(exports Exports, filePath string) (OnBeforePrerenderFunc, error) {
	v, ok := exports[ExportOnBeforePrerender]
	if !ok {
		return nil, nil
	}
	switch f := v.(type) {
	case OnBeforePrerenderFunc:
		if f != nil {
			return f, nil
		}
	case func(context.Context, []PrerenderEntry) ([]PrerenderEntry, error):
		if f != nil {
			return f, nil
		}
	}
	return nil, wrongExport(filePath, ExportOnBeforePrerender, "func(context.Context, []hxpage.PrerenderEntry) ([]hxpage.PrerenderEntry, error)", v)
}

func castOnBeforeRoute(exports Exports, filePath string) (OnBeforeRouteFunc, error) {
	v, ok := exports[ExportOnBeforeRoute]
	if !ok {
		return nil, nil
	}
	switch f := v.(type) {
	case OnBeforeRouteFunc:
		if f != nil {
			return f, nil
		}
	case func(context.Context, *PageContext) (*RouteOverride, error):
		if f != nil {
			return f, nil
		}
	}
	return nil, wrongExport(filePath, ExportOnBeforeRoute, "func(context.Context, *hxpage.PageContext) (*hxpage.RouteOverride, error)", v)
}

func castPassToClient(exports Exports, filePath string) ([]string, bool, error) {
	v, ok := exports[ExportPassToClient]
	if !ok {
		return nil, false, nil
	}
	keys, isStrings := v.([]string)
	if !isStrings {
		return nil, false, usageErrorf("the `%s` export defined in %s should be an array of strings ([]string), got %T", ExportPassToClient, filePath, v)
	}
	return keys, true, nil
}

func castDoNotPrerender(exports Exports, filePath string) (bool, error) {
	v, ok := exports[ExportDoNotPrerender]
	if !ok {
		return false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, usageErrorf("the `%s` export defined in %s should be a bool, got %T", ExportDoNotPrerender, filePath, v)
	}
	return b, nil
}

// castRoute returns either a route string or a route function.
func castRoute(exports Exports, filePath string) (string, RouteFunc, error) {
	v, ok := exports[ExportRoute]
	if !ok {
		return "", nil, usageErrorf("%s should export `%s`", filePath, ExportRoute)
	}
	switch r := v.(type) {
	case string:
		if r == "" || r[0] != '/' && r != "*" {
			return "", nil, usageErrorf("the route string %q defined in %s should start with `/`", r, filePath)
		}
		return r, nil, nil
	case RouteFunc:
		if r != nil {
			return "", r, nil
		}
	case func(context.Context, *PageContext) (RouteMatch, error):
		if r != nil {
			return "", r, nil
		}
	}
	return "", nil, usageErrorf("the `%s` export defined in %s should be a string or a %s, got %s",
		ExportRoute, filePath, "func(context.Context, *hxpage.PageContext) (hxpage.RouteMatch, error)", fmt.Sprintf("%T", v))
}
