package hxpage

import "strings"

// Route strings are pathnames where a segment starting with ":" captures
// one URL segment ("/product/:id") and a trailing "*" captures the rest of
// the URL ("/docs/*", stored under the "*" route param).

const globParam = "*"

func splitSegments(pathname string) []string {
	pathname = strings.Trim(pathname, "/")
	if pathname == "" {
		return nil
	}
	return strings.Split(pathname, "/")
}

// matchRouteString returns the route params when urlPathname matches
// routeString, and nil otherwise.
func matchRouteString(routeString, urlPathname string) map[string]string {
	pattern := splitSegments(routeString)
	segments := splitSegments(urlPathname)
	params := map[string]string{}

	for i, p := range pattern {
		if p == globParam && i == len(pattern)-1 {
			params[globParam] = strings.Join(segments[min(i, len(segments)):], "/")
			return params
		}
		if i >= len(segments) {
			return nil
		}
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if segments[i] == "" {
				return nil
			}
			params[name] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil
		}
	}
	if len(segments) != len(pattern) {
		return nil
	}
	return params
}

// isStaticRouteString reports whether routeString has no parameter.
func isStaticRouteString(routeString string) bool {
	for _, p := range splitSegments(routeString) {
		if p == globParam || strings.HasPrefix(p, ":") {
			return false
		}
	}
	return true
}

// routeStringWeight orders matching parametrized route strings: more static
// segments first, then more segments, and a glob last.
func routeStringWeight(routeString string) (static, total int, glob bool) {
	for _, p := range splitSegments(routeString) {
		switch {
		case p == globParam:
			glob = true
		case strings.HasPrefix(p, ":"):
			total++
		default:
			static++
			total++
		}
	}
	return static, total, glob
}
