package hxpage

import (
	"net/url"
	"strings"
)

// PageContextRequestSuffix marks a page-context request: the client router
// asks for the serialized page context instead of the HTML document.
const PageContextRequestSuffix = "/index.pageContext.json"

// URLParsed holds the components of the request URL. Pathname is relative
// to the renderer's base URL.
type URLParsed struct {
	Origin           string
	Pathname         string
	PathnameOriginal string
	Search           map[string]string
	SearchAll        map[string][]string
	SearchString     string
	Hash             string
	HashString       string
}

func assertBaseURL(baseURL string) error {
	if !strings.HasPrefix(baseURL, "/") {
		return &ConfigError{Field: "base_url", Msg: "should start with `/`, got " + quote(baseURL)}
	}
	if strings.ContainsAny(baseURL, "?#") {
		return &ConfigError{Field: "base_url", Msg: "should be a pathname without query or hash, got " + quote(baseURL)}
	}
	return nil
}

func normalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return "/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL
}

// splitURL splits a request URL into origin, pathname and the remainder
// (query and hash).
func splitURL(raw string) (origin, pathname, rest string) {
	if strings.HasPrefix(raw, "http") {
		if i := strings.Index(raw, "://"); i >= 0 {
			afterScheme := raw[i+3:]
			j := strings.IndexAny(afterScheme, "/?#")
			if j < 0 {
				return raw, "/", ""
			}
			origin = raw[:i+3+j]
			raw = afterScheme[j:]
		}
	}
	k := strings.IndexAny(raw, "?#")
	if k < 0 {
		pathname = raw
	} else {
		pathname, rest = raw[:k], raw[k:]
	}
	if pathname == "" {
		pathname = "/"
	}
	return origin, pathname, rest
}

// handlePageContextRequestSuffix strips the page-context suffix from the
// URL pathname.
func handlePageContextRequestSuffix(raw string) (string, bool) {
	origin, pathname, rest := splitURL(raw)
	if !strings.HasSuffix(pathname, PageContextRequestSuffix) {
		return raw, false
	}
	pathname = strings.TrimSuffix(pathname, PageContextRequestSuffix)
	if pathname == "" {
		pathname = "/"
	}
	return origin + pathname + rest, true
}

func parseURL(raw, baseURL string) (URLParsed, bool) {
	origin, pathnameOriginal, rest := splitURL(raw)
	parsed := URLParsed{
		Origin:           origin,
		PathnameOriginal: pathnameOriginal,
		Search:           map[string]string{},
		SearchAll:        map[string][]string{},
	}

	query, hash, _ := strings.Cut(rest, "#")
	if strings.HasPrefix(rest, "#") {
		query, hash = "", rest[1:]
	}
	if query != "" {
		parsed.SearchString = query
		values, _ := url.ParseQuery(strings.TrimPrefix(query, "?"))
		for key, all := range values {
			parsed.SearchAll[key] = all
			parsed.Search[key] = all[len(all)-1]
		}
	}
	if hash != "" || strings.Contains(rest, "#") {
		parsed.HashString = "#" + hash
		if decoded, err := url.PathUnescape(hash); err == nil {
			parsed.Hash = decoded
		} else {
			parsed.Hash = hash
		}
	}

	pathname := pathnameOriginal
	if decoded, err := url.PathUnescape(pathname); err == nil {
		pathname = decoded
	}
	baseURL = normalizeBaseURL(baseURL)
	if baseURL == "/" {
		parsed.Pathname = pathname
		return parsed, true
	}
	baseNoSlash := strings.TrimSuffix(baseURL, "/")
	switch {
	case pathname == baseNoSlash:
		parsed.Pathname = "/"
	case strings.HasPrefix(pathname, baseURL):
		parsed.Pathname = "/" + strings.TrimPrefix(pathname, baseURL)
	default:
		parsed.Pathname = pathname
		return parsed, false
	}
	return parsed, true
}

// isFileRequest reports whether the last path segment looks like a file
// name ("/logo.svg").
func isFileRequest(pathname string) bool {
	last := pathname[strings.LastIndex(pathname, "/")+1:]
	dot := strings.LastIndex(last, ".")
	if dot <= 0 || dot == len(last)-1 {
		return false
	}
	for _, c := range last[dot+1:] {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func quote(s string) string {
	return "`" + s + "`"
}
