package hxpage

import (
	"context"
	"path"
	"sort"
	"strings"
)

// FileType classifies a page file by its suffix.
type FileType string

const (
	// FileTypePage is an isomorphic file (foo.page.go): Page, onBeforeRender.
	FileTypePage FileType = ".page"
	// FileTypeServer is a server-only file (foo.page.server.go): render,
	// onBeforeRender, passToClient, prerender, doNotPrerender,
	// onBeforePrerender.
	FileTypeServer FileType = ".page.server"
	// FileTypeClient is the client entry of a page. The renderer only
	// records its path.
	FileTypeClient FileType = ".page.client"
	// FileTypeRoute holds a route string or route function, or the
	// onBeforeRoute hook when it is a default file.
	FileTypeRoute FileType = ".page.route"
)

var fileTypes = []FileType{FileTypePage, FileTypeServer, FileTypeClient, FileTypeRoute}

const (
	defaultFileBase = "_default"
	errorPageBase   = "_error"
)

// Exports maps export names to values, as declared by a page file.
type Exports map[string]any

// PageFile is one entry of the manifest.
//
// FilePath is a slash separated path rooted at the project, for example
// "/pages/product/index.page.server". A trailing language extension
// (".go") is ignored. Files whose base name is "_default" apply to every page
// inside their directory; the page whose base name is "_error" is the error
// page.
type PageFile struct {
	FilePath string

	// Exports are used when Load is nil.
	Exports Exports

	// Load lazily loads the exports.
	Load func(ctx context.Context) (Exports, error)
}

func (f PageFile) load(ctx context.Context) (Exports, error) {
	if f.Load == nil {
		if f.Exports == nil {
			return Exports{}, nil
		}
		return f.Exports, nil
	}
	exports, err := f.Load(ctx)
	if err != nil {
		return nil, err
	}
	if exports == nil {
		exports = Exports{}
	}
	return exports, nil
}

// AllPageFiles groups the manifest by file type.
type AllPageFiles map[FileType][]PageFile

// parsePageFilePath splits "/pages/about/index.page.server.go" into the
// page id "/pages/about/index" and FileTypeServer.
func parsePageFilePath(filePath string) (pageID string, fileType FileType, ok bool) {
	dir, base := path.Split(filePath)
	idx := strings.Index(base, ".page")
	if idx <= 0 {
		return "", "", false
	}
	rest := base[idx:]
	for _, ext := range []string{".go", ".templ"} {
		rest = strings.TrimSuffix(rest, ext)
	}
	switch FileType(rest) {
	case FileTypePage, FileTypeServer, FileTypeClient, FileTypeRoute:
		return dir + base[:idx], FileType(rest), true
	default:
		return "", "", false
	}
}

func groupPageFiles(files []PageFile) (AllPageFiles, error) {
	all := AllPageFiles{}
	for _, t := range fileTypes {
		all[t] = nil
	}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if !strings.HasPrefix(f.FilePath, "/") {
			return nil, usageErrorf("page file path %q should start with `/`", f.FilePath)
		}
		if seen[f.FilePath] {
			return nil, usageErrorf("page file %s is listed twice in the manifest", f.FilePath)
		}
		seen[f.FilePath] = true
		_, t, ok := parsePageFilePath(f.FilePath)
		if !ok {
			return nil, usageErrorf("page file %s should end with .page, .page.server, .page.client or .page.route", f.FilePath)
		}
		all[t] = append(all[t], f)
	}
	for _, t := range fileTypes {
		sort.SliceStable(all[t], func(i, j int) bool {
			return all[t][i].FilePath < all[t][j].FilePath
		})
	}
	return all, nil
}

func pageIDOf(filePath string) string {
	id, _, _ := parsePageFilePath(filePath)
	return id
}

func isDefaultFile(filePath string) bool {
	return path.Base(pageIDOf(filePath)) == defaultFileBase
}

func isErrorPage(pageID string) bool {
	return path.Base(pageID) == errorPageBase
}

// determinePageIDs lists every page id declared by a .page or .page.server
// file, sorted.
func determinePageIDs(all AllPageFiles) []string {
	set := map[string]bool{}
	for _, t := range []FileType{FileTypePage, FileTypeServer} {
		for _, f := range all[t] {
			if isDefaultFile(f.FilePath) {
				continue
			}
			set[pageIDOf(f.FilePath)] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func getErrorPageID(allPageIDs []string) (string, error) {
	var errorPageIDs []string
	for _, id := range allPageIDs {
		if isErrorPage(id) {
			errorPageIDs = append(errorPageIDs, id)
		}
	}
	if len(errorPageIDs) > 1 {
		return "", usageErrorf("only one _error page can be defined, found %s", stringifyStringArray(errorPageIDs))
	}
	if len(errorPageIDs) == 0 {
		return "", nil
	}
	return errorPageIDs[0], nil
}

func findPageFile(files []PageFile, pageID string) *PageFile {
	for i := range files {
		if !isDefaultFile(files[i].FilePath) && pageIDOf(files[i].FilePath) == pageID {
			return &files[i]
		}
	}
	return nil
}

func findDefaultFiles(files []PageFile) []PageFile {
	var defaults []PageFile
	for _, f := range files {
		if isDefaultFile(f.FilePath) {
			defaults = append(defaults, f)
		}
	}
	return defaults
}

// findDefaultFile returns the _default file closest to the page: the one in
// the deepest directory that encloses the page id.
func findDefaultFile(files []PageFile, pageID string) *PageFile {
	var best *PageFile
	bestDepth := -1
	for i := range files {
		if !isDefaultFile(files[i].FilePath) {
			continue
		}
		dir := path.Dir(pageIDOf(files[i].FilePath))
		if !isAncestorDir(dir, pageID) {
			continue
		}
		depth := strings.Count(strings.TrimSuffix(dir, "/"), "/")
		if depth > bestDepth {
			best = &files[i]
			bestDepth = depth
		}
	}
	return best
}

func isAncestorDir(dir, pageID string) bool {
	if dir == "/" {
		return true
	}
	return strings.HasPrefix(pageID, strings.TrimSuffix(dir, "/")+"/")
}
