package hxpage

import (
	"context"
	"fmt"
	"maps"

	"golang.org/x/sync/errgroup"
)

type layer int

const (
	layerIsomorphic layer = iota
	layerServer
	numLayers
)

func (l layer) String() string {
	if l == layerServer {
		return "server"
	}
	return "isomorphic"
}

type specificity int

const (
	specPage specificity = iota
	specDefault
	numSpecificities
)

// hookFile is a loaded page file. Its identity is filePath.
type hookFile struct {
	filePath        string
	exports         Exports
	onBeforeRender  OnBeforeRenderFunc
	render          RenderFunc
	prerender       PrerenderFunc
	passToClient    []string
	hasPassToClient bool
	doNotPrerender  bool
}

// pageFiles holds the hook files of one page, indexed by layer and
// specificity. A missing file is nil.
type pageFiles struct {
	table          [numLayers][numSpecificities]*hookFile
	page           any
	pageExports    Exports
	clientFilePath string
	passToClient   []string
}

func (f *pageFiles) get(l layer, s specificity) *hookFile {
	return f.table[l][s]
}

// hookFor returns the file defining hook in layer l, the page file winning
// over the default file.
func (f *pageFiles) hookFor(l layer, has func(*hookFile) bool) *hookFile {
	for s := specPage; s < numSpecificities; s++ {
		if hf := f.table[l][s]; hf != nil && has(hf) {
			return hf
		}
	}
	return nil
}

// candidates lists the files of layer l defining a hook.
func (f *pageFiles) candidates(l layer, has func(*hookFile) bool) []string {
	var paths []string
	for s := specPage; s < numSpecificities; s++ {
		if hf := f.table[l][s]; hf != nil && has(hf) {
			paths = append(paths, hf.filePath)
		}
	}
	return paths
}

func hasOnBeforeRender(hf *hookFile) bool { return hf.onBeforeRender != nil }
func hasRender(hf *hookFile) bool         { return hf.render != nil }

// loadPageFiles resolves and loads the files of pageID.
func loadPageFiles(ctx context.Context, all AllPageFiles, pageID string) (*pageFiles, error) {
	type slot struct {
		l    layer
		s    specificity
		file *PageFile
	}
	var slots []slot
	add := func(l layer, s specificity, f *PageFile) {
		if f != nil {
			slots = append(slots, slot{l, s, f})
		}
	}
	add(layerIsomorphic, specPage, findPageFile(all[FileTypePage], pageID))
	add(layerIsomorphic, specDefault, findDefaultFile(all[FileTypePage], pageID))
	add(layerServer, specPage, findPageFile(all[FileTypeServer], pageID))
	add(layerServer, specDefault, findDefaultFile(all[FileTypeServer], pageID))

	files := &pageFiles{}
	hasServerFile := false
	for _, sl := range slots {
		if sl.l == layerServer {
			hasServerFile = true
		}
	}
	if !hasServerFile {
		return nil, &UsageError{
			Msg: fmt.Sprintf("no .page.server file found for page %s; create %s.page.server.go or a _default.page.server.go", quote(pageID), pageID),
			Err: ErrNoServerFile,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sl := range slots {
		g.Go(func() error {
			exports, err := sl.file.load(gctx)
			if err != nil {
				return fmt.Errorf("load %s: %w", sl.file.FilePath, err)
			}
			hf, err := newHookFile(sl.file.FilePath, sl.l, sl.s, exports)
			if err != nil {
				return err
			}
			files.table[sl.l][sl.s] = hf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files.pageExports = Exports{}
	for _, s := range []specificity{specDefault, specPage} {
		if hf := files.table[layerIsomorphic][s]; hf != nil {
			maps.Copy(files.pageExports, hf.exports)
		}
	}
	files.page = files.pageExports[ExportPage]
	if client := findPageFile(all[FileTypeClient], pageID); client != nil {
		files.clientFilePath = client.FilePath
	} else if client := findDefaultFile(all[FileTypeClient], pageID); client != nil {
		files.clientFilePath = client.FilePath
	}
	for _, s := range []specificity{specPage, specDefault} {
		if hf := files.table[layerServer][s]; hf != nil && hf.hasPassToClient {
			files.passToClient = hf.passToClient
			break
		}
	}
	return files, nil
}

// newHookFile validates the exports of a loaded page file.
func newHookFile(filePath string, l layer, s specificity, exports Exports) (*hookFile, error) {
	hf := &hookFile{filePath: filePath, exports: exports}
	var err error
	if hf.onBeforeRender, err = castOnBeforeRender(exports, filePath); err != nil {
		return nil, err
	}
	if l == layerIsomorphic {
		if renamed, ok := exports["addPageContext"]; ok && renamed != nil {
			return nil, usageErrorf("%s: rename the export `addPageContext` to `%s`", filePath, ExportOnBeforeRender)
		}
		return hf, nil
	}

	if err := assertExports(exports, filePath, serverExports); err != nil {
		return nil, err
	}
	if hf.render, err = castRender(exports, filePath); err != nil {
		return nil, err
	}
	if hf.prerender, err = castPrerender(exports, filePath); err != nil {
		return nil, err
	}
	if hf.passToClient, hf.hasPassToClient, err = castPassToClient(exports, filePath); err != nil {
		return nil, err
	}
	if hf.doNotPrerender, err = castDoNotPrerender(exports, filePath); err != nil {
		return nil, err
	}
	if _, ok := exports[ExportOnBeforePrerender]; ok && s != specDefault {
		return nil, usageErrorf("%s: `%s()` can only be exported by a _default.page.server file", filePath, ExportOnBeforePrerender)
	}
	return hf, nil
}
