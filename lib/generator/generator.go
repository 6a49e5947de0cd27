package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/pthm/hxpage"
)

// DefaultOutputName is the file written into the pages directory.
const DefaultOutputName = "manifest_gen.go"

// Options configures the generator.
type Options struct {
	// Root is the module root, the directory holding go.mod. Defaults to ".".
	Root string
	// PagesDir is the directory scanned for page files, relative to Root.
	// Defaults to "pages".
	PagesDir string
	// Output is the generated file, relative to Root. Defaults to
	// <PagesDir>/manifest_gen.go.
	Output string
	DryRun bool
	// Log receives progress messages. Defaults to os.Stdout.
	Log io.Writer
}

// Generator generates the page manifest of an hxpage application.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.PagesDir == "" {
		opts.PagesDir = "pages"
	}
	opts.PagesDir = filepath.Clean(opts.PagesDir)
	if opts.Output == "" {
		opts.Output = filepath.Join(opts.PagesDir, DefaultOutputName)
	}
	if opts.Log == nil {
		opts.Log = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// PageFileInfo is one page file found by the generator.
type PageFileInfo struct {
	// FilePath is the manifest path, rooted at the module:
	// "/pages/product/_default.page.server.go".
	FilePath   string
	SourceFile string
	Dir        string // package directory, relative to the module root
	ImportPath string
	Package    string
	Exports    []ExportInfo
}

// ExportInfo maps a Go identifier to a page export.
type ExportInfo struct {
	Name  string // export name, e.g. "onBeforeRender"
	Ident string // Go identifier, e.g. "DefaultOnBeforeRender"
}

// Generate scans the pages directory and writes the manifest.
func (g *Generator) Generate() error {
	modulePath, err := g.modulePath()
	if err != nil {
		return err
	}
	files, err := g.findPageFiles(modulePath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no page files found in %s", filepath.Join(g.opts.Root, g.opts.PagesDir))
	}
	return g.writeManifest(modulePath, files)
}

// Clean removes the generated manifest.
func (g *Generator) Clean() error {
	out := filepath.Join(g.opts.Root, g.opts.Output)
	fmt.Fprintf(g.opts.Log, "removing %s\n", out)
	if g.opts.DryRun {
		return nil
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (g *Generator) modulePath() (string, error) {
	data, err := os.ReadFile(filepath.Join(g.opts.Root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	mod := modfile.ModulePath(data)
	if mod == "" {
		return "", fmt.Errorf("go.mod in %s has no module directive", g.opts.Root)
	}
	return mod, nil
}

// findPageFiles walks the pages directory and parses every page file.
func (g *Generator) findPageFiles(modulePath string) ([]*PageFileInfo, error) {
	var files []*PageFileInfo
	root := filepath.Join(g.opts.Root, g.opts.PagesDir)

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories and vendor
			base := d.Name()
			if p != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		fileType, ok := pageFileType(d.Name())
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(g.opts.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		dir := path.Dir(rel)

		info := &PageFileInfo{
			FilePath:   "/" + path.Join(dir, manifestBase(d.Name())),
			SourceFile: rel,
			Dir:        dir,
			ImportPath: path.Join(modulePath, dir),
		}
		if err := g.parsePageFile(p, fileType, info); err != nil {
			return err
		}
		files = append(files, info)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].FilePath < files[j].FilePath })
	return files, nil
}

// pageFileType returns the type of a page file name, such as
// "index.page.server.go".
func pageFileType(name string) (hxpage.FileType, bool) {
	if strings.HasSuffix(name, "_test.go") || !strings.HasSuffix(name, ".go") {
		return "", false
	}
	stem := strings.TrimSuffix(name, ".go")
	for _, ft := range []hxpage.FileType{hxpage.FileTypeServer, hxpage.FileTypeClient, hxpage.FileTypeRoute, hxpage.FileTypePage} {
		if base, ok := strings.CutSuffix(stem, string(ft)); ok && base != "" {
			return ft, true
		}
	}
	return "", false
}

// manifestBase maps a Go file name to its manifest name. The Go toolchain
// ignores files starting with "_", so default and error files drop the
// underscore on disk: default.page.server.go is _default.page.server.go.
func manifestBase(name string) string {
	for _, special := range []string{"default", "error"} {
		if strings.HasPrefix(name, special+".page") {
			return "_" + name
		}
	}
	return name
}

// exportSuffixes lists the identifier suffixes recognised as exports,
// longest first so that OnBeforeRender wins over Render.
var exportSuffixes = []struct {
	suffix string
	export string
}{
	{"OnBeforePrerender", hxpage.ExportOnBeforePrerender},
	{"OnBeforeRender", hxpage.ExportOnBeforeRender},
	{"DoNotPrerender", hxpage.ExportDoNotPrerender},
	{"OnBeforeRoute", hxpage.ExportOnBeforeRoute},
	{"PassToClient", hxpage.ExportPassToClient},
	{"Prerender", hxpage.ExportPrerender},
	{"Render", hxpage.ExportRender},
	{"Route", hxpage.ExportRoute},
	{"Page", hxpage.ExportPage},
}

var allowedExports = map[hxpage.FileType][]string{
	hxpage.FileTypePage: {hxpage.ExportPage, hxpage.ExportOnBeforeRender},
	hxpage.FileTypeServer: {
		hxpage.ExportRender,
		hxpage.ExportOnBeforeRender,
		hxpage.ExportPassToClient,
		hxpage.ExportPrerender,
		hxpage.ExportDoNotPrerender,
		hxpage.ExportOnBeforePrerender,
	},
	hxpage.FileTypeRoute: {hxpage.ExportRoute, hxpage.ExportOnBeforeRoute},
}

// exportFor returns the export an identifier of a file of type ft stands
// for. Identifiers match by suffix, so DefaultRender and Render both
// export render.
func exportFor(ft hxpage.FileType, ident string) (string, bool) {
	for _, s := range exportSuffixes {
		if !strings.HasSuffix(ident, s.suffix) {
			continue
		}
		for _, allowed := range allowedExports[ft] {
			if allowed == s.export {
				return s.export, true
			}
		}
		return "", false
	}
	return "", false
}

// parsePageFile records the package name and the exports of one file.
func (g *Generator) parsePageFile(filename string, ft hxpage.FileType, info *PageFileInfo) error {
	file, err := parser.ParseFile(g.fset, filename, nil, parser.SkipObjectResolution)
	if err != nil {
		return err
	}
	info.Package = file.Name.Name

	seen := map[string]string{}
	add := func(ident *ast.Ident) error {
		if !ident.IsExported() {
			return nil
		}
		export, ok := exportFor(ft, ident.Name)
		if !ok {
			return nil
		}
		if prev, dup := seen[export]; dup {
			return fmt.Errorf("%s: both %s and %s export %s", info.SourceFile, prev, ident.Name, export)
		}
		seen[export] = ident.Name
		info.Exports = append(info.Exports, ExportInfo{Name: export, Ident: ident.Name})
		return nil
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue
			}
			if err := add(d.Name); err != nil {
				return err
			}
		case *ast.GenDecl:
			if d.Tok != token.VAR && d.Tok != token.CONST {
				continue
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, name := range vs.Names {
					if err := add(name); err != nil {
						return err
					}
				}
			}
		}
	}

	sort.Slice(info.Exports, func(i, j int) bool { return info.Exports[i].Name < info.Exports[j].Name })
	return nil
}
