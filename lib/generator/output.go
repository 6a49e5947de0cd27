package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path"
	"path/filepath"
	"text/template"
)

// manifestPackage is what the template needs to import a page package.
type manifestPackage struct {
	Alias      string
	ImportPath string
}

type manifestFile struct {
	FilePath  string
	Qualifier string // "p0." or "" for the output package itself
	Exports   []ExportInfo
}

// writeManifest renders the manifest and writes it to the output file.
func (g *Generator) writeManifest(modulePath string, files []*PageFileInfo) error {
	outputFile := filepath.Join(g.opts.Root, g.opts.Output)
	fmt.Fprintf(g.opts.Log, "generating %s (%d page files)\n", outputFile, len(files))

	if g.opts.DryRun {
		for _, f := range files {
			fmt.Fprintf(g.opts.Log, "  %s\n", f.FilePath)
		}
		return nil
	}

	code, err := g.renderManifest(modulePath, files)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	// Format the code
	formatted, err := format.Source(code)
	if err != nil {
		// Write unformatted for debugging
		if writeErr := os.WriteFile(outputFile+".unformatted", code, 0644); writeErr == nil {
			fmt.Fprintf(g.opts.Log, "  wrote unformatted code to %s.unformatted for debugging\n", outputFile)
		}
		return fmt.Errorf("format source: %w", err)
	}

	return os.WriteFile(outputFile, formatted, 0644)
}

// renderManifest renders the generated code template.
func (g *Generator) renderManifest(modulePath string, files []*PageFileInfo) ([]byte, error) {
	outDir := path.Dir(filepath.ToSlash(filepath.Clean(g.opts.Output)))
	outPackage := path.Base(outDir)
	if outDir == "." {
		outPackage = "main"
	}

	aliases := map[string]string{}
	var packages []manifestPackage
	var entries []manifestFile
	for _, f := range files {
		entry := manifestFile{FilePath: f.FilePath, Exports: f.Exports}
		switch {
		case len(f.Exports) == 0:
		case f.Dir == outDir:
			outPackage = f.Package
		default:
			alias, ok := aliases[f.ImportPath]
			if !ok {
				alias = fmt.Sprintf("p%d", len(aliases))
				aliases[f.ImportPath] = alias
				packages = append(packages, manifestPackage{Alias: alias, ImportPath: f.ImportPath})
			}
			entry.Qualifier = alias + "."
		}
		entries = append(entries, entry)
	}

	tmpl, err := template.New("manifest").Parse(manifestTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Package  string
		PagesDir string
		Imports  []manifestPackage
		Files    []manifestFile
	}{
		Package:  outPackage,
		PagesDir: filepath.ToSlash(g.opts.PagesDir),
		Imports:  packages,
		Files:    entries,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const manifestTemplate = `// Code generated by hxpage generate. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/pthm/hxpage"
{{range .Imports}}
	{{.Alias}} "{{.ImportPath}}"
{{- end}}
)

// Manifest lists the page files of {{.PagesDir}}.
func Manifest() hxpage.StaticManifest {
	return hxpage.StaticManifest{
	{{- range .Files}}
		{FilePath: "{{.FilePath}}"{{if .Exports}}, Exports: hxpage.Exports{
		{{- $q := .Qualifier}}
		{{- range .Exports}}
			"{{.Name}}": {{$q}}{{.Ident}},
		{{- end}}
		}{{end}}},
	{{- end}}
	}
}
`
