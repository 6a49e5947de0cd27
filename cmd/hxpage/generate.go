package main

import (
	"github.com/spf13/cobra"

	"github.com/pthm/hxpage/lib/generator"
)

type generateFlags struct {
	root     string
	pagesDir string
	output   string
	dryRun   bool
}

func (f *generateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", ".", "module root (directory holding go.mod)")
	cmd.Flags().StringVarP(&f.pagesDir, "pages", "p", "pages", "pages directory, relative to the root")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "generated file (default <pages>/"+generator.DefaultOutputName+")")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "show what would be generated without writing files")
}

func (f *generateFlags) generator(cmd *cobra.Command) *generator.Generator {
	return generator.New(generator.Options{
		Root:     f.root,
		PagesDir: f.pagesDir,
		Output:   f.output,
		DryRun:   f.dryRun,
		Log:      cmd.OutOrStdout(),
	})
}

func generateCmd() *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the page manifest",
		Example: `  hxpage generate
  hxpage generate --pages internal/pages
  hxpage generate --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.generator(cmd).Generate()
		},
	}
	flags.register(cmd)
	return cmd
}

func cleanCmd() *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the generated page manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.generator(cmd).Clean()
		},
	}
	flags.register(cmd)
	return cmd
}
