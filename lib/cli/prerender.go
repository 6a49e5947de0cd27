package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm/hxpage"
)

func prerenderCmd(load func(*cobra.Command) (*env, error)) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "prerender",
		Short: "Render every static page to the artifact store",
		Long: `Render every page without route parameters, plus the URLs returned by
prerender hooks, to the output directory or the configured S3 bucket.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.store()
			if err != nil {
				return err
			}

			start := time.Now()
			idx, err := e.renderer.Prerender(cmd.Context(), hxpage.PrerenderOptions{
				Out:         store,
				Encoder:     e.encoder(),
				Concurrency: concurrency,
			})
			if err != nil {
				e.logger.ErrorContext(cmd.Context(), "prerender failed", "error", err)
				return err
			}
			cmd.Printf("Prerendered %d pages to %s in %s\n", len(idx.Pages), storeName(e), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 10, "pages rendered at once")
	return cmd
}
