package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pthm/hxpage"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(load func(*cobra.Command) (*env, error)) *cobra.Command {
	var (
		addr   string
		static bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pages over HTTP",
		Long: `Render pages on each request. With --static, serve the artifacts of a
previous prerender run instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if addr == "" {
				addr = e.cfg.Addr
			}

			var pages http.Handler = e.renderer.Handler()
			if static {
				store, err := e.store()
				if err != nil {
					return err
				}
				site, err := loadStaticSite(cmd.Context(), store, e.encoder(), e.logger)
				if err != nil {
					return err
				}
				pages = site
			}

			return run(cmd.Context(), e, addr, newRouter(e, pages))
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&static, "static", false, "serve prerendered artifacts")
	return cmd
}

// newRouter mounts pages behind the request middlewares. The chi request id
// becomes the render's request id.
func newRouter(e *env, pages http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := middleware.GetReqID(req.Context()); id != "" {
				req = req.WithContext(hxpage.ContextWithRequestID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", hxpage.ContentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	if e.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, e.cfg.Metrics.Path, promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	}
	r.Handle("/*", pages)
	return r
}

// run serves handler until ctx is done or the process gets SIGINT or
// SIGTERM.
func run(ctx context.Context, e *env, addr string, handler http.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("server starting", "address", ln.Addr().String(), "production", e.cfg.Production)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	e.logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
