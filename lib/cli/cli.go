// Package cli provides the serve and prerender commands of an hxpage
// application. Applications embed it in their main package:
//
//	func main() {
//	    cmd := cli.NewCommand("shop", pages.Manifest())
//	    if err := cmd.Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/pthm/hxpage"
	"github.com/pthm/hxpage/lib/artifact"
	"github.com/pthm/hxpage/lib/config"
	"github.com/pthm/hxpage/lib/encoding"
	"github.com/pthm/hxpage/lib/logger"
)

// NewCommand returns the root command of an application rendering the
// pages of manifest. opts are applied after the options derived from the
// configuration file.
func NewCommand(name string, manifest hxpage.Manifest, opts ...hxpage.Option) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           name,
		Short:         "Render and serve " + name + " pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default "+config.DefaultPath+")")

	load := func(cmd *cobra.Command) (*env, error) {
		return newEnv(configPath, manifest, opts)
	}
	root.AddCommand(serveCmd(load), prerenderCmd(load))
	return root
}

// env is what the commands share: configuration, logging, metrics and the
// renderer built from them.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	renderer *hxpage.Renderer
}

func newEnv(configPath string, manifest hxpage.Manifest, opts []hxpage.Option) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log := logger.NewWithSentry(
		logger.Options{Format: cfg.Log.Format, Level: level, Output: os.Stderr},
		logger.Sentry{DSN: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment},
		logger.FromContext("request_id", hxpage.RequestIDFromContext),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	all := append([]hxpage.Option{
		hxpage.WithBaseURL(cfg.BaseURL),
		hxpage.WithProduction(cfg.Production),
		hxpage.WithClientRouting(cfg.ClientRouting),
		hxpage.WithLogger(log),
		hxpage.WithMetrics(reg),
	}, opts...)

	return &env{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		renderer: hxpage.New(manifest, all...),
	}, nil
}

// store returns the artifact store of the configuration: S3 when a bucket
// is set, the output directory otherwise.
func (e *env) store() (artifact.Store, error) {
	if e.cfg.S3.Enabled() {
		s3 := e.cfg.S3
		return artifact.NewS3Store(artifact.S3Config{
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
			PathStyle: s3.PathStyle,
		})
	}
	return artifact.NewDirStore(e.cfg.OutDir), nil
}

func (e *env) encoder() *encoding.Encoder {
	if e.cfg.IndexKey == "" {
		return encoding.NewEncoder(nil)
	}
	return encoding.NewEncoder([]byte(e.cfg.IndexKey))
}

func (e *env) close() {
	if e.cfg.Sentry.DSN != "" {
		logger.Flush(2 * time.Second)
	}
}

func storeName(e *env) string {
	if e.cfg.S3.Enabled() {
		return fmt.Sprintf("s3://%s/%s", e.cfg.S3.Bucket, e.cfg.S3.Prefix)
	}
	return e.cfg.OutDir
}
