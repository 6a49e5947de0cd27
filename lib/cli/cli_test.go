package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxpage"
	"github.com/pthm/hxpage/lib/artifact"
	"github.com/pthm/hxpage/lib/config"
	"github.com/pthm/hxpage/lib/encoding"
	"github.com/pthm/hxpage/lib/logger"
)

func page(html string) hxpage.RenderFunc {
	return func(context.Context, *hxpage.PageContext) (any, error) {
		return templ.Raw(html), nil
	}
}

func testManifest() hxpage.StaticManifest {
	return hxpage.StaticManifest{
		{FilePath: "/pages/index.page.server.go", Exports: hxpage.Exports{hxpage.ExportRender: page("<h1>Home</h1>")}},
		{FilePath: "/pages/about/index.page.server.go", Exports: hxpage.Exports{
			hxpage.ExportRender:       page("<h1>About</h1>"),
			hxpage.ExportPassToClient: []string{"title"},
			hxpage.ExportOnBeforeRender: hxpage.OnBeforeRenderFunc(func(context.Context, *hxpage.PageContext) (map[string]any, error) {
				return map[string]any{"title": "About"}, nil
			}),
		}},
		{FilePath: "/pages/_error.page.server.go", Exports: hxpage.Exports{hxpage.ExportRender: page("<h1>Oops</h1>")}},
	}
}

func testEnv(t *testing.T, cfg *config.Config) *env {
	t.Helper()
	reg := prometheus.NewRegistry()
	log := logger.Discard()
	return &env{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		renderer: hxpage.New(testManifest(),
			hxpage.WithBaseURL(cfg.BaseURL),
			hxpage.WithClientRouting(cfg.ClientRouting),
			hxpage.WithLogger(log),
			hxpage.WithMetrics(reg),
		),
	}
}

func get(t *testing.T, h http.Handler, target string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestRouter_RendersPages(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Metrics.Enabled = true
	e := testEnv(t, cfg)
	h := newRouter(e, e.renderer.Handler())

	res, body := get(t, h, "/about")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<h1>About</h1>")

	res, body = get(t, h, "/missing")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Oops")

	res, body = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, body)

	res, body = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "hxpage_renders_total")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	t.Parallel()

	e := testEnv(t, config.Default())
	res, body := get(t, newRouter(e, e.renderer.Handler()), "/metrics")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Oops")
}

func TestStaticSite_ServesPrerenderedPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.Default()
	cfg.ClientRouting = true
	cfg.OutDir = t.TempDir()
	cfg.IndexKey = "secret"
	e := testEnv(t, cfg)

	store, err := e.store()
	require.NoError(t, err)
	idx, err := e.renderer.Prerender(ctx, hxpage.PrerenderOptions{Out: store, Encoder: e.encoder()})
	require.NoError(t, err)
	require.Len(t, idx.Pages, 2)

	site, err := loadStaticSite(ctx, store, e.encoder(), e.logger)
	require.NoError(t, err)

	res, body := get(t, site, "/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<h1>Home</h1>")

	res, body = get(t, site, "/about/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, hxpage.ContentTypeHTML, res.Header.Get("Content-Type"))
	assert.Contains(t, body, "<h1>About</h1>")

	res, body = get(t, site, "/about"+hxpage.PageContextRequestSuffix)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	fields, err := encoding.UnwrapPageContext([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "About", fields["title"])

	res, body = get(t, site, "/nope")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Oops")

	_, body = get(t, site, "/nope"+hxpage.PageContextRequestSuffix)
	assert.JSONEq(t, encoding.NotFoundEnvelope, body)
}

func TestStaticSite_RejectsForeignKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := artifact.NewDirStore(t.TempDir())
	e := testEnv(t, config.Default())
	_, err := e.renderer.Prerender(ctx, hxpage.PrerenderOptions{Out: store, Encoder: encoding.NewEncoder([]byte("one"))})
	require.NoError(t, err)

	_, err = loadStaticSite(ctx, store, encoding.NewEncoder([]byte("two")), e.logger)
	require.ErrorIs(t, err, encoding.ErrSignatureInvalid)
}

func TestStaticSite_StripBase(t *testing.T) {
	t.Parallel()

	s := &staticSite{idx: &encoding.Index{BaseURL: "/docs"}}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "/docs", want: "/", ok: true},
		{in: "/docs/", want: "/", ok: true},
		{in: "/docs/intro", want: "/intro", ok: true},
		{in: "/blog", ok: false},
		{in: "/docsx", ok: false},
	}
	for _, tt := range tests {
		got, ok := s.stripBase(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewCommand_Subcommands(t *testing.T) {
	t.Parallel()

	cmd := NewCommand("shop", testManifest())
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "prerender"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}
