package hxpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/pthm/hxpage/lib/encoding"
)

// logBuffer collects JSON log records written concurrently.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// count returns the number of records logged with msg.
func (b *logBuffer) count(msg string) int {
	return strings.Count(b.String(), `"msg":"`+msg+`"`)
}

func newTestRenderer(t *testing.T, m StaticManifest, opts ...Option) (*Renderer, *logBuffer) {
	t.Helper()
	logs := &logBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(m, append([]Option{WithLogger(logger)}, opts...)...), logs
}

func nopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func textRender(fn func(pc *PageContext) string) RenderFunc {
	return func(ctx context.Context, pc *PageContext) (any, error) {
		return templ.Raw(fn(pc)), nil
	}
}

func staticRender(html string) RenderFunc {
	return textRender(func(*PageContext) string { return html })
}

func failingRender(err error) RenderFunc {
	return func(ctx context.Context, pc *PageContext) (any, error) {
		return nil, err
	}
}

var errorPageFile = PageFile{
	FilePath: "/pages/_error.page.server.go",
	Exports: Exports{
		ExportRender: textRender(func(pc *PageContext) string {
			if is404, _ := pc.Is404(); is404 {
				return "<h1>404</h1>"
			}
			return "<h1>500</h1>"
		}),
	},
}

func indexPage(render RenderFunc) PageFile {
	return PageFile{FilePath: "/pages/index.page.server.go", Exports: Exports{ExportRender: render}}
}

func body(t *testing.T, pc *PageContext) string {
	t.Helper()
	res := pc.HTTPResponse()
	if res == nil {
		t.Fatalf("no response (err: %v)", pc.Err())
	}
	b, err := res.GetBody(context.Background())
	if err != nil {
		t.Fatalf("GetBody() error = %v", err)
	}
	return b
}

func TestRenderPage_OK(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{indexPage(staticRender("<h1>home</h1>"))})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	res := pc.HTTPResponse()
	if res == nil {
		t.Fatalf("no response: %v", pc.Err())
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.ContentType != ContentTypeHTML {
		t.Errorf("ContentType = %q", res.ContentType)
	}
	if got := body(t, pc); got != "<h1>home</h1>" {
		t.Errorf("body = %q", got)
	}
	if pc.PageID() != "/pages/index" {
		t.Errorf("PageID() = %q", pc.PageID())
	}
	if pc.Err() != nil {
		t.Errorf("Err() = %v", pc.Err())
	}
	if _, ok := pc.Is404(); ok {
		t.Error("Is404() is set for a regular page")
	}
}

func TestRenderPage_Values(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{
		indexPage(textRender(func(pc *PageContext) string {
			return fmt.Sprintf("hello %v", pc.Value("user"))
		})),
	})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/", Values: map[string]any{"user": "ada"}})

	if got := body(t, pc); got != "hello ada" {
		t.Errorf("body = %q", got)
	}
	if v, ok := pc.Get("user"); !ok || v != "ada" {
		t.Errorf("Get(user) = %v, %v", v, ok)
	}
}

func TestRenderPage_InvalidInit(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{indexPage(staticRender("home")), errorPageFile})

	for _, init := range []PageContextInit{
		{URL: ""},
		{URL: "about"},
		{URL: "/", Values: map[string]any{"urlPathname": "/x"}},
	} {
		pc := r.RenderPage(context.Background(), init)
		if !IsUsageError(pc.Err()) {
			t.Errorf("RenderPage(%+v).Err() = %v, want a UsageError", init, pc.Err())
		}
		if pc.HTTPResponse() != nil {
			t.Errorf("RenderPage(%+v) has a response", init)
		}
	}
}

func TestRenderPage_OutsideBaseURL(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{indexPage(staticRender("home"))}, WithBaseURL("/app"))

	if pc := r.RenderPage(context.Background(), PageContextInit{URL: "/other"}); pc.HTTPResponse() != nil {
		t.Error("URL outside the base URL got a response")
	}
	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/app"})
	if got := body(t, pc); got != "home" {
		t.Errorf("body = %q", got)
	}
	if pc.URLPathname() != "/" {
		t.Errorf("URLPathname() = %q, want /", pc.URLPathname())
	}
}

func TestRenderPage_Favicon(t *testing.T) {
	r, logs := newTestRenderer(t, StaticManifest{indexPage(staticRender("home")), errorPageFile})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/favicon.ico"})

	if pc.HTTPResponse() != nil {
		t.Error("/favicon.ico got a response")
	}
	if strings.Contains(logs.String(), "is not matching") {
		t.Errorf("/favicon.ico logged a 404 warning:\n%s", logs)
	}
}

func TestRenderPage_NotFound(t *testing.T) {
	t.Run("with error page", func(t *testing.T) {
		r, logs := newTestRenderer(t, StaticManifest{indexPage(staticRender("home")), errorPageFile})

		pc := r.RenderPage(context.Background(), PageContextInit{URL: "/missing"})

		if got := body(t, pc); got != "<h1>404</h1>" {
			t.Errorf("body = %q", got)
		}
		if res := pc.HTTPResponse(); res.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", res.StatusCode)
		}
		if is404, ok := pc.Is404(); !is404 || !ok {
			t.Errorf("Is404() = %v, %v", is404, ok)
		}
		if pc.PageProps()["is404"] != true {
			t.Errorf("PageProps() = %v, want is404", pc.PageProps())
		}
		if pc.PageID() != "/pages/_error" {
			t.Errorf("PageID() = %q", pc.PageID())
		}
		if !strings.Contains(logs.String(), "is not matching any of your 1 page routes") {
			t.Errorf("missing 404 warning:\n%s", logs)
		}
	})

	t.Run("without error page", func(t *testing.T) {
		r, logs := newTestRenderer(t, StaticManifest{indexPage(staticRender("home"))})

		pc := r.RenderPage(context.Background(), PageContextInit{URL: "/missing"})

		if pc.HTTPResponse() != nil {
			t.Error("404 without error page got a response")
		}
		if pc.Err() != nil {
			t.Errorf("Err() = %v", pc.Err())
		}
		if n := logs.count("no error page found"); n != 1 {
			t.Errorf("missing error page warned %d times, want once:\n%s", n, logs)
		}
		if !strings.Contains(logs.String(), "is not matching") {
			t.Errorf("missing 404 warning:\n%s", logs)
		}
	})

	t.Run("file request without error page", func(t *testing.T) {
		r, logs := newTestRenderer(t, StaticManifest{indexPage(staticRender("home"))})

		r.RenderPage(context.Background(), PageContextInit{URL: "/logo.png"})

		if n := logs.count("no error page found"); n != 1 {
			t.Errorf("missing error page warned %d times, want once:\n%s", n, logs)
		}
		if strings.Contains(logs.String(), "is not matching") {
			t.Errorf("file request logged the route list:\n%s", logs)
		}
	})

	t.Run("production hides the warning", func(t *testing.T) {
		r, logs := newTestRenderer(t, StaticManifest{indexPage(staticRender("home"))}, WithProduction(true))

		r.RenderPage(context.Background(), PageContextInit{URL: "/missing"})

		if strings.Contains(logs.String(), "is not matching") {
			t.Errorf("404 warning logged in production:\n%s", logs)
		}
	})
}

func TestRenderPage_NotFoundPageContextRequest(t *testing.T) {
	t.Run("without error page", func(t *testing.T) {
		r, logs := newTestRenderer(t, StaticManifest{indexPage(staticRender("home"))})

		pc := r.RenderPage(context.Background(), PageContextInit{URL: "/missing/index.pageContext.json"})

		if strings.Contains(logs.String(), "is not matching") {
			t.Errorf("page context request logged the route list:\n%s", logs)
		}

		res := pc.HTTPResponse()
		if res == nil {
			t.Fatal("no response")
		}
		if res.StatusCode != http.StatusOK || res.ContentType != ContentTypeJSON {
			t.Errorf("response = %d %q", res.StatusCode, res.ContentType)
		}
		if got := body(t, pc); got != encoding.NotFoundEnvelope {
			t.Errorf("body = %q", got)
		}
	})

	t.Run("with error page", func(t *testing.T) {
		r, _ := newTestRenderer(t, StaticManifest{indexPage(staticRender("home")), errorPageFile})

		pc := r.RenderPage(context.Background(), PageContextInit{URL: "/missing/index.pageContext.json"})

		fields, err := encoding.UnwrapPageContext([]byte(body(t, pc)))
		if err != nil {
			t.Fatal(err)
		}
		if fields["is404"] != true || fields["_pageId"] != "/pages/_error" {
			t.Errorf("page context = %v", fields)
		}
		if pc.HTTPResponse().ContentType != ContentTypeJSON {
			t.Errorf("ContentType = %q", pc.HTTPResponse().ContentType)
		}
	})
}

func TestRenderPage_NoPages(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if !IsUsageError(pc.Err()) || !strings.Contains(pc.Err().Error(), "no page found") {
		t.Errorf("Err() = %v", pc.Err())
	}
	if pc.HTTPResponse() != nil {
		t.Error("got a response")
	}
}

func TestRenderPage_RenderError(t *testing.T) {
	boom := errors.New("boom")
	r, logs := newTestRenderer(t, StaticManifest{indexPage(failingRender(boom)), errorPageFile})
	var reported atomic.Int32
	r.OnError = func(ctx context.Context, err error) { reported.Add(1) }

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if got := body(t, pc); got != "<h1>500</h1>" {
		t.Errorf("body = %q", got)
	}
	if res := pc.HTTPResponse(); res.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", res.StatusCode)
	}
	if !errors.Is(pc.Err(), boom) || !IsHookError(pc.Err()) {
		t.Errorf("Err() = %v, want a HookError wrapping boom", pc.Err())
	}
	if is404, ok := pc.Is404(); is404 || !ok {
		t.Errorf("Is404() = %v, %v; want false, true", is404, ok)
	}
	if n := logs.count("render failed"); n != 1 {
		t.Errorf("error logged %d times, want once:\n%s", n, logs)
	}
	if n := reported.Load(); n != 1 {
		t.Errorf("OnError called %d times, want once", n)
	}
}

func TestRenderPage_OnErrorPanics(t *testing.T) {
	r, logs := newTestRenderer(t, StaticManifest{indexPage(failingRender(errors.New("boom"))), errorPageFile})
	r.OnError = func(ctx context.Context, err error) { panic("tracker down") }

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if got := body(t, pc); got != "<h1>500</h1>" {
		t.Errorf("body = %q", got)
	}
	if n := logs.count("OnError panicked"); n != 1 {
		t.Errorf("OnError panic logged %d times, want once:\n%s", n, logs)
	}
	if !strings.Contains(logs.String(), "tracker down") {
		t.Errorf("panic value not logged:\n%s", logs)
	}
}

func TestRenderPage_RenderPanic(t *testing.T) {
	r, logs := newTestRenderer(t, StaticManifest{
		indexPage(func(ctx context.Context, pc *PageContext) (any, error) { panic("kaboom") }),
		errorPageFile,
	})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if got := body(t, pc); got != "<h1>500</h1>" {
		t.Errorf("body = %q", got)
	}
	if pc.Err() == nil || !strings.Contains(pc.Err().Error(), "panic: kaboom") {
		t.Errorf("Err() = %v", pc.Err())
	}
	if n := logs.count("render failed"); n != 1 {
		t.Errorf("error logged %d times, want once", n)
	}
}

func TestRenderPage_ErrorPageFails(t *testing.T) {
	boom := errors.New("boom")
	r, logs := newTestRenderer(t, StaticManifest{
		indexPage(failingRender(boom)),
		{FilePath: "/pages/_error.page.server.go", Exports: Exports{ExportRender: failingRender(errors.New("error page broken"))}},
	})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if pc.HTTPResponse() != nil {
		t.Error("got a response although the error page failed")
	}
	if !errors.Is(pc.Err(), boom) {
		t.Errorf("Err() = %v, want the original error", pc.Err())
	}
	if n := logs.count("render failed"); n != 1 {
		t.Errorf("error logged %d times, want once", n)
	}
	if n := logs.count("the error page could not be rendered"); n != 1 {
		t.Errorf("error page failure warned %d times, want once:\n%s", n, logs)
	}
}

func TestRenderPage_ServerErrorPageContextRequest(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{
		{FilePath: "/pages/index.page.server.go", Exports: Exports{
			ExportOnBeforeRender: OnBeforeRenderFunc(func(ctx context.Context, pc *PageContext) (map[string]any, error) {
				return nil, errors.New("db down")
			}),
			ExportRender: staticRender("home"),
		}},
		errorPageFile,
	})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/index.pageContext.json"})

	res := pc.HTTPResponse()
	if res == nil {
		t.Fatal("no response")
	}
	if res.StatusCode != http.StatusInternalServerError || res.ContentType != ContentTypeJSON {
		t.Errorf("response = %d %q", res.StatusCode, res.ContentType)
	}
	if got := body(t, pc); got != encoding.ServerErrorEnvelope {
		t.Errorf("body = %q", got)
	}
}

func TestRenderPage_NoDocument(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{
		indexPage(func(ctx context.Context, pc *PageContext) (any, error) { return nil, nil }),
		errorPageFile,
	})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if pc.HTTPResponse() != nil {
		t.Error("render without document got a response")
	}
	if pc.Err() != nil {
		t.Errorf("Err() = %v", pc.Err())
	}
}

func TestRenderPage_PlainStringRejected(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{
		indexPage(func(ctx context.Context, pc *PageContext) (any, error) { return "<p>hi</p>", nil }),
		errorPageFile,
	})

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if !IsUsageError(pc.Err()) || !strings.Contains(pc.Err().Error(), "templ.Raw") {
		t.Errorf("Err() = %v", pc.Err())
	}
	if pc.HTTPResponse().StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", pc.HTTPResponse().StatusCode)
	}
}

func TestRenderPage_RenderResultPageContext(t *testing.T) {
	tests := []struct {
		name   string
		result any
	}{
		{"struct", RenderResult{
			DocumentHTML: templ.Raw("<html><body><p>x</p></body></html>"),
			PageContext:  map[string]any{"title": "Hello"},
		}},
		{"map", map[string]any{
			"documentHtml": templ.Raw("<html><body><p>x</p></body></html>"),
			"pageContext":  map[string]any{"title": "Hello"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRenderer(t, StaticManifest{
				{FilePath: "/pages/index.page.server.go", Exports: Exports{
					ExportPassToClient: []string{"title"},
					ExportRender: RenderFunc(func(ctx context.Context, pc *PageContext) (any, error) {
						return tt.result, nil
					}),
				}},
			}, WithClientRouting(true))

			pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

			want := `<html><body><p>x</p><script id="hxpage_pageContext" type="application/json">{"_pageId":"/pages/index","title":"Hello"}</script></body></html>`
			if got := body(t, pc); got != want {
				t.Errorf("body =\n%s\nwant\n%s", got, want)
			}
			if pc.Value("title") != "Hello" {
				t.Errorf("Value(title) = %v", pc.Value("title"))
			}
		})
	}
}

func TestRenderPage_PassToClientNotSerializable(t *testing.T) {
	r, _ := newTestRenderer(t, StaticManifest{
		{FilePath: "/pages/index.page.server.go", Exports: Exports{
			ExportPassToClient: []string{"updates"},
			ExportOnBeforeRender: OnBeforeRenderFunc(func(ctx context.Context, pc *PageContext) (map[string]any, error) {
				return map[string]any{"updates": make(chan int)}, nil
			}),
			ExportRender: staticRender("<p>x</p>"),
		}},
	}, WithClientRouting(true))

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

	if !IsUsageError(pc.Err()) || !strings.Contains(pc.Err().Error(), "pageContext.updates cannot be serialized") {
		t.Errorf("Err() = %v", pc.Err())
	}
}

func TestRenderPage_ReservedKeys(t *testing.T) {
	for _, key := range []string{"url", "routeParams", "_secret"} {
		t.Run(key, func(t *testing.T) {
			r, _ := newTestRenderer(t, StaticManifest{
				{FilePath: "/pages/index.page.server.go", Exports: Exports{
					ExportOnBeforeRender: OnBeforeRenderFunc(func(ctx context.Context, pc *PageContext) (map[string]any, error) {
						return map[string]any{key: "x"}, nil
					}),
					ExportRender: staticRender("home"),
				}},
			})

			pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})

			if !IsUsageError(pc.Err()) || !strings.Contains(pc.Err().Error(), "reserved") {
				t.Errorf("Err() = %v", pc.Err())
			}
		})
	}
}

func TestRenderPage_RequestID(t *testing.T) {
	var seen string
	r, logs := newTestRenderer(t, StaticManifest{
		indexPage(textRender(func(pc *PageContext) string { return "home" })),
		{FilePath: "/pages/about/index.page.server.go", Exports: Exports{
			ExportRender: RenderFunc(func(ctx context.Context, pc *PageContext) (any, error) {
				seen, _ = RequestIDFromContext(ctx)
				return nil, errors.New("boom")
			}),
		}},
	})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	if pc := r.RenderPage(ctx, PageContextInit{URL: "/about"}); pc.RequestID() != "req-1" {
		t.Errorf("RequestID() = %q, want req-1", pc.RequestID())
	}
	if seen != "req-1" {
		t.Errorf("hook saw request id %q", seen)
	}
	if !strings.Contains(logs.String(), `"request_id":"req-1"`) {
		t.Errorf("log lacks the request id:\n%s", logs)
	}

	pc := r.RenderPage(context.Background(), PageContextInit{URL: "/"})
	if _, err := uuid.Parse(pc.RequestID()); err != nil {
		t.Errorf("generated RequestID() = %q: %v", pc.RequestID(), err)
	}
}
