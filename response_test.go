package hxpage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"github.com/a-h/templ"
)

func renderOne(t *testing.T, render RenderFunc, opts ...Option) (*PageContext, *logBuffer) {
	t.Helper()
	r, logs := newTestRenderer(t, StaticManifest{indexPage(render), errorPageFile}, opts...)
	return r.RenderPage(context.Background(), PageContextInit{URL: "/"}), logs
}

func returning(c templ.Component) RenderFunc {
	return func(ctx context.Context, pc *PageContext) (any, error) {
		return c, nil
	}
}

func writes(chunks ...string) templ.ComponentFunc {
	return func(ctx context.Context, w io.Writer) error {
		for _, c := range chunks {
			if _, err := io.WriteString(w, c); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestHTTPResponse_Buffered(t *testing.T) {
	pc, _ := renderOne(t, staticRender("<p>x</p>"))
	res := pc.HTTPResponse()

	if res.IsStream() {
		t.Error("IsStream() = true")
	}
	if b, err := res.Body(); err != nil || b != "<p>x</p>" {
		t.Errorf("Body() = %q, %v", b, err)
	}
	for range 2 {
		if b, err := res.GetBody(context.Background()); err != nil || b != "<p>x</p>" {
			t.Errorf("GetBody() = %q, %v", b, err)
		}
	}
	if _, err := res.GetReader(); !IsUsageError(err) || !strings.Contains(err.Error(), "use httpResponse.Body()") {
		t.Errorf("GetReader() error = %v", err)
	}
	if err := res.Pipe(context.Background(), io.Discard); !IsUsageError(err) {
		t.Errorf("Pipe() error = %v", err)
	}
}

func TestHTTPResponse_BufferedRenderError(t *testing.T) {
	failing := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return errors.New("template failed")
	})
	pc, _ := renderOne(t, returning(failing))

	if !IsHookError(pc.Err()) {
		t.Errorf("Err() = %v, want a HookError", pc.Err())
	}
	if got := body(t, pc); got != "<h1>500</h1>" {
		t.Errorf("body = %q", got)
	}
}

func TestHTTPResponse_Pipe(t *testing.T) {
	pc, _ := renderOne(t, returning(Stream(writes("<p>a</p>", "<p>b</p>"))))
	res := pc.HTTPResponse()

	if !res.IsStream() {
		t.Fatal("IsStream() = false")
	}
	if _, err := res.Body(); !IsUsageError(err) || !strings.Contains(err.Error(), "GetBody(ctx)") {
		t.Errorf("Body() error = %v", err)
	}
	if _, err := res.GetReader(); !IsUsageError(err) || !strings.Contains(err.Error(), "Pipe(ctx, w)") {
		t.Errorf("GetReader() error = %v", err)
	}

	var buf bytes.Buffer
	if err := res.Pipe(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<p>a</p><p>b</p>" {
		t.Errorf("piped %q", buf.String())
	}
	if err := res.Pipe(context.Background(), &buf); !errors.Is(err, ErrAlreadyConsumed) {
		t.Errorf("second Pipe() error = %v", err)
	}
	if _, err := res.GetBody(context.Background()); !errors.Is(err, ErrAlreadyConsumed) {
		t.Errorf("GetBody() after Pipe() error = %v", err)
	}
}

func TestHTTPResponse_GetBodyCachesStream(t *testing.T) {
	var renders atomic.Int32
	c := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		renders.Add(1)
		_, err := io.WriteString(w, "<p>streamed</p>")
		return err
	})
	pc, _ := renderOne(t, returning(Stream(c)))
	res := pc.HTTPResponse()

	for range 2 {
		if b, err := res.GetBody(context.Background()); err != nil || b != "<p>streamed</p>" {
			t.Errorf("GetBody() = %q, %v", b, err)
		}
	}
	rec := httptest.NewRecorder()
	if err := res.WriteHTTP(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if rec.Body.String() != "<p>streamed</p>" {
		t.Errorf("WriteHTTP() wrote %q", rec.Body.String())
	}
	if n := renders.Load(); n != 1 {
		t.Errorf("component rendered %d times, want once", n)
	}
}

func TestHTTPResponse_Reader(t *testing.T) {
	pc, _ := renderOne(t, returning(StreamReader(strings.NewReader("<p>from reader</p>"))))
	res := pc.HTTPResponse()

	if err := res.Pipe(context.Background(), io.Discard); !IsUsageError(err) || !strings.Contains(err.Error(), "GetReader()") {
		t.Errorf("Pipe() error = %v", err)
	}
	rd, err := res.GetReader()
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(rd)
	if err != nil || string(data) != "<p>from reader</p>" {
		t.Errorf("read %q, %v", data, err)
	}
	if _, err := res.GetReader(); !errors.Is(err, ErrAlreadyConsumed) {
		t.Errorf("second GetReader() error = %v", err)
	}
}

func TestHTTPResponse_StreamFailsMidway(t *testing.T) {
	lost := errors.New("lost connection")
	c := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<p>partial"); err != nil {
			return err
		}
		return lost
	})
	pc, logs := renderOne(t, returning(Stream(c)))
	res := pc.HTTPResponse()

	b, err := res.GetBody(context.Background())
	if b != "<p>partial" {
		t.Errorf("GetBody() = %q, want the bytes written so far", b)
	}
	if !IsStreamingError(err) || !errors.Is(err, lost) {
		t.Errorf("GetBody() error = %v, want a StreamingError", err)
	}
	if !pc.ErrWhileStreaming() || !IsStreamingError(pc.Err()) {
		t.Errorf("ErrWhileStreaming() = %v, Err() = %v", pc.ErrWhileStreaming(), pc.Err())
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if n := logs.count("render failed"); n != 1 {
		t.Errorf("stream error logged %d times, want once", n)
	}
}

func TestHTTPResponse_StreamFailsBeforeFirstByte(t *testing.T) {
	unavailable := errors.New("feed unavailable")
	pc, logs := renderOne(t, returning(Stream(templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return unavailable
	}))))
	res := pc.HTTPResponse()

	rec := httptest.NewRecorder()
	err := res.WriteHTTP(context.Background(), rec)

	if !IsStreamingError(err) || !errors.Is(err, unavailable) {
		t.Errorf("WriteHTTP() error = %v, want a StreamingError", err)
	}
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("response = %d %q, want an empty 200", rec.Code, rec.Body.String())
	}
	if !pc.ErrWhileStreaming() {
		t.Error("ErrWhileStreaming() = false")
	}
	if n := logs.count("render failed"); n != 1 {
		t.Errorf("stream error logged %d times, want once", n)
	}
}

func TestHTTPResponse_ReaderFailsMidway(t *testing.T) {
	disk := errors.New("disk failure")
	pc, logs := renderOne(t, returning(StreamReader(io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(disk)))))

	rd, err := pc.HTTPResponse().GetReader()
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(rd)
	if string(data) != "abc" || !IsStreamingError(err) || !errors.Is(err, disk) {
		t.Errorf("ReadAll() = %q, %v", data, err)
	}
	if !pc.ErrWhileStreaming() {
		t.Error("ErrWhileStreaming() = false")
	}
	if n := logs.count("render failed"); n != 1 {
		t.Errorf("stream error logged %d times, want once", n)
	}
}

func TestHTTPResponse_WriteHTTP(t *testing.T) {
	tests := []struct {
		name    string
		render  RenderFunc
		flushed bool
	}{
		{"buffered", staticRender("<p>doc</p>"), false},
		{"pipe", returning(Stream(writes("<p>", "doc", "</p>"))), true},
		{"reader", returning(StreamReader(strings.NewReader("<p>doc</p>"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, _ := renderOne(t, tt.render)
			rec := httptest.NewRecorder()

			if err := pc.HTTPResponse().WriteHTTP(context.Background(), rec); err != nil {
				t.Fatal(err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != ContentTypeHTML {
				t.Errorf("Content-Type = %q", ct)
			}
			if rec.Body.String() != "<p>doc</p>" {
				t.Errorf("body = %q", rec.Body.String())
			}
			if rec.Flushed != tt.flushed {
				t.Errorf("Flushed = %v, want %v", rec.Flushed, tt.flushed)
			}
		})
	}
}

func TestHTTPResponse_StreamsAreNotInjected(t *testing.T) {
	pc, _ := renderOne(t, returning(Stream(writes("<html><body></body></html>"))), WithClientRouting(true))

	if got := body(t, pc); strings.Contains(got, pageContextScriptID) {
		t.Errorf("stream got the page context injected: %q", got)
	}
}

func TestInjectPageContext(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		serialized string
		want       string
	}{
		{
			name:       "before body end",
			html:       "<html><body><p>x</p></body></html>",
			serialized: `{"a":1}`,
			want:       `<html><body><p>x</p><script id="hxpage_pageContext" type="application/json">{"a":1}</script></body></html>`,
		},
		{
			name:       "fragment",
			html:       "<p>x</p>",
			serialized: `{"a":1}`,
			want:       `<p>x</p><script id="hxpage_pageContext" type="application/json">{"a":1}</script>`,
		},
		{
			name:       "script end in value",
			html:       "<p>x</p>",
			serialized: `{"a":"</script>"}`,
			want:       `<p>x</p><script id="hxpage_pageContext" type="application/json">{"a":"<\/script>"}</script>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := injectPageContext(tt.html, tt.serialized); got != tt.want {
				t.Errorf("injectPageContext() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}
