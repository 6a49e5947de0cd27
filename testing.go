package hxpage

import (
	"context"
	"net/http"
	"strings"

	"github.com/pthm/hxpage/lib/encoding"
)

// TestResult holds the result of rendering a page for testing.
//
// Provides convenience methods for asserting on HTML content, status codes
// and the page context.
type TestResult struct {
	HTML        string
	StatusCode  int
	ContentType string
	PageContext *PageContext

	// StreamErr is set when a streamed document failed midway.
	StreamErr error
}

// TestRender renders url and reads the whole response.
//
// Use this for tests of pages wired into a Renderer, typically built from a
// StaticManifest:
//
//	r := hxpage.New(hxpage.StaticManifest{...})
//	result, err := hxpage.TestRender(r, "/product/42")
//	if !result.HTMLContains("Product 42") {
//	    t.Fatal("missing expected content")
//	}
//
// A result without response has StatusCode 0.
func TestRender(r *Renderer, url string) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), r, PageContextInit{URL: url})
}

// TestRenderWithContext renders init with a custom context.
//
// Use this when testing pages that read values from the context or from
// PageContextInit.Values (user authentication, request-scoped data):
//
//	result, err := hxpage.TestRenderWithContext(ctx, r, hxpage.PageContextInit{
//	    URL:    "/account",
//	    Values: map[string]any{"user": testUser},
//	})
func TestRenderWithContext(ctx context.Context, r *Renderer, init PageContextInit) (*TestResult, error) {
	pc := r.RenderPage(ctx, init)
	result := &TestResult{PageContext: pc}
	res := pc.HTTPResponse()
	if res == nil {
		return result, nil
	}
	result.StatusCode = res.StatusCode
	result.ContentType = res.ContentType
	body, err := res.GetBody(ctx)
	result.HTML = body
	if err != nil {
		if !IsStreamingError(err) {
			return nil, err
		}
		result.StreamErr = err
	}
	return result, nil
}

// TestPageContext requests the serialized page context of url, the way a
// client router does, and decodes it. fields is nil when the response is
// not a page context envelope.
func TestPageContext(r *Renderer, url string) (fields map[string]any, result *TestResult, err error) {
	url = strings.TrimSuffix(url, "/") + PageContextRequestSuffix
	result, err = TestRender(r, url)
	if err != nil {
		return nil, nil, err
	}
	if result.HTML == "" {
		return nil, result, nil
	}
	fields, err = encoding.UnwrapPageContext([]byte(result.HTML))
	if err != nil {
		return nil, result, nil
	}
	return fields, result, nil
}

// HasResponse checks if the host should send a response.
func (r *TestResult) HasResponse() bool {
	return r.StatusCode != 0
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// IsNotFound checks if the error page was rendered as a 404.
func (r *TestResult) IsNotFound() bool {
	return r.StatusCode == http.StatusNotFound
}

// IsServerError checks if the error page was rendered as a 500.
func (r *TestResult) IsServerError() bool {
	return r.StatusCode == http.StatusInternalServerError
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}
