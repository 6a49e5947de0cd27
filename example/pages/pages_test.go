package pages

import (
	"context"
	"testing"

	"github.com/pthm/hxpage"
)

func newRenderer() *hxpage.Renderer {
	return hxpage.New(Manifest(), hxpage.WithClientRouting(true))
}

func TestPages(t *testing.T) {
	r := newRenderer()

	tests := []struct {
		url    string
		status int
		want   []string
	}{
		{"/", 200, []string{"<title>Posts | Blog</title>", `href="/posts/hello-world"`, "Streaming documents"}},
		{"/posts/hello-world", 200, []string{"<title>Hello, world | Blog</title>", "<strong>hxpage</strong>"}},
		{"/about", 200, []string{"A small blog with 2 posts."}},
		{"/posts/missing", 404, []string{"This page could not be found."}},
		{"/nowhere", 404, []string{"This page could not be found."}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result, err := hxpage.TestRender(r, tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if !result.HasStatus(tt.status) {
				t.Errorf("status = %d, want %d", result.StatusCode, tt.status)
			}
			if !result.HTMLContainsAll(tt.want...) {
				t.Errorf("HTML missing %v:\n%s", tt.want, result.HTML)
			}
		})
	}
}

func TestPages_BoostedNavigationSkipsLayout(t *testing.T) {
	result, err := hxpage.TestRenderWithContext(context.Background(), newRenderer(), hxpage.PageContextInit{
		URL:    "/about",
		Values: map[string]any{hxpage.ValueIsBoosted: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.HTMLContains("<html>") {
		t.Errorf("boosted navigation rendered the layout:\n%s", result.HTML)
	}
	if !result.HTMLContains("<h1>About</h1>") {
		t.Errorf("boosted navigation missing the body:\n%s", result.HTML)
	}
}

func TestPages_PageContextRequest(t *testing.T) {
	fields, result, err := hxpage.TestPageContext(newRenderer(), "/about")
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsOK() {
		t.Fatalf("status = %d", result.StatusCode)
	}
	// Only the server hook runs: the isomorphic hook sets the title.
	if _, ok := fields["title"]; ok {
		t.Errorf("page context has a title: %v", fields)
	}
	if got, ok := fields["postCount"].(float64); !ok || got != 2 {
		t.Errorf("postCount = %v, want 2", fields["postCount"])
	}
}
