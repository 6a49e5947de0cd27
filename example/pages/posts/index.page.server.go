package posts

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/pthm/hxpage"
	"github.com/pthm/hxpage/example/blog"
)

// OnBeforeRender loads the post of the route.
func OnBeforeRender(_ context.Context, pc *hxpage.PageContext) (map[string]any, error) {
	store := blog.Default()
	slug := pc.RouteParams()["slug"]
	post, ok := store.Get(slug)
	if !ok {
		return nil, fmt.Errorf("post %q not found", slug)
	}
	html, err := store.HTML(post)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"title": post.Title,
		"tags":  post.Tags,
		"body":  templ.Raw("<article>" + html + "</article>"),
	}, nil
}

// Prerender lists every post: the route function cannot be enumerated.
func Prerender(context.Context) ([]hxpage.PrerenderEntry, error) {
	var entries []hxpage.PrerenderEntry
	for _, p := range blog.Default().List() {
		entries = append(entries, hxpage.PrerenderEntry{URL: "/posts/" + p.Slug})
	}
	return entries, nil
}
