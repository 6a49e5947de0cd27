package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxpage"
	"github.com/pthm/hxpage/example/blog"
)

// IndexOnBeforeRender lists the posts.
func IndexOnBeforeRender(context.Context, *hxpage.PageContext) (map[string]any, error) {
	list := blog.Default().List()
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := Text("h1", "Posts").Render(ctx, w); err != nil {
			return err
		}
		for _, p := range list {
			_, err := io.WriteString(w, `<article><h2><a href="/posts/`+templ.EscapeString(p.Slug)+`">`+
				templ.EscapeString(p.Title)+`</a></h2><p>`+templ.EscapeString(p.Summary)+`</p></article>`)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return map[string]any{"title": "Posts", "body": body}, nil
}
