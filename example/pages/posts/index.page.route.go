package posts

import (
	"context"
	"strings"

	"github.com/pthm/hxpage"
	"github.com/pthm/hxpage/example/blog"
)

// Route matches /posts/<slug> for existing posts only, so unknown slugs
// get the 404 page.
func Route(_ context.Context, pc *hxpage.PageContext) (hxpage.RouteMatch, error) {
	slug, ok := strings.CutPrefix(pc.URLPathname(), "/posts/")
	if !ok || slug == "" || strings.Contains(slug, "/") {
		return hxpage.RouteMatch{}, nil
	}
	if _, exists := blog.Default().Get(slug); !exists {
		return hxpage.RouteMatch{}, nil
	}
	return hxpage.RouteMatch{Match: true, RouteParams: map[string]string{"slug": slug}}, nil
}
