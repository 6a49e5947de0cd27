package about

import (
	"context"

	"github.com/a-h/templ"

	"github.com/pthm/hxpage"
	"github.com/pthm/hxpage/example/blog"
)

// OnBeforeRender counts the posts.
func OnBeforeRender(context.Context, *hxpage.PageContext) (map[string]any, error) {
	return map[string]any{"postCount": blog.Default().Count()}, nil
}

// PassToClient sends the count to the client router.
var PassToClient = []string{"postCount"}

func aboutBody(text string) templ.Component {
	return templ.Raw("<h1>About</h1><p>" + templ.EscapeString(text) + "</p>")
}
