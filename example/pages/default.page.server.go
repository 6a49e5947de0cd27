package pages

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/pthm/hxpage"
)

// DefaultPassToClient lists the fields sent to the client router.
var DefaultPassToClient = []string{"title"}

// DefaultRender renders the "body" of every page inside the layout. Boosted
// HTMX navigations only get the body.
func DefaultRender(_ context.Context, pc *hxpage.PageContext) (any, error) {
	title, _ := pc.Value("title").(string)
	body, ok := pc.Value("body").(templ.Component)
	if !ok {
		return nil, fmt.Errorf("page %s did not set a body", pc.PageID())
	}
	if boosted, _ := pc.Value(hxpage.ValueIsBoosted).(bool); boosted {
		return body, nil
	}
	return Layout(title, body), nil
}
