package about

import (
	"context"
	"fmt"

	"github.com/pthm/hxpage"
)

// AboutOnBeforeRender runs on the server and, with client routing, in the
// browser. The post count comes from the server hook.
func AboutOnBeforeRender(ctx context.Context, pc *hxpage.PageContext) (map[string]any, error) {
	if err := pc.RunOnBeforeRenderServerHooks(ctx); err != nil {
		return nil, err
	}
	count, _ := pc.Value("postCount").(int)
	return map[string]any{
		"title": "About",
		"body":  aboutBody(fmt.Sprintf("A small blog with %d posts.", count)),
	}, nil
}
