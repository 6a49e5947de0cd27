package pages

import (
	"context"

	"github.com/pthm/hxpage"
)

// ErrorRender renders 404 and 500 pages.
func ErrorRender(_ context.Context, pc *hxpage.PageContext) (any, error) {
	if is404, _ := pc.Is404(); is404 {
		return Layout("Not found", Text("h1", "This page could not be found.")), nil
	}
	return Layout("Error", Text("h1", "Something went wrong.")), nil
}
