// Package hxpageecho provides Echo framework integration for hxpage.
//
// Render every unmatched GET request as a page:
//
//	e := echo.New()
//	hxpageecho.Mount(e, renderer)
//
// Or render pages in front of existing routes, falling through when no
// page matches:
//
//	e.Use(hxpageecho.Middleware(renderer))
package hxpageecho

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxpage"
)

// Mount renders pages for every GET and HEAD request that matches no other
// route of e. Requests without a page get echo.ErrNotFound.
func Mount(e *echo.Echo, r *hxpage.Renderer) {
	h := Handler(r)
	e.GET("/*", h)
	e.HEAD("/*", h)
}

// MountGroup is Mount for a group, sharing the group's middleware
// (auth, logging, etc.).
func MountGroup(g *echo.Group, r *hxpage.Renderer) {
	h := Handler(r)
	g.GET("/*", h)
	g.HEAD("/*", h)
}

// Handler renders the page of the request.
func Handler(r *hxpage.Renderer) echo.HandlerFunc {
	return func(c echo.Context) error {
		served, err := serve(c, r)
		if err != nil {
			return err
		}
		if !served {
			return echo.ErrNotFound
		}
		return nil
	}
}

// Middleware renders the page of GET and HEAD requests and calls next when
// there is none.
func Middleware(r *hxpage.Renderer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if method != http.MethodGet && method != http.MethodHead {
				return next(c)
			}
			served, err := serve(c, r)
			if err != nil {
				return err
			}
			if !served {
				return next(c)
			}
			return nil
		}
	}
}

// serve renders the request and writes the response. A stream failing
// after the status was sent is already logged by the renderer and is not
// returned to Echo, which could no longer change the response.
func serve(c echo.Context, r *hxpage.Renderer) (bool, error) {
	req := c.Request()
	ctx := req.Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = hxpage.ContextWithRequestID(ctx, id)
		req = req.WithContext(ctx)
	}

	pc := r.RenderPage(ctx, hxpage.PageContextInitFromRequest(req))
	res := pc.HTTPResponse()
	if res == nil {
		return false, nil
	}
	err := res.WriteHTTP(ctx, c.Response())
	var se *hxpage.StreamingError
	if errors.As(err, &se) {
		return true, nil
	}
	return true, err
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxpageecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, hxpage.ContentTypeHTML)
	return component.Render(c.Request().Context(), c.Response())
}
