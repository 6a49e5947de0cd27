package hxpage

import (
	"errors"
	"net/http"
)

// Values added to the page context by PageContextInitFromRequest.
const (
	ValueIsHTMX     = "isHTMX"
	ValueIsBoosted  = "isBoosted"
	ValueCurrentURL = "currentURL"
)

// PageContextInitFromRequest builds the RenderPage input of an HTTP
// request. The HTMX request headers are exposed as page context values so
// pages can render a fragment for boosted navigations:
//
//	if pc.Value(hxpage.ValueIsBoosted) == true {
//	    return views.Content(props), nil
//	}
func PageContextInitFromRequest(r *http.Request) PageContextInit {
	return PageContextInit{
		URL: r.URL.RequestURI(),
		Values: map[string]any{
			ValueIsHTMX:     IsHTMX(r),
			ValueIsBoosted:  IsBoosted(r),
			ValueCurrentURL: CurrentURL(r),
		},
	}
}

// Serve writes the response of pc. It returns false, and writes nothing,
// when there is no response.
//
// Streams are flushed as they are written. A stream failing midway cannot
// change the status anymore; it is logged by the renderer and reported by
// pc.ErrWhileStreaming.
func Serve(w http.ResponseWriter, r *http.Request, pc *PageContext) (bool, error) {
	res := pc.HTTPResponse()
	if res == nil {
		return false, nil
	}
	return true, res.WriteHTTP(r.Context(), w)
}

// Middleware renders pages and passes requests without a response on to
// next. Only GET and HEAD requests are rendered.
func (r *Renderer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			next.ServeHTTP(w, req)
			return
		}
		pc := r.RenderPage(req.Context(), PageContextInitFromRequest(req))
		served, err := Serve(w, req, pc)
		if !served {
			next.ServeHTTP(w, req)
			return
		}
		var se *StreamingError
		if err != nil && !errors.As(err, &se) {
			r.logger.DebugContext(req.Context(), "write response failed", "error", err, "request_id", pc.RequestID())
		}
	})
}

// Handler returns an http.Handler rendering pages, answering 404 when
// there is no response.
func (r *Renderer) Handler() http.Handler {
	return r.Middleware(http.NotFoundHandler())
}

// IsHTMX returns true if the request originated from HTMX.
//
// HTMX sends HX-Request: true on all requests.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// IsBoosted returns true if the request is a boosted navigation (hx-boost).
//
// hx-boost converts regular links/forms to HTMX requests. Boosted requests
// only need the main content area instead of the full layout.
func IsBoosted(r *http.Request) bool {
	return r.Header.Get("HX-Boosted") == "true"
}

// CurrentURL returns the current URL from the HX-Current-URL header.
//
// This is the URL the browser is currently on (not the request URL).
// Returns empty string if header not present (non-HTMX request).
func CurrentURL(r *http.Request) string {
	return r.Header.Get("HX-Current-URL")
}
