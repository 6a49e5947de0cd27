package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps the body of a page into the site document.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+` | Blog</title>`+
			`<script src="https://unpkg.com/htmx.org@2.0.4"></script></head>`+
			`<body hx-boost="true"><nav><a href="/">Posts</a> <a href="/about">About</a></nav><main id="main">`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// Text renders escaped text in an element.
func Text(tag, text string) templ.Component {
	return templ.Raw("<" + tag + ">" + templ.EscapeString(text) + "</" + tag + ">")
}
