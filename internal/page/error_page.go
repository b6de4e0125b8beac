package page

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// ErrorPage renders a minimal standalone page for a failed request. Detail is
// only shown when non-empty, which the server limits to development mode.
func ErrorPage(status int, detail string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		text := http.StatusText(status)
		if text == "" {
			text = "Error"
		}

		_, err := fmt.Fprintf(w,
			`<!DOCTYPE html>`+"\n"+`<html lang="en"><head><meta charset="utf-8"><title>%d %s</title></head>`+
				`<body><main class="error"><h1>%d</h1><p>%s</p>`,
			status, templ.EscapeString(text), status, templ.EscapeString(text))
		if err != nil {
			return err
		}
		if detail != "" {
			if _, err := fmt.Fprintf(w, `<pre class="error-detail">%s</pre>`, templ.EscapeString(detail)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, "</main></body></html>")
		return err
	})
}
