// Package page assembles rendered component HTML into a full document with
// the build, config and state payloads the client expects.
package page

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/isorender/internal/version"
)

// Global names the client bundle reads.
const (
	BuildInfoGlobal = "__BUILD_INFO__"
	ConfigGlobal    = "__CONFIG__"
	StateGlobal     = "__INITIAL_STATE__"
)

// Document describes one HTML page.
type Document struct {
	Lang  string
	Title string
	// Head is rendered inside <head> after the generated tags.
	Head templ.Component
	// Body is pre-rendered HTML placed inside the root element.
	Body      []byte
	State     map[string]any
	Config    map[string]any
	BuildInfo version.BuildInfo
	Styles    []string
	Scripts   []string
	// ReloadURL enables the live reload client when non-empty.
	ReloadURL string
}

// Render writes the document to w.
func (d Document) Render(ctx context.Context, w io.Writer) error {
	lang := d.Lang
	if lang == "" {
		lang = "en"
	}

	payloads, err := d.payloadScript()
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&b, `<html lang="%s"><head><meta charset="utf-8">`, templ.EscapeString(lang))
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	fmt.Fprintf(&b, "<title>%s</title>", templ.EscapeString(d.Title))
	for _, href := range d.Styles {
		fmt.Fprintf(&b, `<link rel="stylesheet" href="%s">`, templ.EscapeString(href))
	}
	b.WriteString(payloads)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if d.Head != nil {
		if err := d.Head.Render(ctx, w); err != nil {
			return fmt.Errorf("rendering head: %w", err)
		}
	}

	b.Reset()
	b.WriteString(`</head><body><div id="root">`)
	b.Write(d.Body)
	b.WriteString("</div>")
	for _, src := range d.Scripts {
		fmt.Fprintf(&b, `<script src="%s" defer></script>`, templ.EscapeString(src))
	}
	if d.ReloadURL != "" {
		b.WriteString(reloadClient(d.ReloadURL))
	}
	b.WriteString("</body></html>")

	_, err = io.WriteString(w, b.String())
	return err
}

// Component adapts the document to templ.Component.
func (d Document) Component() templ.Component {
	return templ.ComponentFunc(d.Render)
}

func (d Document) payloadScript() (string, error) {
	state := d.State
	if state == nil {
		state = map[string]any{}
	}
	config := d.Config
	if config == nil {
		config = map[string]any{}
	}

	var b strings.Builder
	b.WriteString("<script>")
	for _, p := range []struct {
		name  string
		value any
	}{
		{BuildInfoGlobal, d.BuildInfo},
		{ConfigGlobal, config},
		{StateGlobal, state},
	} {
		encoded, err := ScriptJSON(p.value)
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", p.name, err)
		}
		fmt.Fprintf(&b, "window.%s=%s;", p.name, encoded)
	}
	b.WriteString("</script>")
	return b.String(), nil
}

// ScriptJSON encodes v for inline use inside a <script> element.
// encoding/json already escapes <, >, & and U+2028/U+2029.
func ScriptJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func reloadClient(url string) string {
	encoded, _ := ScriptJSON(url)
	return `<script>(function(){var u=` + encoded + `;` +
		`var s=(location.protocol==="https:"?"wss://":"ws://")+location.host+u;` +
		`function c(){var ws=new WebSocket(s);` +
		`ws.onmessage=function(e){try{if(JSON.parse(e.data).type==="reload"){location.reload();}}catch(_){}};` +
		`ws.onclose=function(){setTimeout(c,1000);};}c();})();</script>`
}
