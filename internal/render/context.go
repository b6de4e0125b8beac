package render

import (
	"context"

	"golang.org/x/text/language"
)

type localeKey struct{}

// WithLocale stores the negotiated locale for components to read.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, tag)
}

// Locale returns the locale stored by WithLocale, or language.Und.
func Locale(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(localeKey{}).(language.Tag); ok {
		return tag
	}
	return language.Und
}

// IsRendering reports whether ctx belongs to a Renderer.Render call.
func IsRendering(ctx context.Context) bool {
	return sessionFrom(ctx) != nil
}
