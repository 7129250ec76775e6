package service

import "context"

type sourceKey struct{}

// WithSource labels queries issued under ctx with the surface that issued them.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext returns the label set by WithSource, or "library".
func SourceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return "library"
}
