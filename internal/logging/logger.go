// Package logging defines the structured-logging interface used across
// courier. Implementations wrap slog or logrus.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are key-value
// pairs:
//
//	log.Info(ctx, "attachment uploaded", "attachment_id", id, "remote_id", rid)
//
// Fields attached to ctx with ContextWith are logged before args.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

type ctxFieldsKey struct{}

// ContextWith returns a copy of ctx carrying extra log fields, appended to
// any already present.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev := contextArgs(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(append(merged, prev...), args...)
	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

func contextArgs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	args, _ := ctx.Value(ctxFieldsKey{}).([]any)
	return args
}

// withContext prepends the fields carried by ctx to args.
func withContext(ctx context.Context, args []any) []any {
	prev := contextArgs(ctx)
	if len(prev) == 0 {
		return args
	}
	out := make([]any, 0, len(prev)+len(args))
	return append(append(out, prev...), args...)
}
