package rescue

import (
	"context"
	"runtime/debug"

	"github.com/world-in-progress/surfpool/core/logger"
)

type ctxKey struct{}

// WithTag attaches a tag to ctx that RecoverCtx reports alongside a panic.
func WithTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// Recover runs cleanups and logs the panic, if any.
// It must be deferred directly.
func Recover(cleanups ...func()) {
	if r := recover(); r != nil {
		for _, cleanup := range cleanups {
			cleanup()
		}
		logger.WithFields(logger.Fields{"stack": string(debug.Stack())}).
			Errorf("recovered from panic: %v", r)
	}
}

// RecoverCtx is like Recover but reports the tag carried by ctx.
func RecoverCtx(ctx context.Context, cleanups ...func()) {
	if r := recover(); r != nil {
		for _, cleanup := range cleanups {
			cleanup()
		}
		tag, _ := ctx.Value(ctxKey{}).(string)
		logger.WithFields(logger.Fields{"tag": tag, "stack": string(debug.Stack())}).
			Errorf("recovered from panic: %v", r)
	}
}
