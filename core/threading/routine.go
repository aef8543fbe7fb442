package threading

import (
	"context"

	"github.com/world-in-progress/surfpool/core/rescue"
)

// RunSafe calls fn and swallows a panic after logging it.
func RunSafe(fn func()) {
	defer rescue.Recover()

	fn()
}

// RunSafeCtx calls fn. A panic is logged with the tag carried by ctx.
func RunSafeCtx(ctx context.Context, fn func()) {
	defer rescue.RecoverCtx(ctx)

	fn()
}

// GoSafe is RunSafe on a new goroutine.
func GoSafe(fn func()) {
	go RunSafe(fn)
}

// GoSafeCtx is RunSafeCtx on a new goroutine.
func GoSafeCtx(ctx context.Context, fn func()) {
	go RunSafeCtx(ctx, fn)
}

// GoTagged runs fn on a new goroutine and names it tag in panic logs.
func GoTagged(tag string, fn func()) {
	GoSafeCtx(rescue.WithTag(context.Background(), tag), fn)
}
