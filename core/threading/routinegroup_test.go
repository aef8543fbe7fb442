package threading

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutineGroupRecoversPanics(t *testing.T) {
	var count atomic.Int32
	group := NewRoutineGroup()
	for i := range 5 {
		group.RunSafe(func() {
			if i == 3 {
				panic("boom")
			}
			count.Add(1)
		})
	}
	group.Wait()
	assert.Equal(t, int32(4), count.Load())
}

func TestRoutineGroupRunSafeCtx(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "slot-1")

	var seen atomic.Value
	group := NewRoutineGroup()
	group.RunSafeCtx(ctx, func(ctx context.Context) {
		seen.Store(ctx.Value(key{}))
	})
	group.RunSafeCtx(ctx, func(context.Context) {
		panic("boom")
	})
	group.Wait()

	assert.Equal(t, "slot-1", seen.Load())
}
