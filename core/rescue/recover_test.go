package rescue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func division(a float64, b float64, cleaned *bool) (result float64) {
	defer Recover(func() { *cleaned = true })

	if b == 0 {
		panic("division by zero")
	}

	return a / b
}

func TestRecover(t *testing.T) {
	var cleaned bool
	assert.NotPanics(t, func() { division(1, 0, &cleaned) })
	assert.True(t, cleaned)

	cleaned = false
	assert.Equal(t, 0.5, division(1, 2, &cleaned))
	assert.False(t, cleaned)
}

func TestRecoverCtx(t *testing.T) {
	ctx := WithTag(context.Background(), "keepalive")
	calls := 0
	assert.NotPanics(t, func() {
		defer RecoverCtx(ctx, func() { calls++ })
		panic("boom")
	})
	assert.Equal(t, 1, calls)
}
