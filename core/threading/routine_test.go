package threading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSafe(t *testing.T) {
	ran := false
	assert.NotPanics(t, func() {
		RunSafe(func() {
			ran = true
			panic("boom")
		})
	})
	assert.True(t, ran)
}

func TestGoTagged(t *testing.T) {
	done := make(chan struct{})
	GoTagged("health-server", func() {
		defer close(done)
		panic("boom")
	})
	<-done
}
