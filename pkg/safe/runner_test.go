package safe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGoCtx_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	GoCtx(context.Background(), func(ctx context.Context) {
		defer close(done)
		panic("job exploded")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}
}

func TestGo_RunsFn(t *testing.T) {
	ch := make(chan int, 1)
	Go(func() { ch <- 42 })
	assert.Equal(t, 42, <-ch)
}
