package safe

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"redpacket.com/pkg/logger"
)

// Go 安全启动协程
func Go(fn func()) {
	GoCtx(context.Background(), func(context.Context) { fn() })
}

// GoCtx 安全启动携带 context 的协程，日志里保留请求链路信息
func GoCtx(ctx context.Context, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		defer Recover(ctx, "goroutine panic recovered")
		fn(ctx)
	}()
}

// Recover 在 defer 中使用，吞掉 panic 并记录堆栈
func Recover(ctx context.Context, msg string) {
	if r := recover(); r != nil {
		logger.Error(ctx, msg,
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())),
		)
	}
}
