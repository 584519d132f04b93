package engine

import (
	"context"

	"github.com/yanun0323/pkg/sys"
)

// ShutdownContext derives ctx from parent and also cancels it when the
// process receives a shutdown signal, so a long-running backtest or
// replay still gets to flush its WAL and report a result instead of
// being killed mid-write. Callers must still call cancel once the run
// completes, same as with context.WithCancel.
func ShutdownContext(parent context.Context) (ctx context.Context, cancel context.CancelFunc) {
	ctx, cancel = context.WithCancel(parent)
	go func() {
		select {
		case <-sys.Shutdown():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
