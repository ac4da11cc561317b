// internal/browser/cdpdriver/context.go
package cdpdriver

import (
	"context"
)

// CombineContext returns a context carrying ctx1's values (the chromedp target) that
// is canceled when either ctx1 or ctx2 is done. ctx2 is usually the caller's
// operational context with its deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancelCause(ctx1)
	stop := context.AfterFunc(ctx2, func() {
		cancel(context.Cause(ctx2))
	})
	return combined, func() {
		stop()
		cancel(context.Canceled)
	}
}
