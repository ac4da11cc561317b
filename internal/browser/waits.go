// internal/browser/waits.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/johnjkle/traderev/internal/wait"
)

// WaitForWindowCount blocks until the driver reports exactly n window handles.
func WaitForWindowCount(ctx context.Context, drv Driver, n int, timeout, interval time.Duration) ([]string, error) {
	var handles []string
	err := wait.Until(ctx, fmt.Sprintf("waiting for %d windows", n), timeout, interval, func(ctx context.Context) (bool, error) {
		h, err := drv.WindowHandles(ctx)
		if err != nil {
			return false, err
		}
		handles = h
		return len(h) == n, nil
	})
	if err != nil {
		return handles, err
	}
	return handles, nil
}

// WaitForElement blocks until loc resolves to exactly one element.
func WaitForElement(ctx context.Context, drv Driver, loc Locator, timeout, interval time.Duration) (Element, error) {
	var found Element
	err := wait.Until(ctx, fmt.Sprintf("waiting for %s", loc), timeout, interval, func(ctx context.Context) (bool, error) {
		el, err := drv.FindElement(ctx, loc)
		if errors.Is(err, ErrNoSuchElement) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		found = el
		return true, nil
	})
	return found, err
}

// WaitUntilDisplayed blocks until el reports itself visible.
func WaitUntilDisplayed(ctx context.Context, el Element, what string, timeout, interval time.Duration) error {
	return wait.Until(ctx, fmt.Sprintf("waiting for %s to be displayed", what), timeout, interval, func(ctx context.Context) (bool, error) {
		return el.IsDisplayed(ctx)
	})
}
