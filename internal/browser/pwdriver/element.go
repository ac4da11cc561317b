// internal/browser/pwdriver/element.go
package pwdriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/johnjkle/traderev/internal/browser"
)

type element struct {
	h playwright.ElementHandle
}

var _ browser.Element = (*element)(nil)

func wrap(handles []playwright.ElementHandle) []browser.Element {
	out := make([]browser.Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &element{h: h})
	}
	return out
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.h.Click(playwright.ElementHandleClickOptions{Timeout: timeoutMillis(ctx)}); err != nil {
		return fmt.Errorf("clicking element: %w", err)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.h.InnerText()
	if err != nil {
		return "", fmt.Errorf("reading element text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := e.h.IsVisible()
	if err != nil {
		return false, fmt.Errorf("checking element visibility: %w", err)
	}
	return visible, nil
}

func (e *element) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	all, err := e.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	return browser.ExactlyOne(loc, all)
}

func (e *element) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := e.h.QuerySelectorAll(loc.CSS())
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", loc, err)
	}
	return wrap(handles), nil
}
