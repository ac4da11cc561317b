// internal/browser/wddriver/element.go
package wddriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/tebeka/selenium"

	"github.com/johnjkle/traderev/internal/browser"
)

type element struct {
	we selenium.WebElement
}

var _ browser.Element = (*element)(nil)

func wrap(found []selenium.WebElement) []browser.Element {
	out := make([]browser.Element, 0, len(found))
	for _, we := range found {
		out = append(out, &element{we: we})
	}
	return out
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.we.Click(); err != nil {
		return fmt.Errorf("clicking element: %w", err)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.we.Text()
	if err != nil {
		return "", fmt.Errorf("reading element text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	shown, err := e.we.IsDisplayed()
	if err != nil {
		return false, fmt.Errorf("checking element visibility: %w", err)
	}
	return shown, nil
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
	found, err := e.we.FindElements(selenium.ByCSSSelector, loc.CSS())
	if err != nil {
		if isNoSuchElement(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding %s: %w", loc, err)
	}
	return wrap(found), nil
}
