// internal/browser/cdpdriver/element.go
package cdpdriver

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"

	"github.com/johnjkle/traderev/internal/browser"
)

const (
	textJS = `function() { return (this.innerText || this.textContent || "").trim(); }`

	// Mirrors the WebDriver notion of displayed closely enough for layout checks.
	displayedJS = `function() {
		if (!this.isConnected) { return false; }
		for (let el = this; el; el = el.parentElement) {
			const s = window.getComputedStyle(el);
			if (s.display === 'none' || s.visibility === 'hidden' || s.opacity === '0') { return false; }
		}
		const r = this.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	}`
)

// element is a DOM node inside one tab.
type element struct {
	tab  *tab
	d    *Driver
	node *cdp.Node
}

var _ browser.Element = (*element)(nil)

// Click clicks the node and, when that starts a page load in the same tab, waits
// for the load to finish.
func (e *element) Click(ctx context.Context) error {
	nav := watchNavigation(e.tab)
	defer nav.stop()

	if err := e.d.runIn(ctx, e.tab, nav.mainFrame(), chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("clicking <%s>: %w", e.node.LocalName, err)
	}
	if err := nav.wait(ctx, navigationGrace, navigationTimeout); err != nil {
		return fmt.Errorf("clicking <%s>: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, textJS, &text); err != nil {
		return "", fmt.Errorf("reading text of <%s>: %w", e.node.LocalName, err)
	}
	return text, nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	var displayed bool
	if err := e.call(ctx, displayedJS, &displayed); err != nil {
		return false, fmt.Errorf("checking visibility of <%s>: %w", e.node.LocalName, err)
	}
	return displayed, nil
}

func (e *element) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	all, err := e.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	return browser.ExactlyOne(loc, all)
}

func (e *element) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	return e.d.query(ctx, e.tab, loc, chromedp.FromNode(e.node))
}

// call runs a JS function with this bound to the node and decodes its JSON result.
func (e *element) call(ctx context.Context, fn string, out interface{}) error {
	return e.d.runIn(ctx, e.tab, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		return jsoniter.Unmarshal([]byte(res.Value), out)
	}))
}
