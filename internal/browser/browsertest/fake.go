// Package browsertest provides an in-memory browser.Driver for unit tests. Pages
// are described as selector lookups rather than real DOM, so tests state exactly
// what each query returns.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/wait"
)

// Node is a fake element. Children are keyed by the CSS selector a lookup uses.
type Node struct {
	Text     string
	Hidden   bool
	Children map[string][]*Node
	// OnClick runs when the node is clicked, e.g. to open a window or reveal a popup.
	OnClick  func(d *Driver)
	ClickErr error

	mu     sync.Mutex
	clicks int
}

// Clicks reports how many times the node was clicked.
func (n *Node) Clicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clicks
}

// SetHidden changes visibility, usually from another node's OnClick.
func (n *Node) SetHidden(hidden bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Hidden = hidden
}

func (n *Node) hidden() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Hidden
}

// Page maps selectors to the nodes a lookup returns.
type Page map[string][]*Node

type window struct {
	handle string
	page   Page
}

// Driver is a scripted browser.Driver.
type Driver struct {
	// Pages are loaded by Navigate, keyed by URL.
	Pages map[string]Page
	// NavigateErr, when set, fails every Navigate.
	NavigateErr error
	QuitErr     error

	mu        sync.Mutex
	windows   []*window
	current   *window
	nextID    int
	navigated []string
	width     int
	height    int
	quits     int
	shots     int
}

var _ browser.Driver = (*Driver)(nil)

// New returns a driver with one blank window.
func New(pages map[string]Page) *Driver {
	d := &Driver{Pages: pages}
	d.current = d.addWindow(Page{})
	return d
}

func (d *Driver) addWindow(p Page) *window {
	d.nextID++
	w := &window{handle: fmt.Sprintf("window-%d", d.nextID), page: p}
	d.windows = append(d.windows, w)
	return w
}

// OpenWindow simulates a link opening url in a new tab. It does not switch.
func (d *Driver) OpenWindow(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addWindow(d.Pages[url])
}

// SetNodes replaces what selector returns in the current window.
func (d *Driver) SetNodes(selector string, nodes ...*Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current.page[selector] = nodes
}

// Navigated lists every URL passed to Navigate.
func (d *Driver) Navigated() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigated...)
}

// WindowSize returns the last size set.
func (d *Driver) WindowSize() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// QuitCalls reports how many times Quit ran.
func (d *Driver) QuitCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

// Screenshots reports how many screenshots were taken.
func (d *Driver) Screenshots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shots
}

func (d *Driver) Name() string { return "fake/chrome" }

func (d *Driver) checkOpen() error {
	if d.quits > 0 {
		return browser.ErrDriverClosed
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	page, ok := d.Pages[url]
	if !ok {
		return fmt.Errorf("navigating to %s: no fixture page", url)
	}
	d.navigated = append(d.navigated, url)
	d.current.page = page
	return nil
}

func (d *Driver) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	all, err := d.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	return browser.ExactlyOne(loc, all)
}

func (d *Driver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	return d.wrap(d.current.page[loc.CSS()]), nil
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	handles := make([]string, 0, len(d.windows))
	for _, w := range d.windows {
		handles = append(handles, w.handle)
	}
	return handles, nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	for _, w := range d.windows {
		if w.handle == handle {
			d.current = w
			return nil
		}
	}
	return fmt.Errorf("switching to %q: %w", handle, browser.ErrNoSuchWindow)
}

func (d *Driver) WaitForDocument(ctx context.Context, sentinel browser.Locator, timeout time.Duration) error {
	return wait.Until(ctx, fmt.Sprintf("document with %s", sentinel), timeout, 5*time.Millisecond, func(ctx context.Context) (bool, error) {
		found, err := d.FindElements(ctx, sentinel)
		return len(found) > 0, err
	})
}

func (d *Driver) SetWindowSize(ctx context.Context, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.width, d.height = width, height
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	d.shots++
	return []byte("\x89PNG fake"), nil
}

func (d *Driver) Quit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quits++
	return d.QuitErr
}

func (d *Driver) wrap(nodes []*Node) []browser.Element {
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{d: d, n: n})
	}
	return out
}

type element struct {
	d *Driver
	n *Node
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.n.mu.Lock()
	e.n.clicks++
	clickErr := e.n.ClickErr
	e.n.mu.Unlock()
	if clickErr != nil {
		return clickErr
	}
	if e.n.OnClick != nil {
		e.n.OnClick(e.d)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.n.Text, ctx.Err()
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	return !e.n.hidden(), ctx.Err()
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
	return e.d.wrap(e.n.Children[loc.CSS()]), nil
}

// ErrScripted is a generic failure tests can inject.
var ErrScripted = errors.New("scripted failure")
