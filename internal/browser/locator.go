// internal/browser/locator.go
package browser

import (
	"fmt"
	"strings"
)

// Strategy is how a Locator's value is interpreted.
type Strategy int

const (
	StrategyCSS Strategy = iota
	StrategyID
	StrategyClassName
)

func (s Strategy) String() string {
	switch s {
	case StrategyID:
		return "id"
	case StrategyClassName:
		return "class name"
	default:
		return "css selector"
	}
}

// Locator identifies elements by id, class name or CSS selector.
type Locator struct {
	Strategy Strategy
	Value    string
}

func ByID(id string) Locator          { return Locator{Strategy: StrategyID, Value: id} }
func ByClassName(name string) Locator { return Locator{Strategy: StrategyClassName, Value: name} }
func ByCSS(selector string) Locator   { return Locator{Strategy: StrategyCSS, Value: selector} }

// CSS renders the locator as a CSS selector, which every backend understands.
func (l Locator) CSS() string {
	switch l.Strategy {
	case StrategyID:
		return fmt.Sprintf("[id=%s]", quoteAttr(l.Value))
	case StrategyClassName:
		return "." + l.Value
	default:
		return l.Value
	}
}

func (l Locator) String() string {
	return fmt.Sprintf("%s %q", l.Strategy, l.Value)
}

// AttrEquals builds a selector matching elements whose attribute equals value exactly.
func AttrEquals(tag, attr, value string) Locator {
	return ByCSS(fmt.Sprintf("%s[%s=%s]", tag, attr, quoteAttr(value)))
}

// AttrContains builds a selector matching elements whose attribute contains value.
func AttrContains(tag, attr, value string) Locator {
	return ByCSS(fmt.Sprintf("%s[%s*=%s]", tag, attr, quoteAttr(value)))
}

// Descendant scopes child under parent: "parent child".
func Descendant(parent, child Locator) Locator {
	return ByCSS(parent.CSS() + " " + child.CSS())
}

func quoteAttr(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
}
