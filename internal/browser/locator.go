// internal/browser/locator.go
package browser

import "fmt"

// Locator is a deferred query resolving to zero-or-more UI elements. It is
// a query, not a handle: it re-resolves against the current page on every
// use, so a navigation between actions cannot leave an interaction holding
// a stale node.
type Locator struct {
	xpath string
	desc  string
}

// ByXPath builds a locator from a raw XPath expression.
func ByXPath(expr string) Locator {
	return Locator{xpath: expr, desc: fmt.Sprintf("xpath=%s", expr)}
}

// ByRole builds a semantic locator keyed by role and accessible label,
// decoupling scenario scripts from brittle absolute paths. Supported roles:
// "link", "button"; any other role matches on the aria role attribute.
func ByRole(role, label string) Locator {
	var expr string
	switch role {
	case "link":
		expr = fmt.Sprintf(`//a[contains(normalize-space(.), %q)] | //*[@role="link"][contains(normalize-space(.), %q)]`, label, label)
	case "button":
		expr = fmt.Sprintf(`//button[contains(normalize-space(.), %q)] | //*[@role="button"][contains(normalize-space(.), %q)]`, label, label)
	default:
		expr = fmt.Sprintf(`//*[@role=%q][contains(normalize-space(.), %q)]`, role, label)
	}
	return Locator{xpath: expr, desc: fmt.Sprintf("role=%s label=%q", role, label)}
}

// XPath returns the compiled path expression.
func (l Locator) XPath() string {
	return l.xpath
}

// IsZero reports whether the locator is empty.
func (l Locator) IsZero() bool {
	return l.xpath == ""
}

func (l Locator) String() string {
	return l.desc
}
