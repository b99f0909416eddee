package browser

import (
	"fmt"
	"strings"
)

// Locator identifies page content by ARIA role and accessible name, or by text.
//
// Matching is case-insensitive on whitespace-normalized substrings unless
// Exact is set, in which case the normalized strings must be equal.
type Locator struct {
	Role  string
	Name  string
	Text  string
	Exact bool
}

// ByRole locates an element by role, optionally narrowed by accessible name.
func ByRole(role, name string) Locator {
	return Locator{Role: role, Name: name}
}

// ByText locates the innermost element whose text content matches text.
func ByText(text string) Locator {
	return Locator{Text: text}
}

// WithExact returns a copy of l with exact matching set to exact.
func (l Locator) WithExact(exact bool) Locator {
	l.Exact = exact
	return l
}

// Validate reports whether the locator can be resolved.
func (l Locator) Validate() error {
	switch {
	case l.Role == "" && l.Text == "":
		return fmt.Errorf("locator needs a role or a text")
	case l.Role != "" && l.Text != "":
		return fmt.Errorf("locator %s mixes role and text", l)
	}
	return nil
}

func (l Locator) String() string {
	var b strings.Builder
	if l.Role != "" {
		b.WriteString("role=")
		b.WriteString(l.Role)
		if l.Name != "" {
			fmt.Fprintf(&b, "[name=%q]", l.Name)
		}
	} else {
		fmt.Fprintf(&b, "text=%q", l.Text)
	}
	if l.Exact {
		b.WriteString(" exact")
	}
	return b.String()
}

// locatorJS resolves a Locator inside the page. It returns the first visible
// match or null, so rod's ElementByJS reports a not-found error when nothing
// is visible yet.
const locatorJS = `(role, name, text, exact) => {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const matches = (value, want) => {
		value = norm(value);
		want = norm(want);
		if (exact) return value === want;
		return value.toLowerCase().includes(want.toLowerCase());
	};
	const visible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};
	const roles = {
		heading: 'h1,h2,h3,h4,h5,h6,[role="heading"]',
		combobox: 'select:not([multiple]),input[list],[role="combobox"]',
		button: 'button,input[type="button"],input[type="submit"],[role="button"]',
		link: 'a[href],[role="link"]',
		listitem: 'li,[role="listitem"]',
		textbox: 'input:not([type]),input[type="text"],textarea,[role="textbox"]',
	};
	const accessibleName = (el) => {
		const label = el.getAttribute('aria-label');
		if (label) return label;
		const ids = el.getAttribute('aria-labelledby');
		if (ids) {
			return ids.split(/\s+/).map((id) => {
				const ref = document.getElementById(id);
				return ref ? ref.textContent : '';
			}).join(' ');
		}
		if (el.labels && el.labels.length) {
			return Array.from(el.labels).map((l) => l.textContent).join(' ');
		}
		return el.textContent;
	};

	let candidates;
	if (role) {
		const selector = roles[role] || '[role="' + role + '"]';
		candidates = Array.from(document.querySelectorAll(selector));
		if (name) candidates = candidates.filter((el) => matches(accessibleName(el), name));
	} else {
		const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE']);
		candidates = Array.from(document.body.querySelectorAll('*'))
			.filter((el) => !skip.has(el.tagName) && matches(el.textContent, text))
			.filter((el) => !Array.from(el.children).some((c) => matches(c.textContent, text)));
	}
	return candidates.find(visible) || null;
}`

// selectJS selects the option of a select-like control whose value or label
// matches value, then fires the events frameworks listen to.
const selectJS = `function (value) {
	const el = this;
	if (el.tagName !== 'SELECT') {
		el.value = value;
	} else {
		const option = Array.from(el.options).find((o) => o.value === value) ||
			Array.from(el.options).find((o) => o.label.trim() === value);
		if (!option) return false;
		el.value = option.value;
	}
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`
