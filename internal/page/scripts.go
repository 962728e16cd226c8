package page

import (
	"encoding/json"
	"fmt"
)

// Arg encodes a caller value for embedding in a script expression. Every
// value crossing into page script goes through JSON encoding; raw string
// interpolation of caller input is never allowed here.
func Arg(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func scriptExists(selector string) string {
	return fmt.Sprintf("!!document.querySelector(%s)", Arg(selector))
}

func scriptFirstMatch(candidates []string) string {
	return fmt.Sprintf(`(() => {
	const candidates = %s;
	for (const sel of candidates) {
		try {
			if (document.querySelector(sel)) return sel;
		} catch (e) {}
	}
	return null;
})()`, Arg(candidates))
}

// scriptFill assigns through the native value setter so framework-wrapped
// inputs (React and friends intercept plain .value writes) still see the
// change, then fires the synthetic events those frameworks listen for.
func scriptFill(selector, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const proto = el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) {
		desc.set.call(el, %s);
	} else {
		el.value = %s;
	}
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, Arg(selector), Arg(value), Arg(value))
}

func scriptClick(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.click();
	return true;
})()`, Arg(selector))
}

func scriptPress(selector, key string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const key = %s;
	for (const type of ['keydown', 'keypress', 'keyup']) {
		el.dispatchEvent(new KeyboardEvent(type, { key: key, bubbles: true }));
	}
	if (key === 'Enter' && el.form) el.form.requestSubmit();
	return true;
})()`, Arg(selector), Arg(key))
}

func scriptText(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return el ? el.innerText : null;
})()`, Arg(selector))
}
