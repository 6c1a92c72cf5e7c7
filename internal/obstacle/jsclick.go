package obstacle

import (
	"encoding/json"
	"fmt"
)

// buildJSClickScript renders the IIFE described in spec.md §4.3(a): try
// a direct selector match first (guarded against invalid-selector
// exceptions), then fall back to a text search across buttons,
// role=button elements, anchors, and submit inputs.
func buildJSClickScript(selector, dismissText string) string {
	selLiteral := jsStringLiteral(selector)
	textLiteral := jsStringLiteral(dismissText)
	return fmt.Sprintf(`(() => {
  try {
    const el = document.querySelector(%s);
    if (el) { el.click(); return "clicked"; }
  } catch (e) {
    // invalid selector syntax, fall through to text search
  }
  const text = %s.toLowerCase();
  if (!text) return "not found";
  const candidates = document.querySelectorAll(
    "button, [role=button], a, input[type=submit]"
  );
  for (const el of candidates) {
    const label = (el.innerText || el.value || el.getAttribute("aria-label") || "").trim().toLowerCase();
    if (label && (label === text || label.includes(text))) {
      el.click();
      return "clicked by text";
    }
  }
  return "not found";
})()`, selLiteral, textLiteral)
}

func jsStringLiteral(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}
