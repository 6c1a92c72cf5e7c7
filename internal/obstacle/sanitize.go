package obstacle

import "regexp"

// jQuery-style pseudo-classes that are not valid CSS and must be
// converted before reaching the bridge (spec.md §4.3, "Selector
// sanitization").
var jqueryPseudoRe = regexp.MustCompile(`:(contains|has|first|last|eq|gt|lt|even|odd)\(([^)]*)\)`)
var jqueryBarePseudoRe = regexp.MustCompile(`:(first|last|even|odd)\b`)
var containsTextRe = regexp.MustCompile(`:contains\(\s*(?:'([^']*)'|"([^"]*)")\s*\)`)

// SanitizeSelector rewrites jQuery pseudo-classes into valid CSS of the
// form elem[aria-label*="text"], preferring text captured from
// :contains('...') and falling back to dismissText when the selector
// carries no recoverable text.
func SanitizeSelector(selector, dismissText string) string {
	if m := containsTextRe.FindStringSubmatch(selector); m != nil {
		text := m[1]
		if text == "" {
			text = m[2]
		}
		base := containsTextRe.ReplaceAllString(selector, "")
		return appendAriaLabelMatch(base, text)
	}
	if jqueryPseudoRe.MatchString(selector) || jqueryBarePseudoRe.MatchString(selector) {
		base := jqueryPseudoRe.ReplaceAllString(selector, "")
		base = jqueryBarePseudoRe.ReplaceAllString(base, "")
		if dismissText == "" {
			return base
		}
		return appendAriaLabelMatch(base, dismissText)
	}
	return selector
}

func appendAriaLabelMatch(base, text string) string {
	if base == "" {
		base = "*"
	}
	return base + `[aria-label*="` + escapeAttrValue(text) + `"]`
}

func escapeAttrValue(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
