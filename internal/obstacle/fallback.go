package obstacle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brightloop/agentcore/internal/bridge"
)

// fallbackSelector is one entry in the fixed, ordered consent-framework
// fallback list (spec.md §4.3(b)).
type fallbackSelector struct {
	name     string
	selector string
}

// fallbackSelectors targets widely-used consent frameworks in a fixed
// order: OneTrust, SourcePoint, then generic ARIA/class/text heuristics.
var fallbackSelectors = []fallbackSelector{
	{"onetrust-accept", "#onetrust-accept-btn-handler"},
	{"onetrust-banner-close", "#onetrust-close-btn-container button"},
	{"sourcepoint-accept", "button.sp_choice_type_11"},
	{"sourcepoint-message-accept", "#sp_message_container button[title*='Accept' i]"},
	{"aria-cookie-accept", "[aria-label*='accept cookies' i]"},
	{"data-testid-accept", "[data-testid*='accept' i]"},
	{"generic-consent-class", ".cookie-consent button, .cookie-banner button, .consent-banner button"},
	{"generic-accept-text", "button:is([class*='accept' i], [id*='accept' i])"},
}

// buildFallbackClickScript clicks selector only if the matched element
// is actually rendered (offsetParent !== null) — an element present in
// the DOM but hidden is not a real dismiss target.
func buildFallbackClickScript(selector string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return "not found";
  if (el.offsetParent === null) return "not found";
  el.click();
  return "clicked";
})()`, jsStringLiteral(selector))
}

// resultSaysClicked inspects a bridge tool result's JSON payload for the
// "clicked" string the fallback evaluate script returns.
func resultSaysClicked(result bridge.ToolResult) bool {
	if result.JSON == nil {
		return false
	}
	var s string
	if err := json.Unmarshal(result.JSON, &s); err == nil {
		return strings.Contains(s, "clicked")
	}
	return strings.Contains(string(result.JSON), "clicked")
}
