package run

import (
	"strconv"
	"strings"

	"github.com/brightloop/agentcore/internal/model"
)

// toolForAction maps a planned action to the bridge tool name, per the
// table in spec.md §4.2.
func toolForAction(action model.Action) string {
	switch action {
	case model.ActionNavigate:
		return "navigate_page"
	case model.ActionType:
		return "fill"
	case model.ActionWait:
		return "wait_for"
	case model.ActionScreenshot:
		return "take_screenshot"
	case model.ActionScroll:
		return "evaluate"
	case model.ActionMeasurePerformance:
		return "get_performance_metrics"
	default:
		return string(action) // click, hover: tool name matches action name
	}
}

var regionMarkers = []string{"bottom", "footer", "middle", "section", "%", "px"}

// buildToolParams assembles the bridge arguments for a step, including
// the per-action synthesis spec.md §4.2 step 4 calls out: a scroll
// snippet for scroll, ms normalization for wait, and a pre-screenshot
// scroll when the target implies a page region.
func buildToolParams(step model.ActionStep) map[string]interface{} {
	params := map[string]interface{}{}
	for k, v := range step.Params {
		params[k] = v
	}
	if step.Selector != "" {
		params["selector"] = step.Selector
	}
	if step.Value != "" {
		params["value"] = step.Value
	}

	switch step.Action {
	case model.ActionScroll:
		params["script"] = scrollScriptFor(step.Target)
	case model.ActionWait:
		if _, ok := params["ms"]; !ok {
			if timeout, ok := params["timeout"]; ok {
				params["ms"] = timeout
				delete(params, "timeout")
			} else {
				params["ms"] = "1000"
			}
		}
	case model.ActionScreenshot:
		if impliesRegion(step.Target) {
			params["preScrollScript"] = scrollScriptFor(step.Target)
		}
	}
	return params
}

func impliesRegion(target string) bool {
	lower := strings.ToLower(target)
	for _, m := range regionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return isDigitHeavy(lower)
}

func isDigitHeavy(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func scrollScriptFor(target string) string {
	lower := strings.ToLower(target)
	switch {
	case strings.Contains(lower, "bottom") || strings.Contains(lower, "footer"):
		return "window.scrollTo(0, document.body.scrollHeight)"
	case strings.Contains(lower, "middle"):
		return "window.scrollTo(0, document.body.scrollHeight / 2)"
	case strings.Contains(lower, "%"):
		if pct := extractPercent(lower); pct >= 0 {
			return "window.scrollTo(0, document.body.scrollHeight * " + strconv.Itoa(pct) + " / 100)"
		}
		return "window.scrollBy(0, 400)"
	default:
		return "window.scrollBy(0, 400)"
	}
}

func extractPercent(lower string) int {
	idx := strings.Index(lower, "%")
	if idx <= 0 {
		return -1
	}
	start := idx
	for start > 0 && lower[start-1] >= '0' && lower[start-1] <= '9' {
		start--
	}
	if start == idx {
		return -1
	}
	n, err := strconv.Atoi(lower[start:idx])
	if err != nil {
		return -1
	}
	return n
}
