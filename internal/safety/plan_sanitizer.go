package safety

import (
	"strings"

	"github.com/brightloop/agentcore/internal/ambient"
	"github.com/brightloop/agentcore/internal/model"
)

// DefaultMaxTypeValueLength is the default cutoff above which a type step's value is
// dropped by Sanitize (spec.md §4.4(b), configurable via
// orchestrator.max_input_length).
const DefaultMaxTypeValueLength = 1200

// DefaultMaxPromptTotalLength is validate_prompt_size's cutoff.
const DefaultMaxPromptTotalLength = 15000

// PlanSanitizer filters and validates a raw plan before it enters the
// action queue.
type PlanSanitizer struct {
	maxTypeValueLength  int
	maxPromptTotalChars int
	logger              ambient.Logger
}

// NewPlanSanitizer builds a PlanSanitizer with the given limits.
func NewPlanSanitizer(maxTypeValueLength, maxPromptTotalChars int, logger ambient.Logger) *PlanSanitizer {
	if maxTypeValueLength <= 0 {
		maxTypeValueLength = DefaultMaxTypeValueLength
	}
	if maxPromptTotalChars <= 0 {
		maxPromptTotalChars = DefaultMaxPromptTotalLength
	}
	if logger == nil {
		logger = ambient.NoOpLogger{}
	}
	return &PlanSanitizer{
		maxTypeValueLength:  maxTypeValueLength,
		maxPromptTotalChars: maxPromptTotalChars,
		logger:              logger,
	}
}

// Sanitize drops navigate steps with a blank URL and type steps whose
// value exceeds the configured length, logging each removal. It is
// idempotent: Sanitize(Sanitize(p)) == Sanitize(p).
func (s *PlanSanitizer) Sanitize(steps []model.ActionStep) []model.ActionStep {
	out := make([]model.ActionStep, 0, len(steps))
	for _, step := range steps {
		if step.Action == model.ActionNavigate && strings.TrimSpace(step.Value) == "" {
			s.logger.Info("plan sanitizer dropped step", map[string]interface{}{
				"step_id": step.StepID,
				"reason":  "navigate with blank URL",
			})
			continue
		}
		if step.Action == model.ActionType && len(step.Value) > s.maxTypeValueLength {
			s.logger.Info("plan sanitizer dropped step", map[string]interface{}{
				"step_id": step.StepID,
				"reason":  "type value exceeds max length",
			})
			continue
		}
		out = append(out, step)
	}
	return out
}

// IsSafe returns false if any navigate step targets a host outside
// allowedDomain (suffix match after normalization). Relative URLs
// (blank or no host) are always allowed.
func (s *PlanSanitizer) IsSafe(steps []model.ActionStep, allowedDomain string) bool {
	allowedDomain = normalizeHost(allowedDomain)
	for _, step := range steps {
		if step.Action != model.ActionNavigate {
			continue
		}
		target := strings.TrimSpace(step.Value)
		if target == "" {
			target = strings.TrimSpace(step.Target)
		}
		if target == "" {
			continue
		}
		host := extractHost(target)
		if host == "" {
			continue // relative URL
		}
		host = normalizeHost(host)
		if host != allowedDomain && !strings.HasSuffix(host, "."+allowedDomain) {
			return false
		}
	}
	return true
}

// ValidatePromptSize rejects a planner input whose combined system and
// goal text exceeds maxPromptTotalChars.
func (s *PlanSanitizer) ValidatePromptSize(systemPrompt string, goals []string) bool {
	total := len(systemPrompt)
	for _, g := range goals {
		total += len(g)
	}
	return total <= s.maxPromptTotalChars
}

func extractHost(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		return ""
	}
	rest := rawURL[strings.Index(rawURL, "://")+3:]
	for i, c := range rest {
		if c == '/' || c == '?' || c == '#' {
			rest = rest[:i]
			break
		}
	}
	if idx := strings.LastIndex(rest, ":"); idx != -1 && !strings.Contains(rest, "]") {
		rest = rest[:idx]
	}
	return rest
}
