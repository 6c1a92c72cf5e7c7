// Package reflect implements the Reflector policy of spec.md §4.2: it
// maps a step's raw outcome (snapshots, error, retry count) into one of
// five disposition verdicts. The side effects of each verdict are
// carried out by the step loop in package run, not here.
package reflect

import (
	"strings"
	"time"

	"github.com/brightloop/agentcore/internal/model"
)

// optionalStepMarkers is the fixed, case-insensitive category list used
// to decide whether a step that keeps failing at the retry ceiling can
// be skipped instead of aborting the run.
var optionalStepMarkers = []string{
	"cookie", "consent", "accept", "gdpr", "privacy", "agree", "terms", "tos",
	"legal", "newsletter", "popup", "dismiss", "close-modal", "no-thanks",
	"chat-widget", "chatbot", "live-chat", "ad-feedback", "ad-choice",
}

// Input bundles everything the Reflector needs to produce a verdict.
type Input struct {
	Step       model.ActionStep
	Before     model.DomSnapshot
	After      *model.DomSnapshot
	Err        error
	RetryCount int
	MaxRetries int
}

// Reflect implements the verdict table in spec.md §4.2.
func Reflect(in Input) model.ReflectionResult {
	if in.Err != nil || in.After == nil {
		return handleFailure(in)
	}
	return verifySuccess(in)
}

func handleFailure(in Input) model.ReflectionResult {
	errText := ""
	if in.Err != nil {
		errText = strings.ToLower(in.Err.Error())
	}

	if in.RetryCount >= in.MaxRetries {
		if isOptionalStep(in.Step) {
			return model.ReflectionResult{Kind: model.VerdictSkip, Reason: "optional step exceeded retry ceiling: " + errText}
		}
		return model.ReflectionResult{Kind: model.VerdictAbort, Reason: errText}
	}

	if isElementNotFound(errText) {
		repair := in.Step.WithSelector("")
		return model.ReflectionResult{
			Kind:   model.VerdictRetry,
			Reason: errText,
			Repair: []model.ActionStep{repair},
		}
	}

	if isTimeoutSignal(errText) {
		waitStep := model.ActionStep{
			StepID: in.Step.StepID + "-wait",
			Action: model.ActionWait,
			Params: map[string]string{"ms": "3000"},
		}
		return model.ReflectionResult{
			Kind:   model.VerdictRetry,
			Reason: errText,
			Repair: []model.ActionStep{waitStep, in.Step},
		}
	}

	return model.ReflectionResult{
		Kind:   model.VerdictRetry,
		Reason: errText,
		Repair: []model.ActionStep{in.Step},
	}
}

func verifySuccess(in Input) model.ReflectionResult {
	after := *in.After
	switch in.Step.Action {
	case model.ActionNavigate:
		if after.URL != "" {
			return model.ReflectionResult{Kind: model.VerdictSuccess, Selector: in.Step.Selector}
		}
		waitStep := model.ActionStep{
			StepID: in.Step.StepID + "-wait",
			Action: model.ActionWait,
			Params: map[string]string{"ms": "2000"},
		}
		return model.ReflectionResult{
			Kind:   model.VerdictRetry,
			Reason: "navigate did not yield a url",
			Repair: []model.ActionStep{waitStep, in.Step},
		}

	case model.ActionClick:
		if in.Before.Content != after.Content {
			return model.ReflectionResult{Kind: model.VerdictSuccess, Selector: in.Step.Selector}
		}
		if in.RetryCount >= in.MaxRetries {
			return model.ReflectionResult{Kind: model.VerdictSuccess, Selector: in.Step.Selector}
		}
		return model.ReflectionResult{Kind: model.VerdictWait, Reason: "click produced no DOM change", WaitMS: 1000}

	case model.ActionType:
		return model.ReflectionResult{Kind: model.VerdictSuccess, Selector: in.Step.Selector}

	default:
		return model.ReflectionResult{Kind: model.VerdictSuccess, Selector: in.Step.Selector}
	}
}

func isOptionalStep(step model.ActionStep) bool {
	lower := strings.ToLower(step.Target)
	for _, marker := range optionalStepMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isElementNotFound(errText string) bool {
	for _, marker := range []string{"element not found", "selector", "unable to locate", "no such element"} {
		if strings.Contains(errText, marker) {
			return true
		}
	}
	return false
}

func isTimeoutSignal(errText string) bool {
	return strings.Contains(errText, "timeout") || strings.Contains(errText, "timed out")
}

// WaitDuration converts a Wait verdict's millisecond count into a
// time.Duration for the cooperative sleep the Step Loop issues.
func WaitDuration(r model.ReflectionResult) time.Duration {
	return time.Duration(r.WaitMS) * time.Millisecond
}
