package run

import (
	"context"
	"fmt"
	"time"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/ambient"
	"github.com/brightloop/agentcore/internal/bridge"
	"github.com/brightloop/agentcore/internal/model"
	"github.com/brightloop/agentcore/internal/reflect"
)

const suggestionTemperature = 0.3

// loopState carries the mutable bookkeeping a single run's step loop
// needs across iterations.
type loopState struct {
	queue          *model.ActionQueue
	done           *model.DoneQueue
	retries        *model.RetryCounters
	dismissedTypes map[string]struct{}
	iterations     int
}

// runStepLoop drives run's action queue to exhaustion or a terminal
// condition, per spec.md §4.2 and the termination table in §4.1. The
// returned description, when kind is non-empty, is the fully-formed
// failure_reason detail spec.md §7 requires (phase + elapsed time for
// Timeout, exception kind + message for SystemError).
func (e *Executor) runStepLoop(ctx context.Context, run *model.TestRun, state *loopState, startTime, deadline time.Time, maxIterations int) (model.FailureKind, string) {
	for {
		if run.Status != model.RunRunning {
			return "", ""
		}
		state.iterations++
		if state.iterations > maxIterations {
			return model.FailureIterationCap, fmt.Sprintf("exceeded %d loop iterations", maxIterations)
		}
		if time.Now().After(deadline) {
			return model.FailureTimeout, fmt.Sprintf("step-loop phase, %s elapsed", time.Since(startTime))
		}

		step, ok := state.queue.Pop()
		if !ok {
			return "", ""
		}

		if err := e.runOneStep(ctx, run, state, step); err != nil {
			if err == errAbort {
				return model.FailureAborted, ""
			}
			return model.FailureSystemError, fmt.Sprintf("%T: %s", err, err.Error())
		}
	}
}

var errAbort = abortError{}

type abortError struct{}

func (abortError) Error() string { return "reflection verdict: abort" }

func (e *Executor) runOneStep(ctx context.Context, run *model.TestRun, state *loopState, step model.ActionStep) error {
	before, err := e.captureSnapshot(ctx)
	if err != nil {
		return err
	}

	clearResult, err := e.clearer.ClearOnce(ctx, before, state.dismissedTypes)
	if err != nil {
		return err
	}
	before = clearResult.Snapshot
	for _, auto := range clearResult.AuditSteps {
		state.done.Append(auto)
	}

	resolved, err := e.resolver.Resolve(ctx, run.TenantID, step, before)
	if err != nil {
		return err
	}
	if resolved.Selector == "" && resolved.Target != "" {
		verdict := reflect.Reflect(reflect.Input{
			Step:       resolved,
			Before:     before,
			After:      nil,
			Err:        ambient.ErrElementNotFound,
			RetryCount: state.retries.Get(resolved.StepID),
			MaxRetries: e.cfg.MaxRetries,
		})
		return e.dispatch(ctx, run, state, resolved, before, nil, verdict, 0)
	}

	start := time.Now()
	toolName := toolForAction(resolved.Action)
	params := buildToolParams(resolved)
	result, callErr := e.bridge.CallTool(ctx, toolName, params)

	var after *model.DomSnapshot
	var consoleErrors, pageErrors []string
	var perf *model.PerformanceMetrics
	if callErr == nil {
		consoleErrors = result.Console
		pageErrors = result.PageErrors
		if resolved.Action == model.ActionMeasurePerformance {
			perf, _ = bridge.DecodePerformanceMetrics(result)
		}
		snap, snapErr := bridge.DecodeSnapshot(result)
		if snapErr == nil {
			after = &snap
		}
	}

	duration := time.Since(start)
	retryCount := state.retries.Get(resolved.StepID)
	verdict := reflect.Reflect(reflect.Input{
		Step:       resolved,
		Before:     before,
		After:      after,
		Err:        callErr,
		RetryCount: retryCount,
		MaxRetries: e.cfg.MaxRetries,
	})

	executed := model.ExecutedStep{
		Step:          resolved,
		SelectorUsed:  resolved.Selector,
		Before:        before,
		After:         after,
		Duration:      duration,
		RetryCount:    retryCount,
		ConsoleErrors: consoleErrors,
		PageErrors:    pageErrors,
		Performance:   perf,
		Timestamp:     time.Now(),
	}

	return e.dispatchWithRecord(ctx, run, state, resolved, before, after, verdict, executed)
}

func (e *Executor) dispatch(ctx context.Context, run *model.TestRun, state *loopState, step model.ActionStep, before model.DomSnapshot, after *model.DomSnapshot, verdict model.ReflectionResult, duration time.Duration) error {
	executed := model.ExecutedStep{
		Step:       step,
		Before:     before,
		After:      after,
		Duration:   duration,
		RetryCount: state.retries.Get(step.StepID),
		Timestamp:  time.Now(),
	}
	return e.dispatchWithRecord(ctx, run, state, step, before, after, verdict, executed)
}

func (e *Executor) dispatchWithRecord(ctx context.Context, run *model.TestRun, state *loopState, step model.ActionStep, before model.DomSnapshot, after *model.DomSnapshot, verdict model.ReflectionResult, executed model.ExecutedStep) error {
	switch verdict.Kind {
	case model.VerdictSuccess:
		executed.Disposition = model.DispositionSuccess
		executed.SelectorUsed = verdict.Selector
		executed.Suggestion = e.requestOptimization(ctx, step, before, after)
		state.done.Append(executed)
		state.retries.Forget(step.StepID)
		e.resolver.RecordOutcome(run.TenantID, step, before.URL, true)
		return nil

	case model.VerdictRetry:
		state.retries.Increment(step.StepID)
		e.resolver.RecordOutcome(run.TenantID, step, before.URL, false)
		repair := verdict.Repair
		if len(repair) == 0 {
			repair = []model.ActionStep{step}
		}
		state.queue.PushAll(repair)
		return nil

	case model.VerdictWait:
		state.retries.Increment(step.StepID)
		if err := ambient.Sleep(ctx, reflect.WaitDuration(verdict)); err != nil {
			return err
		}
		state.queue.Push(step)
		return nil

	case model.VerdictAbort:
		executed.Disposition = model.DispositionFailed
		executed.Suggestion = e.requestOptimization(ctx, step, before, after)
		state.done.Append(executed)
		run.FailureReason = ambient.FailureReason(model.FailureAborted, "Aborted: "+verdict.Reason)
		run.Status = model.RunFailed
		return errAbort

	case model.VerdictSkip:
		executed.Disposition = model.DispositionSkipped
		state.done.Append(executed)
		state.retries.Forget(step.StepID)
		return nil
	}
	return nil
}

func (e *Executor) captureSnapshot(ctx context.Context) (model.DomSnapshot, error) {
	result, err := e.bridge.CallTool(ctx, "browser_snapshot", nil)
	if err != nil {
		return model.DomSnapshot{}, err
	}
	return bridge.DecodeSnapshot(result)
}

// requestOptimization asks the AI for an optional improvement
// suggestion; failures are swallowed since this is advisory only.
func (e *Executor) requestOptimization(ctx context.Context, step model.ActionStep, before model.DomSnapshot, after *model.DomSnapshot) string {
	if e.ai == nil {
		return ""
	}
	afterContent := ""
	if after != nil {
		afterContent = after.Content
	}
	beforeContent := before.Content
	if e.promptSanitizer != nil {
		beforeContent = e.promptSanitizer.Sandwich("before-snapshot", beforeContent)
		afterContent = e.promptSanitizer.Sandwich("after-snapshot", afterContent)
	}
	suggestion, err := e.ai.Call(ctx,
		"Suggest one short, optional improvement to this test step, or respond with an empty string if there is none.",
		"Action: "+string(step.Action)+"\nTarget: "+step.Target+"\nBefore: "+beforeContent+"\nAfter: "+afterContent,
		aiclient.Options{Temperature: suggestionTemperature},
	)
	if err != nil {
		return ""
	}
	return suggestion
}
