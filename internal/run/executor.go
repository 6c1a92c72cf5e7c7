// Package run assembles the planner, safety pipeline, browser bridge,
// obstacle clearer, and selector resolver into the Run Executor of
// spec.md §4.1: the top-level state machine that drives one TestRun
// from pending to a terminal status.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/ambient"
	"github.com/brightloop/agentcore/internal/bridge"
	"github.com/brightloop/agentcore/internal/config"
	"github.com/brightloop/agentcore/internal/model"
	"github.com/brightloop/agentcore/internal/obstacle"
	"github.com/brightloop/agentcore/internal/safety"
	"github.com/brightloop/agentcore/internal/selector"
	"github.com/brightloop/agentcore/internal/telemetry"
)

// Bridge is the subset of the browser bridge client the executor needs.
type Bridge interface {
	CreateContext(ctx context.Context, runID string, headless bool) error
	CloseContext(ctx context.Context, runID string) error
	ForceRestart(ctx context.Context) error
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (bridge.ToolResult, error)
}

// Executor drives a single TestRun from Pending to a terminal status,
// per the lifecycle in spec.md §4.1. One Executor instance is shared
// across concurrent runs; all per-run mutable state lives in loopState
// and the TestRun itself.
type Executor struct {
	cfg             *config.Config
	ai              aiclient.Client
	bridge          Bridge
	planner         Planner
	sanitizer       *safety.PlanSanitizer
	injection       *safety.InjectionDetector
	promptSanitizer *safety.PromptSanitizer
	clearer         *obstacle.Clearer
	resolver        *selector.Resolver
	telemetry       telemetry.Telemetry
	logger          ambient.Logger
	headless        bool

	onComplete func(run *model.TestRun)
}

// Deps bundles the collaborators an Executor is built from.
type Deps struct {
	Config          *config.Config
	AI              aiclient.Client
	Bridge          Bridge
	Planner         Planner
	Sanitizer       *safety.PlanSanitizer
	Injection       *safety.InjectionDetector
	PromptSanitizer *safety.PromptSanitizer
	Clearer         *obstacle.Clearer
	Resolver        *selector.Resolver
	Telemetry       telemetry.Telemetry
	Logger          ambient.Logger
	Headless        bool
	OnComplete      func(run *model.TestRun)
}

// NewExecutor wires the Run Executor from its dependencies, defaulting
// any collaborator the caller leaves nil to a safe no-op.
func NewExecutor(d Deps) *Executor {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.NoOpTelemetry{}
	}
	if d.Logger == nil {
		d.Logger = ambient.NoOpLogger{}
	}
	if d.Injection == nil {
		d.Injection = safety.NewInjectionDetector()
	}
	if d.Sanitizer == nil {
		d.Sanitizer = safety.NewPlanSanitizer(d.Config.MaxInputLength, d.Config.Prompt.MaxTotalLength, d.Logger)
	}
	if d.PromptSanitizer == nil {
		d.PromptSanitizer = safety.NewPromptSanitizer(d.Config.Prompt.MaxContentLength, d.Injection, d.Logger)
	}
	return &Executor{
		cfg:             d.Config,
		ai:              d.AI,
		bridge:          d.Bridge,
		planner:         d.Planner,
		sanitizer:       d.Sanitizer,
		injection:       d.Injection,
		promptSanitizer: d.PromptSanitizer,
		clearer:         d.Clearer,
		resolver:        d.Resolver,
		telemetry:       d.Telemetry,
		logger:          d.Logger,
		headless:        d.Headless,
		onComplete:      d.OnComplete,
	}
}

// Run executes one TestRun to a terminal status. The returned error is
// only non-nil for conditions outside the run's own failure reporting
// (e.g. a nil run); run.Status and run.FailureReason always carry the
// outcome that matters to callers.
func (e *Executor) Run(ctx context.Context, run *model.TestRun) error {
	if run == nil {
		return fmt.Errorf("run executor: nil run")
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}

	ctx, span := e.telemetry.StartSpan(ctx, "run.execute")
	defer span.End()
	span.SetAttribute("run.id", run.RunID)
	span.SetAttribute("run.tenant", run.TenantID)

	run.CreatedAt = time.Now()
	defer e.cleanup(ctx, run)

	// Pre-flight: screen goals for prompt injection before anything
	// else runs. A rejection here needs no browser cleanup.
	if !e.injection.AreSafe(run.Goals) {
		e.fail(run, model.FailureSecurityRejection, "goals failed prompt injection screening")
		return nil
	}
	if !e.sanitizer.ValidatePromptSize(PlannerSystemPrompt, run.Goals) {
		e.fail(run, model.FailureSecurityRejection, "planner input exceeds max prompt size")
		return nil
	}

	run.Status = model.RunRunning
	run.StartedAt = time.Now()
	deadline := run.StartedAt.Add(e.cfg.TestTimeout)

	if err := e.bridge.CreateContext(ctx, run.RunID, e.headless); err != nil {
		span.RecordError(err)
		e.fail(run, model.FailureSystemError, "browser context: "+err.Error())
		return nil
	}

	if time.Now().After(deadline) {
		e.fail(run, model.FailureTimeout, fmt.Sprintf("context creation phase, %s elapsed", time.Since(run.StartedAt)))
		return nil
	}

	steps, err := e.planner.Plan(ctx, run.TargetURL, run.Goals, run.Persona)
	if err != nil {
		span.RecordError(err)
		e.fail(run, model.FailureSystemError, "planning: "+err.Error())
		return nil
	}

	if time.Now().After(deadline) {
		e.fail(run, model.FailureTimeout, fmt.Sprintf("planning phase, %s elapsed", time.Since(run.StartedAt)))
		return nil
	}

	steps = e.sanitizer.Sanitize(steps)
	if len(steps) == 0 {
		e.fail(run, model.FailurePlanEmpty, "plan was empty after sanitization")
		return nil
	}
	if !e.sanitizer.IsSafe(steps, run.TargetURL) {
		e.fail(run, model.FailureSecurityRejection, "plan navigates outside the target domain")
		return nil
	}

	state := &loopState{
		queue:          model.NewActionQueue(),
		done:           model.NewDoneQueue(),
		retries:        model.NewRetryCounters(),
		dismissedTypes: make(map[string]struct{}),
	}
	state.queue.PushAll(steps)

	failureKind, failureDetail := e.runStepLoop(ctx, run, state, run.StartedAt, deadline, e.cfg.MaxLoopIterations)
	run.Steps = state.done.Snapshot()

	if run.Status != model.RunRunning {
		// Abort already set Status/FailureReason in dispatchWithRecord.
		return nil
	}

	if failureKind != "" {
		e.fail(run, failureKind, failureDetail)
		return nil
	}

	run.Status = model.RunCompleted
	return nil
}

func (e *Executor) fail(run *model.TestRun, kind model.FailureKind, description string) {
	run.Status = model.RunFailed
	run.FailureReason = ambient.FailureReason(kind, description)
}

// cleanup runs exactly once per run, on every exit path: it stamps
// EndedAt, closes the browser context, force-restarts the bridge if the
// close itself fails, and publishes the single completion event
// (spec.md §4.1's cleanup invariant).
func (e *Executor) cleanup(ctx context.Context, run *model.TestRun) {
	run.EndedAt = time.Now()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.bridge.CloseContext(closeCtx, run.RunID); err != nil {
		e.logger.Warn("browser context close failed, forcing bridge restart", map[string]interface{}{
			"run_id": run.RunID,
			"error":  err.Error(),
		})
		if rerr := e.bridge.ForceRestart(closeCtx); rerr != nil {
			e.logger.Error("bridge restart after close failure also failed", map[string]interface{}{
				"run_id": run.RunID,
				"error":  rerr.Error(),
			})
		}
	}

	if e.onComplete != nil {
		e.onComplete(run)
	}
}
