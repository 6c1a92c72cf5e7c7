package obstacle

import (
	"context"
	"time"

	"github.com/brightloop/agentcore/internal/ambient"
	"github.com/brightloop/agentcore/internal/bridge"
	"github.com/brightloop/agentcore/internal/model"
)

const preClickSettle = 250 * time.Millisecond
const postClickSettle = 500 * time.Millisecond

// Bridge is the subset of the browser bridge client the clearer needs.
type Bridge interface {
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (bridge.ToolResult, error)
}

// Clearer implements the detect -> dismiss -> verify loop of spec.md §4.3.
type Clearer struct {
	detector          *Detector
	bridge            Bridge
	logger            ambient.Logger
	maxAttemptsPerRun int
}

// NewClearer builds a Clearer bounded by maxAttempts per step.
func NewClearer(detector *Detector, br Bridge, logger ambient.Logger, maxAttempts int) *Clearer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = ambient.NoOpLogger{}
	}
	return &Clearer{detector: detector, bridge: br, logger: logger, maxAttemptsPerRun: maxAttempts}
}

// Result carries the obstacle clearer's output for one step.
type Result struct {
	Snapshot   model.DomSnapshot
	AuditSteps []model.ExecutedStep
}

// ClearOnce runs the bounded detect/dismiss/verify loop starting from
// snapshot. dismissedTypes is the run-scoped set from spec.md §3; it is
// mutated in place and must be reused across steps within the same run.
func (c *Clearer) ClearOnce(ctx context.Context, snapshot model.DomSnapshot, dismissedTypes map[string]struct{}) (Result, error) {
	attempts := make(map[string]int)
	fallbackTried := false
	result := Result{Snapshot: snapshot}

	for i := 0; i < c.maxAttemptsPerRun; i++ {
		if err := ctx.Err(); err != nil {
			break
		}

		obstacle, err := c.detector.Detect(ctx, result.Snapshot)
		if err != nil {
			c.logger.Warn("obstacle detection failed", map[string]interface{}{"error": err.Error()})
			break
		}

		if obstacle == nil {
			if !fallbackTried {
				fallbackTried = true
				changed, newSnapshot, auditStep, ferr := c.runFallbackPass(ctx, result.Snapshot)
				if ferr != nil {
					c.logger.Warn("obstacle fallback pass failed", map[string]interface{}{"error": ferr.Error()})
					break
				}
				if changed {
					result.Snapshot = newSnapshot
					result.AuditSteps = append(result.AuditSteps, auditStep)
					continue
				}
				foldIntoDismissed(attempts, dismissedTypes)
				return result, nil
			}
			foldIntoDismissed(attempts, dismissedTypes)
			return result, nil
		}

		if _, already := dismissedTypes[obstacle.Type]; already {
			return result, nil
		}

		if attempts[obstacle.Type] >= 2 {
			dismissedTypes[obstacle.Type] = struct{}{}
			continue
		}

		if attempts[obstacle.Type] > 0 && obstacle.Confidence == model.ConfidenceLow {
			dismissedTypes[obstacle.Type] = struct{}{}
			continue
		}

		selector := SanitizeSelector(obstacle.DismissSelector, obstacle.DismissText)
		useJS := attempts[obstacle.Type] > 0

		if err := ambient.Sleep(ctx, preClickSettle); err != nil {
			break
		}
		clickErr := c.click(ctx, selector, obstacle.DismissText, useJS)
		attempts[obstacle.Type]++
		if clickErr != nil {
			c.logger.Warn("obstacle dismiss click failed", map[string]interface{}{
				"type":  obstacle.Type,
				"error": clickErr.Error(),
			})
			continue
		}

		if err := ambient.Sleep(ctx, postClickSettle); err != nil {
			break
		}
		newSnapshot, snapErr := c.snapshot(ctx)
		if snapErr != nil {
			c.logger.Warn("obstacle re-snapshot failed", map[string]interface{}{"error": snapErr.Error()})
			continue
		}
		result.Snapshot = newSnapshot
		result.AuditSteps = append(result.AuditSteps, autoDismissStep(obstacle.Type, snapshot, newSnapshot))
	}

	foldIntoDismissed(attempts, dismissedTypes)
	return result, nil
}

func (c *Clearer) click(ctx context.Context, selector, dismissText string, useJS bool) error {
	if !useJS {
		_, err := c.bridge.CallTool(ctx, "click", map[string]interface{}{"selector": selector})
		return err
	}
	script := buildJSClickScript(selector, dismissText)
	_, err := c.bridge.CallTool(ctx, "evaluate", map[string]interface{}{"script": script})
	return err
}

func (c *Clearer) snapshot(ctx context.Context) (model.DomSnapshot, error) {
	result, err := c.bridge.CallTool(ctx, "browser_snapshot", nil)
	if err != nil {
		return model.DomSnapshot{}, err
	}
	return bridge.DecodeSnapshot(result)
}

func (c *Clearer) runFallbackPass(ctx context.Context, snapshot model.DomSnapshot) (bool, model.DomSnapshot, model.ExecutedStep, error) {
	for _, fb := range fallbackSelectors {
		script := buildFallbackClickScript(fb.selector)
		res, err := c.bridge.CallTool(ctx, "evaluate", map[string]interface{}{"script": script})
		if err != nil {
			continue
		}
		if !resultSaysClicked(res) {
			continue
		}
		if err := ambient.Sleep(ctx, postClickSettle); err != nil {
			return false, snapshot, model.ExecutedStep{}, err
		}
		newSnapshot, err := c.snapshot(ctx)
		if err != nil {
			return false, snapshot, model.ExecutedStep{}, err
		}
		return true, newSnapshot, autoDismissStep(fb.name, snapshot, newSnapshot), nil
	}
	return false, snapshot, model.ExecutedStep{}, nil
}

func foldIntoDismissed(attempts map[string]int, dismissedTypes map[string]struct{}) {
	for t := range attempts {
		dismissedTypes[t] = struct{}{}
	}
}

func autoDismissStep(obstacleType string, before, after model.DomSnapshot) model.ExecutedStep {
	afterCopy := after
	return model.ExecutedStep{
		Step: model.ActionStep{
			StepID: "auto-dismiss-" + obstacleType,
			Action: model.ActionClick,
			Target: "Auto-dismiss: " + obstacleType,
		},
		Before:      before,
		After:       &afterCopy,
		Disposition: model.DispositionSuccess,
		Timestamp:   time.Now(),
	}
}
