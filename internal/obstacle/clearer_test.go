package obstacle

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/bridge"
	"github.com/brightloop/agentcore/internal/model"
)

// fakeBridge answers CallTool by looking up the tool name (and, for
// "evaluate", inspecting the script) against a caller-supplied plan.
type fakeBridge struct {
	calls      []string
	snapshotAt func(n int) model.DomSnapshot
	snapCalls  int
	clickErr   error
	evalResult string // what every "evaluate" call reports, e.g. "clicked" or "not found"
}

func snapshotResult(s model.DomSnapshot) bridge.ToolResult {
	payload, _ := json.Marshal(map[string]string{"content": s.Content, "url": s.URL, "title": s.Title})
	return bridge.ToolResult{JSON: payload}
}

func (f *fakeBridge) CallTool(ctx context.Context, name string, args map[string]interface{}) (bridge.ToolResult, error) {
	f.calls = append(f.calls, name)
	switch name {
	case "browser_snapshot":
		f.snapCalls++
		return snapshotResult(f.snapshotAt(f.snapCalls)), nil
	case "click":
		return bridge.ToolResult{}, f.clickErr
	case "evaluate":
		out, _ := json.Marshal(f.evalResult)
		return bridge.ToolResult{JSON: out}, nil
	default:
		return bridge.ToolResult{}, fmt.Errorf("unexpected tool %s", name)
	}
}

func detectorResponse(present bool, obstacleType, selector, text string, confidence model.ObstacleConfidence) string {
	if !present {
		return `{"present": false}`
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"present":          true,
		"type":             obstacleType,
		"description":      "a banner",
		"dismiss_selector": selector,
		"dismiss_text":     text,
		"confidence":       confidence,
	})
	return string(payload)
}

func TestClearer_DismissesDetectedObstacleThenStops(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses(
		detectorResponse(true, "cookie_consent", "#accept", "Accept", model.ConfidenceHigh),
		detectorResponse(false, "", "", "", ""),
	)
	detector := NewDetector(ai)

	snapshots := []model.DomSnapshot{
		{Content: "before"},  // index 1 (after dismiss click)
		{Content: "cleared"}, // unused
	}
	fb := &fakeBridge{
		snapshotAt: func(n int) model.DomSnapshot { return snapshots[0] },
		evalResult: "not found",
	}

	clearer := NewClearer(detector, fb, nil, 3)
	dismissed := make(map[string]struct{})

	result, err := clearer.ClearOnce(context.Background(), model.DomSnapshot{Content: "start"}, dismissed)
	require.NoError(t, err)
	assert.Contains(t, dismissed, "cookie_consent", "obstacle type must be folded into the run-scoped dismissed set")
	require.Len(t, result.AuditSteps, 1)
	assert.Contains(t, result.AuditSteps[0].Step.Target, "cookie_consent")
}

func TestClearer_AlreadyDismissedTypeShortCircuits(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses(detectorResponse(true, "cookie_consent", "#accept", "Accept", model.ConfidenceHigh))
	detector := NewDetector(ai)

	fb := &fakeBridge{snapshotAt: func(n int) model.DomSnapshot { return model.DomSnapshot{} }}
	clearer := NewClearer(detector, fb, nil, 3)

	dismissed := map[string]struct{}{"cookie_consent": {}}
	_, err := clearer.ClearOnce(context.Background(), model.DomSnapshot{Content: "start"}, dismissed)
	require.NoError(t, err)

	for _, call := range fb.calls {
		assert.NotEqual(t, "click", call, "a second detection cycle for an already-dismissed type must not click")
	}
}

func TestClearer_LowConfidenceRepeatIsTreatedAsFalsePositive(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses(
		detectorResponse(true, "popup", "#x", "Close", model.ConfidenceHigh),
		detectorResponse(true, "popup", "#x", "Close", model.ConfidenceLow),
		detectorResponse(false, "", "", "", ""),
	)
	detector := NewDetector(ai)

	fb := &fakeBridge{snapshotAt: func(n int) model.DomSnapshot { return model.DomSnapshot{Content: "after"} }}
	clearer := NewClearer(detector, fb, nil, 5)
	dismissed := make(map[string]struct{})

	_, err := clearer.ClearOnce(context.Background(), model.DomSnapshot{Content: "start"}, dismissed)
	require.NoError(t, err)
	assert.Contains(t, dismissed, "popup")
}

func TestClearer_FallbackPassUsedWhenDetectorFindsNothing(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses(
		detectorResponse(false, "", "", "", ""),
		detectorResponse(false, "", "", "", ""),
	)
	detector := NewDetector(ai)

	fb := &fakeBridge{
		snapshotAt: func(n int) model.DomSnapshot { return model.DomSnapshot{Content: "after-fallback"} },
		evalResult: "clicked",
	}
	clearer := NewClearer(detector, fb, nil, 3)
	dismissed := make(map[string]struct{})

	result, err := clearer.ClearOnce(context.Background(), model.DomSnapshot{Content: "start"}, dismissed)
	require.NoError(t, err)
	assert.Equal(t, "after-fallback", result.Snapshot.Content)
	require.Len(t, result.AuditSteps, 1)
}
