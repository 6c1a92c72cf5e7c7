package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brightloop/agentcore/internal/model"
)

// DecodeSnapshot extracts the canonical (content, url, title) triple
// from a tool result's JSON payload, regardless of escape sequences in
// the accessibility-tree text (spec.md §8 round-trip property).
func DecodeSnapshot(result ToolResult) (model.DomSnapshot, error) {
	if result.JSON == nil {
		return model.DomSnapshot{}, fmt.Errorf("tool result carries no snapshot payload")
	}
	var payload snapshotPayload
	if err := json.Unmarshal(result.JSON, &payload); err != nil {
		return model.DomSnapshot{}, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return model.DomSnapshot{
		Content:    payload.Content,
		URL:        payload.URL,
		Title:      payload.Title,
		CapturedAt: time.Now(),
	}, nil
}

// DecodePerformanceMetrics extracts performance metrics for the
// measure_performance action. The bridge nests the actual web-vitals
// fields under a "webVitals" key alongside an unrelated "success" flag
// (spec.md §8 scenario 6); this falls back to top-level lcp/cls if a
// future bridge version flattens the shape, but prefers the nested form
// so the outer envelope's own fields never leak into the metrics.
func DecodePerformanceMetrics(result ToolResult) (*model.PerformanceMetrics, error) {
	if result.JSON == nil {
		return nil, fmt.Errorf("tool result carries no performance payload")
	}

	var envelope struct {
		WebVitals *model.PerformanceMetrics `json:"webVitals"`
	}
	if err := json.Unmarshal(result.JSON, &envelope); err != nil {
		return nil, fmt.Errorf("decode performance metrics: %w", err)
	}
	if envelope.WebVitals != nil {
		var raw map[string]interface{}
		_ = json.Unmarshal(result.JSON, &raw)
		if wv, ok := raw["webVitals"].(map[string]interface{}); ok {
			envelope.WebVitals.Raw = wv
		}
		return envelope.WebVitals, nil
	}

	var metrics model.PerformanceMetrics
	if err := json.Unmarshal(result.JSON, &metrics); err != nil {
		return nil, fmt.Errorf("decode performance metrics: %w", err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(result.JSON, &raw)
	metrics.Raw = raw
	return &metrics, nil
}
