// Package obstacle implements the proactive obstacle-clearing subsystem:
// detect blocking overlays, dismiss them, and verify they're gone before
// a planned step runs (spec.md §4.3).
package obstacle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/model"
)

// Sanitizer is the subset of the Prompt Sanitizer the detector needs: it
// wraps untrusted page content in the sandwich-defense delimiters
// (spec.md §4.4(c)) before the content reaches the AI backend.
type Sanitizer interface {
	Sandwich(label, content string) string
}

// Detector asks the AI backend whether a snapshot shows a blocking
// overlay, at the fixed temperature spec.md §4.3 names for detection.
type Detector struct {
	ai        aiclient.Client
	sanitizer Sanitizer
}

// NewDetector builds a Detector over the given AI client.
func NewDetector(ai aiclient.Client) *Detector {
	return &Detector{ai: ai}
}

// WithSanitizer attaches a Prompt Sanitizer so the page content handed to
// the AI is wrapped in the sandwich defense. Returns d for chaining.
func (d *Detector) WithSanitizer(sanitizer Sanitizer) *Detector {
	d.sanitizer = sanitizer
	return d
}

const detectorTemperature = 0.1

// Detect returns the obstacle present in the snapshot, or nil if none is
// found.
func (d *Detector) Detect(ctx context.Context, snapshot model.DomSnapshot) (*model.ObstacleInfo, error) {
	domText := snapshot.Content
	if d.sanitizer != nil {
		domText = d.sanitizer.Sandwich("accessibility-tree", domText)
	}
	systemPrompt := "You detect a single blocking overlay (cookie consent, newsletter popup, TOS dialog, chat widget) in a page's accessibility tree. Respond with JSON only."
	userPrompt := fmt.Sprintf(
		"URL: %s\nTitle: %s\nAccessibility tree:\n%s\n\n"+
			`Respond with {"present": true, "type": "...", "description": "...", "dismiss_selector": "...", "dismiss_text": "...", "confidence": "High|Medium|Low"} `+
			`or {"present": false} if no obstacle blocks interaction.`,
		snapshot.URL, snapshot.Title, domText,
	)

	raw, err := d.ai.Call(ctx, systemPrompt, userPrompt, aiclient.Options{Temperature: detectorTemperature})
	if err != nil {
		return nil, fmt.Errorf("obstacle detector call: %w", err)
	}

	var parsed struct {
		Present         bool                     `json:"present"`
		Type            string                   `json:"type"`
		Description     string                   `json:"description"`
		DismissSelector string                   `json:"dismiss_selector"`
		DismissText     string                   `json:"dismiss_text"`
		Confidence      model.ObstacleConfidence `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("decode obstacle detector response: %w", err)
	}
	if !parsed.Present {
		return nil, nil
	}
	return &model.ObstacleInfo{
		Type:            parsed.Type,
		Description:     parsed.Description,
		DismissSelector: parsed.DismissSelector,
		DismissText:     parsed.DismissText,
		Confidence:      parsed.Confidence,
	}, nil
}
