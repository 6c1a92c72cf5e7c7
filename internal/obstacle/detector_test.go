package obstacle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/model"
	"github.com/brightloop/agentcore/internal/safety"
)

func TestDetector_NoObstaclePresentReturnsNil(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses(`{"present": false}`)
	d := NewDetector(ai)

	info, err := d.Detect(context.Background(), model.DomSnapshot{Content: "plain page"})
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestDetector_ObstaclePresentIsParsed(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses(`{"present": true, "type": "cookie_consent", "description": "banner", "dismiss_selector": "#accept", "dismiss_text": "Accept All", "confidence": "High"}`)
	d := NewDetector(ai)

	info, err := d.Detect(context.Background(), model.DomSnapshot{Content: "a page with a banner"})
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "cookie_consent", info.Type)
	assert.Equal(t, model.ConfidenceHigh, info.Confidence)
}

func TestDetector_WithSanitizerSandwichesDOMContentBeforeAICall(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses(`{"present": false}`)
	sanitizer := safety.NewPromptSanitizer(50000, nil, nil)
	d := NewDetector(ai).WithSanitizer(sanitizer)

	snapshot := model.DomSnapshot{Content: "<script>evil()</script>real content"}
	_, err := d.Detect(context.Background(), snapshot)

	require.NoError(t, err)
	assert.Contains(t, ai.LastUser, "UNTRUSTED_PAGE_CONTENT")
	assert.NotContains(t, ai.LastUser, "evil()")
	assert.Contains(t, ai.LastUser, "real content")
}
