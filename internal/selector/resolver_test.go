package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/model"
	"github.com/brightloop/agentcore/internal/safety"
)

func TestResolver_AlreadyResolvedPassesThrough(t *testing.T) {
	r := NewResolver(NewSmartCache(10, time.Hour), aiclient.NewMockClient())
	step := model.ActionStep{StepID: "1", Target: "Login", Selector: "#login"}

	resolved, err := r.Resolve(context.Background(), "t1", step, model.DomSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, "#login", resolved.Selector)
}

func TestResolver_BlankTargetStaysUnresolved(t *testing.T) {
	r := NewResolver(NewSmartCache(10, time.Hour), aiclient.NewMockClient())
	step := model.ActionStep{StepID: "1", Action: model.ActionWait}

	resolved, err := r.Resolve(context.Background(), "t1", step, model.DomSnapshot{})
	require.NoError(t, err)
	assert.Empty(t, resolved.Selector)
}

func TestResolver_CacheHitAvoidsAICall(t *testing.T) {
	cache := NewSmartCache(10, time.Hour)
	cache.Set("t1", "Login", "https://example.com", "#cached-login")
	ai := aiclient.NewMockClient()
	r := NewResolver(cache, ai)

	step := model.ActionStep{StepID: "1", Target: "Login"}
	resolved, err := r.Resolve(context.Background(), "t1", step, model.DomSnapshot{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "#cached-login", resolved.Selector)
	assert.Equal(t, 0, ai.CallCount)
}

func TestResolver_CacheMissQueriesAI(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses("#ai-found")
	r := NewResolver(NewSmartCache(10, time.Hour), ai)

	step := model.ActionStep{StepID: "1", Target: "Submit"}
	resolved, err := r.Resolve(context.Background(), "t1", step, model.DomSnapshot{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "#ai-found", resolved.Selector)
	assert.Equal(t, 1, ai.CallCount)
}

func TestResolver_ConsentFallbackOnAIMiss(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetError(assertErr{})
	r := NewResolver(NewSmartCache(10, time.Hour), ai)

	step := model.ActionStep{StepID: "1", Target: "Accept all cookies"}
	resolved, err := r.Resolve(context.Background(), "t1", step, model.DomSnapshot{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "CONSENT_FALLBACK:Accept all cookies", resolved.Selector)
}

func TestResolver_NonConsentAIFailureIsUnresolved(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetError(assertErr{})
	r := NewResolver(NewSmartCache(10, time.Hour), ai)

	step := model.ActionStep{StepID: "1", Target: "Submit order"}
	resolved, err := r.Resolve(context.Background(), "t1", step, model.DomSnapshot{URL: "https://example.com"})
	require.NoError(t, err, "an unresolved step is not a hard error — the Step Loop routes it to the Reflector")
	assert.Empty(t, resolved.Selector)
}

type assertErr struct{}

func (assertErr) Error() string { return "ai backend unavailable" }

func TestResolver_WithSanitizerSandwichesDOMContentBeforeAICall(t *testing.T) {
	ai := aiclient.NewMockClient()
	ai.SetResponses("#ai-found")
	sanitizer := safety.NewPromptSanitizer(50000, nil, nil)
	r := NewResolver(NewSmartCache(10, time.Hour), ai).WithSanitizer(sanitizer)

	step := model.ActionStep{StepID: "1", Target: "Submit"}
	snapshot := model.DomSnapshot{URL: "https://example.com", Content: "<script>evil()</script>real content"}
	_, err := r.Resolve(context.Background(), "t1", step, snapshot)

	require.NoError(t, err)
	assert.Contains(t, ai.LastUser, "UNTRUSTED_PAGE_CONTENT")
	assert.NotContains(t, ai.LastUser, "evil()")
	assert.Contains(t, ai.LastUser, "real content")
}
