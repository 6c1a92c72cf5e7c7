package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/model"
)

var consentWords = []string{"consent", "cookie", "accept", "agree", "privacy", "gdpr"}

// Sanitizer is the subset of the Prompt Sanitizer the resolver needs: it
// wraps untrusted page content in the sandwich-defense delimiters
// (spec.md §4.4(c)) before the content reaches the AI backend.
type Sanitizer interface {
	Sandwich(label, content string) string
}

// Resolver implements the Selector Resolver of spec.md §4.7.
type Resolver struct {
	cache     *SmartCache
	ai        aiclient.Client
	sanitizer Sanitizer
}

// NewResolver builds a Resolver over the given cache and AI client.
func NewResolver(cache *SmartCache, ai aiclient.Client) *Resolver {
	return &Resolver{cache: cache, ai: ai}
}

// WithSanitizer attaches a Prompt Sanitizer so the accessibility tree
// handed to the AI is wrapped in the sandwich defense. Returns r for
// chaining.
func (r *Resolver) WithSanitizer(sanitizer Sanitizer) *Resolver {
	r.sanitizer = sanitizer
	return r
}

// Resolve fills in step.Selector following the policy in spec.md §4.7.
// It returns the step unchanged (selector may remain blank) when the
// target description itself is blank — callers must treat a blank
// Selector as "unresolved" and route to the Reflector directly.
func (r *Resolver) Resolve(ctx context.Context, tenant string, step model.ActionStep, snapshot model.DomSnapshot) (model.ActionStep, error) {
	if step.Selector != "" {
		return step, nil
	}
	if strings.TrimSpace(step.Target) == "" {
		return step, nil
	}

	if cached, ok := r.cache.Get(tenant, step.Target, snapshot.URL); ok {
		return step.WithSelector(cached), nil
	}

	resolved, err := r.queryAI(ctx, step.Target, snapshot)
	if err == nil && resolved != "" {
		r.cache.Set(tenant, step.Target, snapshot.URL, resolved)
		return step.WithSelector(resolved), nil
	}

	if looksLikeConsentTarget(step.Target) {
		fallback := "CONSENT_FALLBACK:" + step.Target
		return step.WithSelector(fallback), nil
	}

	// No match and no consent fallback applies: the step stays
	// unresolved (blank selector). This is not treated as a hard error
	// — the caller routes an unresolved step straight to the Reflector
	// with an "element not found" outcome, per spec.md §4.2 step 3.
	return step, nil
}

// RecordOutcome reports whether the resolved selector worked, biasing
// future cache lookups.
func (r *Resolver) RecordOutcome(tenant string, step model.ActionStep, url string, success bool) {
	r.cache.RecordOutcome(tenant, step.Target, url, success)
}

func (r *Resolver) queryAI(ctx context.Context, target string, snapshot model.DomSnapshot) (string, error) {
	domText := snapshot.Content
	if r.sanitizer != nil {
		domText = r.sanitizer.Sandwich("accessibility-tree", domText)
	}
	systemPrompt := "You locate a single element in an accessibility tree and respond with only its ref selector, nothing else."
	userPrompt := fmt.Sprintf(
		"Page URL: %s\nPage title: %s\nAccessibility tree:\n%s\n\nFind the element matching: %q\nRespond with only the selector.",
		snapshot.URL, snapshot.Title, domText, target,
	)
	resp, err := r.ai.Call(ctx, systemPrompt, userPrompt, aiclient.Options{Temperature: 0.1})
	if err != nil {
		return "", err
	}
	resp = strings.TrimSpace(resp)
	if resp == "" || strings.EqualFold(resp, "none") || strings.EqualFold(resp, "not found") {
		return "", fmt.Errorf("selector resolver: no match")
	}
	return resp, nil
}

func looksLikeConsentTarget(target string) bool {
	lower := strings.ToLower(target)
	for _, w := range consentWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
