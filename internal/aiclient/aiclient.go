// Package aiclient defines the external AI chat port the planner,
// obstacle detector, selector resolver and step-suggestion call go
// through, narrowed from the teacher's core.AIClient to
// the single operation this module needs.
package aiclient

import "context"

// Options configures a single chat call.
type Options struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Client is the external AI collaborator: given a system prompt, a user
// prompt, and generation options, it returns the model's text response.
// Implementations wrap whatever backend the embedding application picks
// (Anthropic, Bedrock, a local model) — this module depends only on the
// interface.
type Client interface {
	Call(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
}
