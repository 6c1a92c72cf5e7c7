package run

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brightloop/agentcore/internal/aiclient"
	"github.com/brightloop/agentcore/internal/model"
)

// Planner turns (target URL, goals, persona) into a raw, unsanitized
// plan of ActionSteps. The core does not author prompts beyond
// assembling this one message; planning itself is an AI call.
type Planner interface {
	Plan(ctx context.Context, targetURL string, goals []string, persona string) ([]model.ActionStep, error)
}

// AIPlanner is the default Planner, backed by the AI chat port.
type AIPlanner struct {
	ai aiclient.Client
}

// NewAIPlanner builds an AIPlanner over the given client.
func NewAIPlanner(ai aiclient.Client) *AIPlanner {
	return &AIPlanner{ai: ai}
}

const plannerTemperature = 0.2

// PlannerSystemPrompt is the fixed system prompt AIPlanner sends the AI
// backend. It is exported so the Run Executor can run
// validate_prompt_size (spec.md §4.4(b)) against the exact prompt the
// planner will issue, before ever making the call.
const PlannerSystemPrompt = "You translate browser test goals into a JSON array of atomic actions. " +
	`Each action has: action (navigate|click|type|hover|wait|screenshot|scroll|measure_performance), ` +
	`target (natural-language element description, may be blank), value (optional), params (optional object). ` +
	"Respond with only the JSON array."

func (p *AIPlanner) Plan(ctx context.Context, targetURL string, goals []string, persona string) ([]model.ActionStep, error) {
	systemPrompt := PlannerSystemPrompt
	userPrompt := fmt.Sprintf("Target URL: %s\nPersona: %s\nGoals:\n", targetURL, persona)
	for i, g := range goals {
		userPrompt += fmt.Sprintf("%d. %s\n", i+1, g)
	}

	raw, err := p.ai.Call(ctx, systemPrompt, userPrompt, aiclient.Options{Temperature: plannerTemperature})
	if err != nil {
		return nil, fmt.Errorf("planner call: %w", err)
	}

	var rawSteps []struct {
		Action string            `json:"action"`
		Target string            `json:"target"`
		Value  string            `json:"value"`
		Params map[string]string `json:"params"`
	}
	if err := json.Unmarshal([]byte(raw), &rawSteps); err != nil {
		return nil, fmt.Errorf("decode planner response: %w", err)
	}

	steps := make([]model.ActionStep, 0, len(rawSteps))
	for i, rs := range rawSteps {
		steps = append(steps, model.ActionStep{
			StepID: fmt.Sprintf("step-%d", i+1),
			Action: model.Action(rs.Action),
			Target: rs.Target,
			Value:  rs.Value,
			Params: rs.Params,
		})
	}
	return steps, nil
}
