package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightloop/agentcore/internal/model"
)

func newSanitizer() *PlanSanitizer {
	return NewPlanSanitizer(20, 15000, nil)
}

func TestPlanSanitizer_DropsBlankNavigate(t *testing.T) {
	s := newSanitizer()
	steps := []model.ActionStep{
		{StepID: "1", Action: model.ActionNavigate, Value: ""},
		{StepID: "2", Action: model.ActionClick, Target: "Login"},
	}
	out := s.Sanitize(steps)
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].StepID)
}

func TestPlanSanitizer_DropsOverlongTypeValue(t *testing.T) {
	s := newSanitizer()
	steps := []model.ActionStep{
		{StepID: "1", Action: model.ActionType, Value: strings.Repeat("a", 21)},
		{StepID: "2", Action: model.ActionType, Value: strings.Repeat("a", 5)},
	}
	out := s.Sanitize(steps)
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].StepID)
}

func TestPlanSanitizer_IsIdempotent(t *testing.T) {
	s := newSanitizer()
	steps := []model.ActionStep{
		{StepID: "1", Action: model.ActionNavigate, Value: ""},
		{StepID: "2", Action: model.ActionType, Value: strings.Repeat("a", 30)},
		{StepID: "3", Action: model.ActionClick, Target: "Login"},
	}
	once := s.Sanitize(steps)
	twice := s.Sanitize(once)
	assert.Equal(t, once, twice)
}

func TestPlanSanitizer_IsSafe_RejectsOffDomainNavigate(t *testing.T) {
	s := newSanitizer()
	steps := []model.ActionStep{
		{StepID: "1", Action: model.ActionNavigate, Value: "http://169.254.169.254/latest/meta-data"},
	}
	assert.False(t, s.IsSafe(steps, "example.com"))
}

func TestPlanSanitizer_IsSafe_AllowsSubdomainAndRelative(t *testing.T) {
	s := newSanitizer()
	steps := []model.ActionStep{
		{StepID: "1", Action: model.ActionNavigate, Value: "https://checkout.example.com/cart"},
		{StepID: "2", Action: model.ActionNavigate, Value: "/relative/path"},
	}
	assert.True(t, s.IsSafe(steps, "example.com"))
}

func TestPlanSanitizer_ValidatePromptSize(t *testing.T) {
	s := NewPlanSanitizer(20, 10, nil)
	assert.True(t, s.ValidatePromptSize("abc", []string{"de"}))
	assert.False(t, s.ValidatePromptSize("abcdefgh", []string{"abcd"}))
}
