package aiclient

import (
	"context"
	"errors"
)

// MockClient is a scriptable Client for tests, following the teacher's
// ai/providers/mock pattern: a queue of canned responses, an optional
// forced error, and call bookkeeping for assertions.
type MockClient struct {
	Responses     []string
	ResponseIndex int
	Err           error
	CallCount     int
	LastSystem    string
	LastUser      string
	LastOptions   Options
}

// NewMockClient returns a MockClient that answers "Mock response" once.
func NewMockClient() *MockClient {
	return &MockClient{Responses: []string{"Mock response"}}
}

func (c *MockClient) Call(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	c.CallCount++
	c.LastSystem = systemPrompt
	c.LastUser = userPrompt
	c.LastOptions = opts

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if c.Err != nil {
		return "", c.Err
	}
	if c.ResponseIndex >= len(c.Responses) {
		return "", errors.New("mock client: no more responses queued")
	}

	resp := c.Responses[c.ResponseIndex]
	c.ResponseIndex++
	return resp, nil
}

// SetResponses replaces the response queue and resets the cursor.
func (c *MockClient) SetResponses(responses ...string) {
	c.Responses = responses
	c.ResponseIndex = 0
}

// SetError forces every subsequent Call to fail with err.
func (c *MockClient) SetError(err error) {
	c.Err = err
}

// Reset clears call bookkeeping and the forced error.
func (c *MockClient) Reset() {
	c.ResponseIndex = 0
	c.CallCount = 0
	c.LastSystem = ""
	c.LastUser = ""
	c.LastOptions = Options{}
	c.Err = nil
}
