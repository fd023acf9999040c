package provider

import (
	"context"
	"fmt"

	"github.com/cinexa/genroute/pkg/genroute"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	name      string
	responses map[string]*genroute.Result
	err       error
}

// NewMockAdapter creates a mock adapter answering for the given name.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		name:      name,
		responses: make(map[string]*genroute.Result),
	}
}

// Respond registers a canned result for a prompt.
func (a *MockAdapter) Respond(prompt string, res *genroute.Result) *MockAdapter {
	a.responses[prompt] = res
	return a
}

// Fail makes every Generate call return err.
func (a *MockAdapter) Fail(err error) *MockAdapter {
	a.err = err
	return a
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string { return a.name }

// Generate returns the canned result for the prompt, or a deterministic
// synthetic one.
func (a *MockAdapter) Generate(_ context.Context, mode genroute.Mode, prompt string, _ Params) (*genroute.Result, error) {
	if a.err != nil {
		return nil, a.err
	}
	if res, ok := a.responses[prompt]; ok {
		return res, nil
	}
	switch mode {
	case genroute.ModeText, genroute.ModeSEO:
		return &genroute.Result{Text: fmt.Sprintf("mock response: %s", prompt)}, nil
	default:
		return &genroute.Result{URLs: []string{fmt.Sprintf("https://mock.local/%s/%s", a.name, mode)}}, nil
	}
}
