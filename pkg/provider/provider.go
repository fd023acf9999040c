// Package provider contains adapters for the external AI backends the
// orchestrator routes between. Each adapter normalizes one provider's
// request/response cycle into a genroute.Result; failures surface as plain
// errors for the routing loop to absorb.
package provider

import (
	"context"

	"github.com/cinexa/genroute/pkg/genroute"
)

// Params carries the provider-agnostic knobs of a generation call. The
// prompt arrives already formatted by the prompt formatter.
type Params struct {
	Model       string
	AspectRatio string
	Count       int
	JSONOutput  bool
}

// Adapter is one external AI backend.
type Adapter interface {
	// Generate sends a formatted prompt to the backend and normalizes the
	// response.
	Generate(ctx context.Context, mode genroute.Mode, prompt string, params Params) (*genroute.Result, error)

	// Name returns the adapter's identifier, matching its registry entry.
	Name() string
}

// Set is a collection of adapters keyed by name, used to bind registry
// descriptors to concrete backends.
type Set map[string]Adapter

// Bind returns a genroute.ProviderFunc dispatching to the named adapter.
// An unknown provider id fails the attempt, which the routing loop treats
// like any other unavailable provider. A transient failure (timeout, 429,
// 5xx) gets one immediate same-provider retry before the failure is
// reported to the loop.
func (s Set) Bind(mode genroute.Mode, prompt string, params Params) genroute.ProviderFunc {
	return func(ctx context.Context, p genroute.Provider) (*genroute.Result, error) {
		a, ok := s[p.ID]
		if !ok {
			return nil, &Error{Err: errUnknownAdapter(p.ID)}
		}
		res, err := a.Generate(ctx, mode, prompt, params)
		if err != nil && IsTransient(err) && ctx.Err() == nil {
			res, err = a.Generate(ctx, mode, prompt, params)
		}
		return res, err
	}
}
