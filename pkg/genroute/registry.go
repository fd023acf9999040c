package genroute

import "fmt"

// Registry is a static ordered list of provider descriptors. Order is a
// strict fallback priority: the orchestrator tries providers front to back
// with no load balancing.
type Registry struct {
	providers []Provider
}

// NewRegistry builds a registry from descriptors in priority order.
func NewRegistry(providers ...Provider) (*Registry, error) {
	seen := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		if p.ID == "" {
			return nil, fmt.Errorf("provider with empty id")
		}
		if p.Cost < 0 {
			return nil, fmt.Errorf("provider %s: negative cost", p.ID)
		}
		if len(p.Modes) == 0 {
			return nil, fmt.Errorf("provider %s: no modes", p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("provider %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return &Registry{providers: providers}, nil
}

// DefaultRegistry returns the standard provider table. Cheapest first;
// pollinations is free and serves as the wire of last resort for visuals.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(
		Provider{ID: "gemini", Cost: 1, Modes: []Mode{ModeText, ModeSEO, ModeImage, ModeThumbnail, ModeVideo}},
		Provider{ID: "stability", Cost: 2, Modes: []Mode{ModeImage, ModeThumbnail}},
		Provider{ID: "openrouter", Cost: 3, Modes: []Mode{ModeText, ModeSEO}},
		Provider{ID: "openai", Cost: 4, Modes: []Mode{ModeText, ModeSEO, ModeImage, ModeThumbnail}},
		Provider{ID: "pollinations", Cost: 0, Modes: []Mode{ModeImage, ModeThumbnail}},
	)
	return r
}

// ForMode returns the providers serving mode, preserving priority order.
func (r *Registry) ForMode(mode Mode) []Provider {
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Serves(mode) {
			out = append(out, p)
		}
	}
	return out
}

// Providers returns the full ordered list.
func (r *Registry) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// Lookup finds a provider by id.
func (r *Registry) Lookup(id string) (Provider, bool) {
	for _, p := range r.providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}
