package api

import (
	"net/http"

	"github.com/cinexa/genroute/pkg/genroute"
	"github.com/cinexa/genroute/pkg/provider"
)

// Config holds HTTP handler configuration.
type Config struct {
	// Orchestrator routes generation requests. Required.
	Orchestrator *genroute.Orchestrator

	// Storage backs the read-only listing endpoints. Required.
	Storage genroute.Storage

	// Adapters binds registry provider ids to concrete backends. Required.
	Adapters provider.Set

	// Formatter builds provider prompts. Defaults to genroute.NewFormatter().
	Formatter *genroute.Formatter

	// GetUserID extracts the acting user from a request. Defaults to the
	// X-User-ID header. Authentication itself is the caller's problem.
	GetUserID func(r *http.Request) string

	// Logger is used for structured logging (default: NoopLogger).
	Logger genroute.Logger
}

func (c *Config) applyDefaults() {
	if c.Formatter == nil {
		c.Formatter = genroute.NewFormatter()
	}
	if c.GetUserID == nil {
		c.GetUserID = func(r *http.Request) string {
			return r.Header.Get("X-User-ID")
		}
	}
	if c.Logger == nil {
		c.Logger = &genroute.NoopLogger{}
	}
}
