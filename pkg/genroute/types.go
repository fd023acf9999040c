package genroute

import (
	"context"
	"time"
)

// Mode identifies the kind of creative output a request wants.
type Mode string

const (
	ModeText      Mode = "text"
	ModeSEO       Mode = "seo"
	ModeImage     Mode = "image"
	ModeThumbnail Mode = "thumbnail"
	ModeVideo     Mode = "video"
)

// Valid reports whether the mode is one this package routes.
func (m Mode) Valid() bool {
	switch m {
	case ModeText, ModeSEO, ModeImage, ModeThumbnail, ModeVideo:
		return true
	}
	return false
}

// RecordType returns the generation-record type for the mode, or "" for
// modes (text, seo) that do not produce a stored artifact.
func (m Mode) RecordType() RecordType {
	switch m {
	case ModeImage:
		return RecordTypeImage
	case ModeThumbnail:
		return RecordTypeThumbnail
	case ModeVideo:
		return RecordTypeVideo
	}
	return ""
}

// PlanType is a user's subscription plan.
type PlanType string

const (
	PlanFree    PlanType = "FREE"
	PlanPlus    PlanType = "PLUS"
	PlanPremium PlanType = "PREMIUM"
)

// Plan describes what a subscription plan grants.
type Plan struct {
	ID               PlanType
	Name             string
	PriceUSD         int
	Credits          int
	MaxVideoDuration int // seconds
	HasWatermark     bool
}

// Plans is the static plan catalog.
var Plans = map[PlanType]Plan{
	PlanFree:    {ID: PlanFree, Name: "Free Starter", PriceUSD: 0, Credits: 10, MaxVideoDuration: 5, HasWatermark: true},
	PlanPlus:    {ID: PlanPlus, Name: "Plus Creator", PriceUSD: 29, Credits: 130, MaxVideoDuration: 20},
	PlanPremium: {ID: PlanPremium, Name: "Pro Studio", PriceUSD: 99, Credits: 1000, MaxVideoDuration: 80},
}

// User is an account holding a prepaid credit balance.
// The balance is owned by the ledger; nothing else mutates it directly.
type User struct {
	ID        string
	Email     string
	Name      string
	Plan      PlanType
	Credits   int
	IsAdmin   bool
	IsActive  bool
	AvatarURL string
}

// Provider describes one external AI backend: a stable identifier, the
// credit cost of a single successful call, and the modes it can serve.
// Registry order defines fallback priority.
type Provider struct {
	ID    string
	Cost  int
	Modes []Mode
}

// Serves reports whether the provider can handle the given mode.
func (p Provider) Serves(mode Mode) bool {
	for _, m := range p.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// SEOData is the structured output of an SEO generation.
type SEOData struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Result is the normalized outcome of a generation, identical in shape
// whether it came from a provider, the cache, or a fallback value.
// Provenance records where it actually came from; only internal logs
// should care.
type Result struct {
	Text       string   `json:"text,omitempty"`
	URLs       []string `json:"urls,omitempty"`
	SEO        *SEOData `json:"seo,omitempty"`
	Provenance string   `json:"-"`
}

// clone returns a shallow copy with its own URL slice so cached results
// cannot be mutated by callers.
func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	cp := *r
	if r.URLs != nil {
		cp.URLs = append([]string(nil), r.URLs...)
	}
	return &cp
}

// ProviderFunc is the injected provider-specific request/response cycle:
// prompt formatting, the external call, and response normalization.
type ProviderFunc func(ctx context.Context, p Provider) (*Result, error)

// Request is a single orchestrated generation.
type Request struct {
	UserID string
	Mode   Mode

	// Prompt is the raw user prompt, kept on the request for record keeping.
	Prompt string

	// CacheKeyInputs are the semantic inputs of the request. Together with
	// Mode they form the cache fingerprint, so two requests that should
	// yield the same artifact must produce the same map.
	CacheKeyInputs map[string]string

	// Invoke runs the provider-specific cycle for one provider.
	Invoke ProviderFunc

	// Fallback, when non-nil, is returned as a degraded result instead of
	// an error when every provider is exhausted.
	Fallback *Result

	// Settings are persisted on the generation record verbatim.
	Settings RecordSettings
}

// RecordType is the artifact category of a generation record.
type RecordType string

const (
	RecordTypeVideo     RecordType = "VIDEO"
	RecordTypeImage     RecordType = "IMAGE"
	RecordTypeThumbnail RecordType = "THUMBNAIL"
)

// RecordStatus is the lifecycle state of a generation record.
type RecordStatus string

const (
	StatusPending    RecordStatus = "PENDING"
	StatusProcessing RecordStatus = "PROCESSING"
	StatusCompleted  RecordStatus = "COMPLETED"
	StatusFailed     RecordStatus = "FAILED"
)

// AudioConfig captures music and sound-effect choices for video output.
type AudioConfig struct {
	MusicStyle string `json:"musicStyle,omitempty"`
	SfxID      string `json:"sfxId,omitempty"`
}

// TextOverlay captures thumbnail text burned into or overlaid on the image.
type TextOverlay struct {
	Title      string `json:"title,omitempty"`
	Subtitle   string `json:"subtitle,omitempty"`
	ColorTheme string `json:"colorTheme,omitempty"`
}

// RecordSettings are the request parameters worth keeping with the artifact.
type RecordSettings struct {
	ModelID     string       `json:"modelId,omitempty"`
	Duration    int          `json:"duration,omitempty"`
	AspectRatio string       `json:"aspectRatio,omitempty"`
	Style       string       `json:"style,omitempty"`
	VoiceID     string       `json:"voiceId,omitempty"`
	Language    string       `json:"language,omitempty"`
	Captions    bool         `json:"captions,omitempty"`
	SEOEnabled  bool         `json:"seoEnabled,omitempty"`
	Audio       *AudioConfig `json:"audioConfig,omitempty"`
	TextOverlay *TextOverlay `json:"textOverlay,omitempty"`
}

// GenerationRecord is the persisted outcome of a request, independent of
// which provider produced it. Immutable once written.
//
// Invariant: StatusCompleted implies a non-empty URL.
type GenerationRecord struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Type         RecordType     `json:"type"`
	Prompt       string         `json:"prompt"`
	Status       RecordStatus   `json:"status"`
	URL          string         `json:"url,omitempty"`
	ThumbnailURL string         `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	Settings     RecordSettings `json:"settings"`
	SEO          *SEOData       `json:"seo,omitempty"`
}

// LogEntry is one line of the usage audit log: exactly one entry per
// successful charged provider invocation, newest first on listing.
type LogEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Provider    string    `json:"provider"`
	Mode        Mode      `json:"mode"`
	Cost        int       `json:"cost"`
	CreditsLeft int       `json:"creditsLeft"`
	Timestamp   time.Time `json:"timestamp"`
}

// Config holds orchestrator configuration.
type Config struct {
	// Registry is the ordered provider list. Defaults to DefaultRegistry().
	Registry *Registry

	// Cache stores results by fingerprint. Defaults to an LRU cache;
	// pass a NoopCache to disable caching.
	Cache ResultCache

	// ProviderTimeout bounds a single provider invocation (default: 60s).
	ProviderTimeout time.Duration

	// HistoryWindowDays is the rolling window for per-user history
	// queries (default: 90). Records older than the window are excluded
	// from ListHistory, not deleted.
	HistoryWindowDays int

	// EvictBatch is how many oldest records to drop when the record
	// store reports it is full (default: 10).
	EvictBatch int

	// Logger is used for structured logging (default: NoopLogger).
	Logger Logger

	// Metrics tracks orchestration outcomes (default: NoopMetrics).
	Metrics Metrics
}
