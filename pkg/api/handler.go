// Package api exposes the orchestrator over HTTP. It is collaborator glue:
// a thin JSON surface with no rendering, auth, or payment concerns.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cinexa/genroute/pkg/genroute"
	"github.com/cinexa/genroute/pkg/provider"
)

// Handler provides HTTP endpoints over the orchestrator and its stores.
type Handler struct {
	config Config
}

// NewHandler creates a handler from config.
func NewHandler(config Config) (*Handler, error) {
	if config.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if config.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if config.Adapters == nil {
		return nil, fmt.Errorf("adapters are required")
	}
	config.applyDefaults()
	return &Handler{config: config}, nil
}

// Routes mounts all endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/generate", h.Generate)
	r.Get("/v1/users/{id}/history", h.History)
	r.Get("/v1/logs", h.Logs)
	r.Get("/v1/usage", h.Usage)
	r.Put("/v1/users/{id}/credits", h.SetCredits)
	return r
}

// GenerateRequest is the JSON body of POST /v1/generate.
type GenerateRequest struct {
	Mode        string `json:"mode"`
	Prompt      string `json:"prompt"`
	Style       string `json:"style,omitempty"`
	Title       string `json:"title,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Count       int    `json:"count,omitempty"`
	ModelID     string `json:"modelId,omitempty"`
	Language    string `json:"language,omitempty"`
	BurnText    bool   `json:"burnText,omitempty"`
}

// GenerateResponse is the JSON body returned on success.
type GenerateResponse struct {
	Text string            `json:"text,omitempty"`
	URLs []string          `json:"urls,omitempty"`
	SEO  *genroute.SEOData `json:"seo,omitempty"`
}

// Generate runs one generation request through the orchestrator.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := h.config.GetUserID(r)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "user ID not found")
		return
	}

	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	mode := genroute.Mode(body.Mode)
	if !mode.Valid() {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", body.Mode))
		return
	}
	if body.Prompt == "" {
		h.writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	prompt, params := h.buildPrompt(mode, body)
	req := genroute.Request{
		UserID:         userID,
		Mode:           mode,
		Prompt:         body.Prompt,
		CacheKeyInputs: cacheKeyInputs(mode, body),
		Invoke:         h.config.Adapters.Bind(mode, prompt, params),
		Fallback:       fallbackFor(mode, body.Prompt),
		Settings: genroute.RecordSettings{
			ModelID:     body.ModelID,
			AspectRatio: body.AspectRatio,
			Style:       body.Style,
			Language:    body.Language,
		},
	}
	if body.Title != "" {
		req.Settings.TextOverlay = &genroute.TextOverlay{Title: body.Title}
	}

	res, err := h.config.Orchestrator.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, genroute.ErrAllProvidersExhausted) {
			// One generic message; the caller cannot tell "no credits"
			// from "no working provider".
			h.writeError(w, http.StatusServiceUnavailable, "generation failed")
			return
		}
		h.config.Logger.Error("generate failed",
			genroute.Field{Key: "userId", Value: userID},
			genroute.Field{Key: "error", Value: err},
		)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, GenerateResponse{Text: res.Text, URLs: res.URLs, SEO: res.SEO})
}

// History lists a user's generation records inside the rolling window.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	records, err := h.config.Orchestrator.Records().ListByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

// Logs lists usage log entries, newest first.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.config.Storage.ListLogs(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	h.writeJSON(w, http.StatusOK, logs)
}

// Usage returns successful-call counts per provider.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.config.Storage.ProviderUsage(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to aggregate usage")
		return
	}
	h.writeJSON(w, http.StatusOK, usage)
}

// SetCredits is the admin override for a user's balance.
func (h *Handler) SetCredits(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var body struct {
		Credits int `json:"credits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	err := h.config.Orchestrator.Ledger().SetBalance(r.Context(), userID, body.Credits)
	switch {
	case errors.Is(err, genroute.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, genroute.ErrNegativeCredits):
		h.writeError(w, http.StatusBadRequest, "credits cannot be negative")
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, "failed to set credits")
	default:
		h.writeJSON(w, http.StatusOK, map[string]int{"credits": body.Credits})
	}
}

// buildPrompt formats the provider prompt for the request mode.
func (h *Handler) buildPrompt(mode genroute.Mode, body GenerateRequest) (string, provider.Params) {
	f := h.config.Formatter
	params := provider.Params{
		Model:       body.ModelID,
		AspectRatio: body.AspectRatio,
		Count:       body.Count,
	}

	switch mode {
	case genroute.ModeText:
		return f.Text(body.Prompt), params
	case genroute.ModeSEO:
		params.JSONOutput = true
		return f.SEO(body.Prompt, body.Language), params
	case genroute.ModeImage:
		return f.Image(body.Prompt, body.Style), params
	case genroute.ModeThumbnail:
		params.AspectRatio = "16:9"
		return f.Thumbnail(body.Prompt, body.Title, body.Style, body.BurnText), params
	case genroute.ModeVideo:
		return f.Video(body.Prompt, body.Style), params
	}
	return body.Prompt, params
}

// cacheKeyInputs collects the semantic inputs of a request; everything
// that changes the artifact must appear here.
func cacheKeyInputs(mode genroute.Mode, body GenerateRequest) map[string]string {
	inputs := map[string]string{
		"prompt": genroute.NormalizePrompt(body.Prompt),
	}
	if body.Style != "" {
		inputs["style"] = body.Style
	}
	if body.Title != "" {
		inputs["title"] = body.Title
	}
	if body.AspectRatio != "" {
		inputs["aspect"] = body.AspectRatio
	}
	if body.Count > 1 {
		inputs["count"] = strconv.Itoa(body.Count)
	}
	if body.ModelID != "" {
		inputs["model"] = body.ModelID
	}
	if body.Language != "" {
		inputs["language"] = body.Language
	}
	if mode == genroute.ModeThumbnail {
		inputs["burnText"] = strconv.FormatBool(body.BurnText)
	}
	return inputs
}

// demoVideos are reliable sample assets used as the degraded video
// fallback when every provider is exhausted.
var demoVideos = []string{
	"https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerBlazes.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerEscapes.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerFun.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerJoyrides.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerMeltdowns.mp4",
	"https://storage.googleapis.com/gtv-videos-bucket/sample/TearsOfSteel.mp4",
}

// fallbackFor picks the degraded fallback value for modes that have one.
// Deterministic per prompt so repeated requests stay cache-consistent.
func fallbackFor(mode genroute.Mode, prompt string) *genroute.Result {
	switch mode {
	case genroute.ModeVideo:
		return &genroute.Result{URLs: []string{demoVideos[len(prompt)%len(demoVideos)]}}
	case genroute.ModeText:
		return &genroute.Result{Text: fmt.Sprintf("[Fallback] Could not reach any AI backend. Simulated script for: %q.", prompt)}
	}
	// Image modes already end on a free provider; no fallback needed.
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
