package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cinexa/genroute/pkg/genroute"
)

const (
	stabilityBaseURL      = "https://api.stability.ai/v2beta"
	stabilityDefaultModel = "sd3.5-large"
)

// StabilityAdapter serves image and thumbnail modes through the Stability
// AI REST API. There is no official Go SDK, so this speaks the wire format
// directly.
type StabilityAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type stabilityRequest struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model,omitempty"`
	AspectRatio  string `json:"aspect_ratio,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

type stabilityResponse struct {
	Image        string   `json:"image"`
	FinishReason string   `json:"finish_reason"`
	Errors       []string `json:"errors,omitempty"`
}

// NewStabilityAdapter creates a new Stability AI adapter.
func NewStabilityAdapter(apiKey string) (*StabilityAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stability API key is required")
	}
	return &StabilityAdapter{
		apiKey:     apiKey,
		baseURL:    stabilityBaseURL,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (a *StabilityAdapter) Name() string { return "stability" }

// Generate sends a formatted prompt to Stability and normalizes the response.
func (a *StabilityAdapter) Generate(ctx context.Context, mode genroute.Mode, prompt string, params Params) (*genroute.Result, error) {
	if mode != genroute.ModeImage && mode != genroute.ModeThumbnail {
		return nil, fmt.Errorf("stability adapter does not serve mode %q", mode)
	}

	model := params.Model
	if model == "" {
		model = stabilityDefaultModel
	}

	reqBody := stabilityRequest{
		Prompt:       prompt,
		Model:        model,
		AspectRatio:  params.AspectRatio,
		OutputFormat: "jpeg",
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/stable-image/generate/sd3", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Temporary: true, Err: fmt.Errorf("stability API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("stability API returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var stabilityResp stabilityResponse
	if err := json.Unmarshal(body, &stabilityResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(stabilityResp.Errors) > 0 {
		return nil, fmt.Errorf("stability API error: %v", stabilityResp.Errors)
	}
	if stabilityResp.Image == "" {
		return nil, fmt.Errorf("stability returned no image")
	}

	return &genroute.Result{
		URLs: []string{"data:image/jpeg;base64," + stabilityResp.Image},
	}, nil
}
