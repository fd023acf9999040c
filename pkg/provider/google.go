package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/cinexa/genroute/pkg/genroute"
)

const (
	geminiTextModel  = "gemini-2.0-flash"
	geminiImageModel = "imagen-4.0-generate-001"
	geminiVideoModel = "veo-3.1-fast-generate-preview"

	videoPollInterval = 10 * time.Second
)

// GoogleAdapter serves text, SEO, image, thumbnail, and video modes
// through the Gemini API family (Gemini, Imagen, Veo).
type GoogleAdapter struct {
	client *genai.Client
}

// NewGoogleAdapter creates a new Google adapter.
func NewGoogleAdapter(ctx context.Context, apiKey string) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &GoogleAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *GoogleAdapter) Name() string { return "gemini" }

// Generate dispatches on mode.
func (a *GoogleAdapter) Generate(ctx context.Context, mode genroute.Mode, prompt string, params Params) (*genroute.Result, error) {
	switch mode {
	case genroute.ModeText:
		return a.generateText(ctx, prompt, params, false)
	case genroute.ModeSEO:
		return a.generateText(ctx, prompt, params, true)
	case genroute.ModeImage, genroute.ModeThumbnail:
		return a.generateImages(ctx, prompt, params)
	case genroute.ModeVideo:
		return a.generateVideo(ctx, prompt, params)
	default:
		return nil, fmt.Errorf("google adapter does not serve mode %q", mode)
	}
}

func (a *GoogleAdapter) generateText(ctx context.Context, prompt string, params Params, asJSON bool) (*genroute.Result, error) {
	model := params.Model
	if model == "" {
		model = geminiTextModel
	}

	var config *genai.GenerateContentConfig
	if asJSON || params.JSONOutput {
		config = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := a.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}
	if content == "" {
		return nil, fmt.Errorf("google returned empty content")
	}

	res := &genroute.Result{Text: content}
	if asJSON {
		var seo genroute.SEOData
		if err := json.Unmarshal([]byte(content), &seo); err != nil {
			return nil, fmt.Errorf("google returned malformed SEO JSON: %w", err)
		}
		res.SEO = &seo
	}
	return res, nil
}

func (a *GoogleAdapter) generateImages(ctx context.Context, prompt string, params Params) (*genroute.Result, error) {
	model := params.Model
	if model == "" {
		model = geminiImageModel
	}
	count := params.Count
	if count <= 0 {
		count = 1
	}
	aspect := params.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}

	resp, err := a.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
		AspectRatio:    aspect,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, fmt.Errorf("google image API error: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("google returned no images")
	}

	urls := make([]string, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		urls = append(urls, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(img.Image.ImageBytes))
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("google returned images without bytes")
	}
	return &genroute.Result{URLs: urls}, nil
}

func (a *GoogleAdapter) generateVideo(ctx context.Context, prompt string, params Params) (*genroute.Result, error) {
	model := params.Model
	if model == "" {
		model = geminiVideoModel
	}
	aspect := params.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}

	op, err := a.client.Models.GenerateVideos(ctx, model, prompt, nil, &genai.GenerateVideosConfig{
		AspectRatio: aspect,
	})
	if err != nil {
		return nil, fmt.Errorf("google video API error: %w", err)
	}

	// Video generation is a long-running operation; poll until done or the
	// attempt context expires.
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(videoPollInterval):
		}
		op, err = a.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("google video poll error: %w", err)
		}
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, fmt.Errorf("google returned no videos")
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil || video.URI == "" {
		return nil, fmt.Errorf("google returned a video without a URI")
	}
	return &genroute.Result{URLs: []string{video.URI}}, nil
}
