package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cinexa/genroute/pkg/genroute"
)

const (
	openaiTextModel  = "gpt-4o-mini"
	openaiImageModel = openai.ImageModelDallE3
)

// OpenAIAdapter serves text, SEO, image, and thumbnail modes through the
// OpenAI API.
type OpenAIAdapter struct {
	client openai.Client
	name   string
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		name:   "openai",
	}, nil
}

// NewOpenRouterAdapter creates an adapter for OpenRouter, which speaks the
// OpenAI wire format behind a different base URL. Text and SEO only.
func NewOpenRouterAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	return &OpenAIAdapter{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL("https://openrouter.ai/api/v1"),
		),
		name: "openrouter",
	}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string { return a.name }

// Generate dispatches on mode.
func (a *OpenAIAdapter) Generate(ctx context.Context, mode genroute.Mode, prompt string, params Params) (*genroute.Result, error) {
	switch mode {
	case genroute.ModeText:
		return a.generateText(ctx, prompt, params, false)
	case genroute.ModeSEO:
		return a.generateText(ctx, prompt, params, true)
	case genroute.ModeImage, genroute.ModeThumbnail:
		if a.name != "openai" {
			return nil, fmt.Errorf("%s adapter does not serve mode %q", a.name, mode)
		}
		return a.generateImage(ctx, prompt, params)
	default:
		return nil, fmt.Errorf("%s adapter does not serve mode %q", a.name, mode)
	}
}

func (a *OpenAIAdapter) generateText(ctx context.Context, prompt string, params Params, asJSON bool) (*genroute.Result, error) {
	model := params.Model
	if model == "" {
		model = openaiTextModel
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(4096),
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", a.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", a.name)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("%s returned empty content", a.name)
	}

	res := &genroute.Result{Text: content}
	if asJSON {
		var seo genroute.SEOData
		if err := json.Unmarshal([]byte(content), &seo); err != nil {
			return nil, fmt.Errorf("%s returned malformed SEO JSON: %w", a.name, err)
		}
		res.SEO = &seo
	}
	return res, nil
}

func (a *OpenAIAdapter) generateImage(ctx context.Context, prompt string, params Params) (*genroute.Result, error) {
	model := params.Model
	if model == "" {
		model = openaiImageModel
	}

	resp, err := a.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(model),
		N:      openai.Int(1),
		Size:   imageSize(params.AspectRatio),
	})
	if err != nil {
		return nil, fmt.Errorf("openai image API error: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no images")
	}

	url := resp.Data[0].URL
	if url == "" && resp.Data[0].B64JSON != "" {
		url = "data:image/png;base64," + resp.Data[0].B64JSON
	}
	if url == "" {
		return nil, fmt.Errorf("openai returned an image without a URL")
	}
	return &genroute.Result{URLs: []string{url}}, nil
}

// imageSize maps an aspect ratio onto the nearest DALL-E 3 size.
func imageSize(aspectRatio string) openai.ImageGenerateParamsSize {
	switch aspectRatio {
	case "16:9", "4:3":
		return openai.ImageGenerateParamsSize1792x1024
	case "9:16", "3:4":
		return openai.ImageGenerateParamsSize1024x1792
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}
