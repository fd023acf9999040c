package genroute

import (
	"fmt"
	"strings"
)

// qualityPreamble is prepended to every visual prompt. Keeping it in one
// place means every provider sees the same standing directives.
const qualityPreamble = "high quality, sharp focus, professional grade, no watermarks, safe for work"

// Formatter composes provider-ready prompts from the user prompt, a style
// preset expansion, mode-specific directives, and the standing quality
// preamble. Formatting is pure and deterministic for a given input tuple,
// since its output feeds cache-key inputs upstream.
type Formatter struct {
	styles map[string]string
}

// DefaultStyles maps style preset names to descriptive phrase expansions.
var DefaultStyles = map[string]string{
	"cinematic":  "cinematic lighting, dramatic composition, film grain, anamorphic",
	"realistic":  "photorealistic, natural lighting, 85mm lens, detailed textures",
	"anime":      "anime style, cel shading, vibrant colors, clean line art",
	"cartoon":    "cartoon style, bold outlines, flat colors, playful",
	"cyberpunk":  "cyberpunk, neon glow, rain-slick streets, high contrast",
	"minimalist": "minimalist, negative space, muted palette, clean geometry",
	"vintage":    "vintage aesthetic, faded colors, film photography, 1970s",
	"3d":         "3d render, octane, global illumination, subsurface scattering",
}

// NewFormatter creates a formatter with the default style dictionary.
func NewFormatter() *Formatter {
	return &Formatter{styles: DefaultStyles}
}

// NewFormatterWithStyles creates a formatter with a custom style dictionary.
func NewFormatterWithStyles(styles map[string]string) *Formatter {
	if styles == nil {
		styles = DefaultStyles
	}
	return &Formatter{styles: styles}
}

// expandStyle resolves a style preset to its descriptive phrase. Unknown
// styles pass through as-is so callers can supply free-form styles.
func (f *Formatter) expandStyle(style string) string {
	if s, ok := f.styles[strings.ToLower(strings.TrimSpace(style))]; ok {
		return s
	}
	return strings.TrimSpace(style)
}

// Text formats a script/text generation prompt.
func (f *Formatter) Text(prompt string) string {
	return strings.TrimSpace(prompt)
}

// SEO builds the dual-platform SEO prompt: a clickable title that still
// ranks, a semantic description, and a broad/long-tail tag mix, returned
// as strict JSON by the provider.
func (f *Formatter) SEO(topic, language string) string {
	if language == "" {
		language = "English"
	}
	var b strings.Builder
	b.WriteString("Act as a world-class SEO expert for video marketing on YouTube and Google Search.\n")
	fmt.Fprintf(&b, "Context: a video about %q. Language: %s.\n", topic, language)
	b.WriteString("Generate a JSON object with:\n")
	b.WriteString(`1. "title": high-CTR title with strong search keywords, under 70 chars.` + "\n")
	b.WriteString(`2. "description": hook and main keyword first, detailed context for indexing, 3-5 hashtags at the end.` + "\n")
	b.WriteString(`3. "tags": 18 keywords mixing high-volume broad tags and long-tail search queries.` + "\n")
	b.WriteString("Output ONLY valid JSON.")
	return b.String()
}

// Image formats an image generation prompt with style expansion and the
// quality preamble.
func (f *Formatter) Image(prompt, style string) string {
	parts := []string{strings.TrimSpace(prompt)}
	if s := f.expandStyle(style); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, qualityPreamble)
	return strings.Join(parts, ", ")
}

// Thumbnail formats a YouTube-thumbnail prompt. When burnText is true the
// overlay title is rendered into the image in big bold typography; when
// false the composition leaves negative space for a text overlay applied
// later.
func (f *Formatter) Thumbnail(prompt, title, style string, burnText bool) string {
	var b strings.Builder
	b.WriteString("YouTube thumbnail, 8k resolution, high impact. ")
	fmt.Fprintf(&b, "Style: %s. ", f.expandStyle(style))
	fmt.Fprintf(&b, "Core subject: %s. ", strings.TrimSpace(prompt))
	if burnText && title != "" {
		fmt.Fprintf(&b, "Overlay text: %q. Typography: big, bold, readable, viral style, contrasting colors. ", title)
	} else {
		b.WriteString("Leave clear negative space on one side for a text overlay. ")
	}
	b.WriteString("Lighting: cinematic, dramatic, high contrast. ")
	b.WriteString("Composition: rule of thirds, focus on emotion. ")
	b.WriteString(qualityPreamble)
	return b.String()
}

// Video formats a video generation prompt.
func (f *Formatter) Video(prompt, style string) string {
	parts := []string{strings.TrimSpace(prompt)}
	if s := f.expandStyle(style); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, "smooth camera motion", qualityPreamble)
	return strings.Join(parts, ", ")
}

// Dimensions maps an aspect-ratio string to output pixel dimensions.
// Unknown ratios fall back to square.
func Dimensions(aspectRatio string) (width, height int) {
	switch aspectRatio {
	case "16:9":
		return 1280, 720
	case "9:16":
		return 720, 1280
	case "4:3":
		return 1024, 768
	case "3:4":
		return 768, 1024
	default:
		return 1024, 1024
	}
}
