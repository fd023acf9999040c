package genroute_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cinexa/genroute/pkg/genroute"
)

func TestFormatter_Deterministic(t *testing.T) {
	f := genroute.NewFormatter()

	a := f.Thumbnail("a cat", "CAT FACTS", "cinematic", true)
	b := f.Thumbnail("a cat", "CAT FACTS", "cinematic", true)
	assert.Equal(t, a, b)
}

func TestFormatter_Image(t *testing.T) {
	f := genroute.NewFormatter()

	t.Run("expands known style", func(t *testing.T) {
		out := f.Image("a cat", "cinematic")
		assert.Contains(t, out, "a cat")
		assert.Contains(t, out, "cinematic lighting")
	})

	t.Run("passes unknown style through", func(t *testing.T) {
		out := f.Image("a cat", "watercolor sketch")
		assert.Contains(t, out, "watercolor sketch")
	})

	t.Run("no style", func(t *testing.T) {
		out := f.Image("a cat", "")
		assert.True(t, strings.HasPrefix(out, "a cat, "))
	})

	t.Run("carries quality directives", func(t *testing.T) {
		assert.Contains(t, f.Image("a cat", ""), "no watermarks")
	})
}

func TestFormatter_Thumbnail(t *testing.T) {
	f := genroute.NewFormatter()

	t.Run("burned-in text", func(t *testing.T) {
		out := f.Thumbnail("cat secrets", "10 CAT FACTS", "cinematic", true)
		assert.Contains(t, out, `"10 CAT FACTS"`)
		assert.Contains(t, out, "Typography")
		assert.NotContains(t, out, "negative space")
	})

	t.Run("negative space for overlay", func(t *testing.T) {
		out := f.Thumbnail("cat secrets", "10 CAT FACTS", "cinematic", false)
		assert.Contains(t, out, "negative space")
		assert.NotContains(t, out, "10 CAT FACTS")
	})

	t.Run("empty title never burns", func(t *testing.T) {
		out := f.Thumbnail("cat secrets", "", "cinematic", true)
		assert.Contains(t, out, "negative space")
	})
}

func TestFormatter_SEO(t *testing.T) {
	f := genroute.NewFormatter()

	out := f.SEO("how to brew coffee", "Spanish")
	assert.Contains(t, out, `"how to brew coffee"`)
	assert.Contains(t, out, "Spanish")
	assert.Contains(t, out, `"title"`)
	assert.Contains(t, out, `"description"`)
	assert.Contains(t, out, `"tags"`)

	// Language defaults to English.
	assert.Contains(t, f.SEO("topic", ""), "English")
}

func TestFormatter_CustomStyles(t *testing.T) {
	f := genroute.NewFormatterWithStyles(map[string]string{
		"corporate": "flat design, blue palette",
	})

	out := f.Image("a chart", "corporate")
	assert.Contains(t, out, "flat design, blue palette")

	// Styles from the default dictionary are gone.
	out = f.Image("a chart", "cinematic")
	assert.NotContains(t, out, "cinematic lighting")
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		aspect string
		w, h   int
	}{
		{"16:9", 1280, 720},
		{"9:16", 720, 1280},
		{"4:3", 1024, 768},
		{"3:4", 768, 1024},
		{"1:1", 1024, 1024},
		{"", 1024, 1024},
		{"nonsense", 1024, 1024},
	}
	for _, tt := range tests {
		w, h := genroute.Dimensions(tt.aspect)
		assert.Equal(t, tt.w, w, "aspect %q width", tt.aspect)
		assert.Equal(t, tt.h, h, "aspect %q height", tt.aspect)
	}
}
