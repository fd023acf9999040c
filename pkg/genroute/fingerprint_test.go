package genroute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cinexa/genroute/pkg/genroute"
)

func TestNormalizePrompt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "A Cat In SPACE", "a cat in space"},
		{"collapses whitespace", "a   cat\t\tin\n space", "a cat in space"},
		{"trims edges", "  a cat  ", "a cat"},
		{"empty", "", ""},
		{"only whitespace", "   \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, genroute.NormalizePrompt(tt.in))
		})
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	inputs := map[string]string{"prompt": "a cat", "style": "anime", "aspect": "16:9"}

	fp1 := genroute.Fingerprint(genroute.ModeImage, inputs)
	fp2 := genroute.Fingerprint(genroute.ModeImage, map[string]string{
		"aspect": "16:9", "style": "anime", "prompt": "a cat",
	})
	assert.Equal(t, fp1, fp2, "map iteration order must not affect the fingerprint")
}

func TestFingerprint_SensitiveToInputs(t *testing.T) {
	base := genroute.Fingerprint(genroute.ModeImage, map[string]string{"prompt": "a cat"})

	t.Run("different value", func(t *testing.T) {
		fp := genroute.Fingerprint(genroute.ModeImage, map[string]string{"prompt": "a dog"})
		assert.NotEqual(t, base, fp)
	})

	t.Run("different key", func(t *testing.T) {
		fp := genroute.Fingerprint(genroute.ModeImage, map[string]string{"title": "a cat"})
		assert.NotEqual(t, base, fp)
	})

	t.Run("different mode", func(t *testing.T) {
		fp := genroute.Fingerprint(genroute.ModeThumbnail, map[string]string{"prompt": "a cat"})
		assert.NotEqual(t, base, fp)
	})

	t.Run("extra input", func(t *testing.T) {
		fp := genroute.Fingerprint(genroute.ModeImage, map[string]string{"prompt": "a cat", "style": "anime"})
		assert.NotEqual(t, base, fp)
	})
}

func TestFingerprint_KeyValueBoundary(t *testing.T) {
	// {"ab": "c"} and {"a": "bc"} must not collide.
	fp1 := genroute.Fingerprint(genroute.ModeText, map[string]string{"ab": "c"})
	fp2 := genroute.Fingerprint(genroute.ModeText, map[string]string{"a": "bc"})
	assert.NotEqual(t, fp1, fp2)
}

func TestFingerprint_CarriesModePrefix(t *testing.T) {
	fp := genroute.Fingerprint(genroute.ModeVideo, map[string]string{"prompt": "x"})
	assert.Contains(t, fp, "video:")
}
