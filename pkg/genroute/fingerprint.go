package genroute

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NormalizePrompt collapses a prompt to a canonical form for cache keying:
// lowercased with runs of whitespace folded to single spaces. Two prompts
// that differ only in casing or spacing fingerprint identically.
func NormalizePrompt(prompt string) string {
	return strings.ToLower(strings.Join(strings.Fields(prompt), " "))
}

// Fingerprint computes the deterministic cache key for a request: a stable
// xxhash over the mode and the sorted key/value inputs. Non-cryptographic
// is fine here; the cache is best effort and a collision only costs UX
// quality, never correctness.
func Fingerprint(mode Mode, inputs map[string]string) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	_, _ = d.WriteString(string(mode))
	for _, k := range keys {
		_, _ = d.WriteString("\x1f")
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("\x1e")
		_, _ = d.WriteString(inputs[k])
	}
	return string(mode) + ":" + strconv.FormatUint(d.Sum64(), 16)
}
