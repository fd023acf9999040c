package provider

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sync"

	"github.com/cinexa/genroute/pkg/genroute"
)

const pollinationsBaseURL = "https://image.pollinations.ai/prompt/"

// PollinationsAdapter serves image and thumbnail modes through the free
// Pollinations endpoint. The service renders on fetch, so generation is
// pure URL construction and never fails locally; it is the registry's
// wire of last resort for visuals.
type PollinationsAdapter struct {
	baseURL string

	mu   sync.Mutex
	seed func() int
}

// NewPollinationsAdapter creates the free-tier adapter.
func NewPollinationsAdapter() *PollinationsAdapter {
	return &PollinationsAdapter{
		baseURL: pollinationsBaseURL,
		seed:    func() int { return rand.Intn(1000000) },
	}
}

// Name returns the adapter identifier.
func (a *PollinationsAdapter) Name() string { return "pollinations" }

// Generate builds one render URL per requested image, each with a distinct
// seed so repeated counts produce distinct variations.
func (a *PollinationsAdapter) Generate(_ context.Context, mode genroute.Mode, prompt string, params Params) (*genroute.Result, error) {
	if mode != genroute.ModeImage && mode != genroute.ModeThumbnail {
		return nil, fmt.Errorf("pollinations adapter does not serve mode %q", mode)
	}

	count := params.Count
	if count <= 0 {
		count = 1
	}
	width, height := genroute.Dimensions(params.AspectRatio)
	if mode == genroute.ModeThumbnail {
		width, height = 1280, 720
	}

	urls := make([]string, 0, count)
	for i := 0; i < count; i++ {
		a.mu.Lock()
		seed := a.seed()
		a.mu.Unlock()

		q := url.Values{}
		q.Set("width", fmt.Sprint(width))
		q.Set("height", fmt.Sprint(height))
		q.Set("nologo", "true")
		q.Set("seed", fmt.Sprint(seed))
		q.Set("model", "flux")
		urls = append(urls, a.baseURL+url.PathEscape(prompt)+"?"+q.Encode())
	}
	return &genroute.Result{URLs: urls}, nil
}
