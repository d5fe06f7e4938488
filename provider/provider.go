// Package provider wraps the external generation services (text, image,
// speech) behind a single client interface with an ordered fallback chain.
// Nothing provider-specific leaks past this package.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"prompt2video/types"
)

// Request carries everything a provider may need for one generation call.
// Providers read the fields relevant to their capability and ignore the rest.
type Request struct {
	// Prompt is the text to complete, the image prompt, or the narration to
	// speak, depending on the provider's capability.
	Prompt string
	// System is an optional system prompt for text providers.
	System string
	// Voice selects the speech voice.
	Voice string
	// Width/Height request an image resolution.
	Width, Height int
	// Seed makes image generation reproducible where supported.
	Seed int
	// ImageFile is the source still for motion providers.
	ImageFile string
	// DurationSec is the requested clip length for motion providers.
	DurationSec float64
	// OutFile is where media providers write their artifact.
	OutFile string
}

// Artifact is the result of one successful generation call.
type Artifact struct {
	// Text holds the completion for text providers.
	Text string
	// Path holds the written file for media providers.
	Path string
}

// Client is a single external generation service.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Artifact, error)
}

// Chain tries clients in order until one succeeds. Rate-limit, network and
// auth failures fall through to the next client; only when every client has
// failed does the caller see an error.
type Chain struct {
	label   string
	clients []Client
	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewChain builds a fallback chain. label is used in log lines ("text",
// "image", "speech").
func NewChain(label string, clients ...Client) *Chain {
	return &Chain{label: label, clients: clients, sleep: time.Sleep}
}

// Len reports how many clients the chain holds.
func (c *Chain) Len() int { return len(c.clients) }

// Names lists the chain's clients in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.clients))
	for i, cl := range c.clients {
		names[i] = cl.Name()
	}
	return names
}

// attempts returns how many times a call with the given failure class is
// retried against the same provider before moving on.
func attempts(class types.ErrorClass) int {
	switch class {
	case types.ErrRateLimit:
		return 3 // initial try + 2 backoff retries
	case types.ErrNetwork:
		return 2 // initial try + 1 retry
	default:
		return 1 // auth and content failures are never retried
	}
}

// Generate runs the fallback policy: each client is tried (with per-class
// retries), and the next client is only consulted after the previous one has
// definitively failed.
func (c *Chain) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if len(c.clients) == 0 {
		return nil, fmt.Errorf("%s: no providers configured", c.label)
	}

	var lastErr error
	for _, client := range c.clients {
		art, err := c.tryClient(ctx, client, req)
		if err == nil {
			return art, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Printf("[%s] provider %s failed: %v — trying next", c.label, client.Name(), err)
	}
	return nil, fmt.Errorf("%s: all %d providers failed: %w", c.label, len(c.clients), lastErr)
}

func (c *Chain) tryClient(ctx context.Context, client Client, req Request) (*Artifact, error) {
	var lastErr error
	max := 1
	for attempt := 1; attempt <= max; attempt++ {
		art, err := client.Generate(ctx, req)
		if err == nil {
			return art, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, err
		}

		class := types.ErrNetwork
		if pe, ok := types.AsProviderError(err); ok {
			class = pe.Class
		}
		max = attempts(class)
		if attempt < max {
			// Linear backoff, same cadence the rest of the pipeline uses for
			// flaky external services.
			c.sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	return nil, lastErr
}
