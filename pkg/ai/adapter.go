package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Service is the uniform surface the workflows depend on.
type Service interface {
	CompleteText(ctx context.Context, prompt string, opts TextOptions) (string, error)
	AnalyzeImage(ctx context.Context, imageURL, prompt string, opts TextOptions) (string, error)
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error)
}

// Adapter normalizes two interchangeable providers behind one Service.
// The active provider is fixed at construction time; when it lacks a
// capability the single call is delegated to the fallback provider.
// Delegation is not a retry: a failed call is never re-issued.
type Adapter struct {
	active   Provider
	fallback Provider
}

// NewAdapter selects the active provider by name from the two
// configured backends. The selection is made once, here, not per call.
func NewAdapter(activeName string, providers ...Provider) (*Adapter, error) {
	activeName = strings.ToLower(strings.TrimSpace(activeName))
	if activeName == "" {
		return nil, fmt.Errorf("active provider name required")
	}
	var active, fallback Provider
	for _, p := range providers {
		if p == nil {
			continue
		}
		if p.Name() == activeName {
			active = p
		} else if fallback == nil {
			fallback = p
		}
	}
	if active == nil {
		return nil, fmt.Errorf("unknown ai provider: %s", activeName)
	}
	return &Adapter{active: active, fallback: fallback}, nil
}

// CompleteText runs a plain text completion on the selected provider.
func (a *Adapter) CompleteText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	return a.pick(CapabilityTextCompletion).CompleteText(ctx, prompt, opts)
}

// AnalyzeImage runs an image-analysis completion on the selected provider.
func (a *Adapter) AnalyzeImage(ctx context.Context, imageURL, prompt string, opts TextOptions) (string, error) {
	return a.pick(CapabilityImageAnalysis).AnalyzeImage(ctx, imageURL, prompt, opts)
}

// GenerateImage produces an image URL. Providers without an image
// generation endpoint delegate transparently to the fallback.
func (a *Adapter) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	return a.pick(CapabilityImageGeneration).GenerateImage(ctx, prompt, opts)
}

func (a *Adapter) pick(capability Capability) Provider {
	if a.active.Supports(capability) {
		return a.active
	}
	if a.fallback != nil && a.fallback.Supports(capability) {
		slog.Debug("ai capability fallback",
			"capability", string(capability),
			"from", a.active.Name(),
			"to", a.fallback.Name(),
		)
		return a.fallback
	}
	return a.active
}
