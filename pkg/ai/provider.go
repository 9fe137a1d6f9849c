package ai

import (
	"context"
	"fmt"
)

// Capability identifies one operation a provider may or may not support.
type Capability string

const (
	CapabilityTextCompletion  Capability = "text_completion"
	CapabilityImageAnalysis   Capability = "image_analysis"
	CapabilityImageGeneration Capability = "image_generation"
)

// TextOptions tune text-producing calls. Zero values mean provider defaults.
type TextOptions struct {
	MaxTokens   int
	Temperature float64
}

// ImageOptions tune image generation. Zero values mean provider defaults.
type ImageOptions struct {
	Width  int
	Height int
}

// Provider is one generative-AI backend. All providers normalize their
// wire envelopes into plain text or an image URL.
type Provider interface {
	Name() string
	Supports(capability Capability) bool
	CompleteText(ctx context.Context, prompt string, opts TextOptions) (string, error)
	AnalyzeImage(ctx context.Context, imageURL, prompt string, opts TextOptions) (string, error)
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error)
}

// ErrorKind separates upstream failures from local parse failures.
// These are the only two kinds the adapter distinguishes.
type ErrorKind string

const (
	KindUpstream ErrorKind = "upstream"
	KindParse    ErrorKind = "parse"
)

// ProviderError carries the upstream status and message for a failed
// provider call. Status is zero for network and parse failures.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s provider %s error (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s provider %s error: %s", e.Provider, e.Kind, e.Message)
}

func upstreamErr(provider string, status int, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindUpstream, Status: status, Message: message}
}

func parseErr(provider string, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindParse, Message: message}
}
