package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIAnalyzeImageSendsVisionParts(t *testing.T) {
	var gotBody oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want bearer key", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "a bright living room"}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o", "dall-e-3", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	text, err := client.AnalyzeImage(context.Background(), "https://img.example.com/room.jpg", "describe", TextOptions{MaxTokens: 100})
	if err != nil {
		t.Fatalf("analyze image: %v", err)
	}
	if text != "a bright living room" {
		t.Fatalf("text = %q", text)
	}
	if gotBody.Model != "gpt-4o" {
		t.Fatalf("model = %q, want gpt-4o", gotBody.Model)
	}
	if gotBody.MaxTokens != 100 {
		t.Fatalf("max_tokens = %d, want 100", gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(gotBody.Messages))
	}
	parts, ok := gotBody.Messages[0].Content.([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("content = %#v, want two vision parts", gotBody.Messages[0].Content)
	}
}

func TestOpenAIGenerateImageReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			http.NotFound(w, r)
			return
		}
		var req oaiImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Size != "1024x1024" {
			t.Errorf("size = %q, want 1024x1024", req.Size)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": "https://cdn.example.com/generated.png"}},
		})
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o", "dall-e-3", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	url, err := client.GenerateImage(context.Background(), "compose", ImageOptions{Width: 1024, Height: 1024})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if url != "https://cdn.example.com/generated.png" {
		t.Fatalf("url = %q", url)
	}
}

func TestOpenAIUpstreamErrorCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limit exceeded", "type": "rate_limit"},
		})
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o", "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.CompleteText(context.Background(), "hello", TextOptions{})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if provErr.Kind != KindUpstream || provErr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected error: %+v", provErr)
	}
	if provErr.Message != "rate limit exceeded" {
		t.Fatalf("message = %q", provErr.Message)
	}
}

func TestOpenAIMalformedResponseIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o", "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.CompleteText(context.Background(), "hello", TextOptions{})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if provErr.Kind != KindParse {
		t.Fatalf("kind = %q, want parse", provErr.Kind)
	}
}

func TestOpenAISupportsImageGenerationOnlyWithImageModel(t *testing.T) {
	with, err := NewOpenAIClient("https://api.openai.com/v1", "sk", "gpt-4o", "dall-e-3", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	without, err := NewOpenAIClient("https://api.openai.com/v1", "sk", "gpt-4o", "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if !with.Supports(CapabilityImageGeneration) {
		t.Fatalf("client with image model should support image generation")
	}
	if without.Supports(CapabilityImageGeneration) {
		t.Fatalf("client without image model should not support image generation")
	}
}

func TestGeminiAnalyzeImageUsesFileDataPart(t *testing.T) {
	var gotBody geminiGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") != "g-test" {
			t.Errorf("key = %q, want g-test", r.URL.Query().Get("key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "two windows, oak floor"}}}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("g-test", "gemini-2.0-flash", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.baseURL = srv.URL

	text, err := client.AnalyzeImage(context.Background(), "https://img.example.com/room.jpg", "describe", TextOptions{})
	if err != nil {
		t.Fatalf("analyze image: %v", err)
	}
	if text != "two windows, oak floor" {
		t.Fatalf("text = %q", text)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request shape: %+v", gotBody)
	}
	if gotBody.Contents[0].Parts[0].FileData == nil {
		t.Fatalf("first part should carry fileData")
	}
	if gotBody.Contents[0].Parts[0].FileData.FileURI != "https://img.example.com/room.jpg" {
		t.Fatalf("fileUri = %q", gotBody.Contents[0].Parts[0].FileData.FileURI)
	}
}

func TestGeminiGenerateImageIsUnsupported(t *testing.T) {
	client, err := NewGeminiClient("g-test", "models/gemini-2.0-flash", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Supports(CapabilityImageGeneration) {
		t.Fatalf("gemini should not report image generation support")
	}
	_, err = client.GenerateImage(context.Background(), "compose", ImageOptions{})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if provErr.Kind != KindUpstream {
		t.Fatalf("kind = %q, want upstream", provErr.Kind)
	}
}
