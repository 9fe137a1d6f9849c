package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	geminiProviderName    = "gemini"
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiMimeType = "image/jpeg"
)

// GeminiClient calls the Google AI Studio (Gemini) API. It supports
// text completion and image analysis; the API exposes no image
// generation endpoint, so the adapter falls back for that capability.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiClient constructs a client with the provided API key and model.
func NewGeminiClient(apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	model = normalizeGeminiModel(model)
	if model == "" {
		return nil, fmt.Errorf("gemini model required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    defaultGeminiBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Provider.
func (c *GeminiClient) Name() string { return geminiProviderName }

// Supports implements Provider. Gemini has no image generation endpoint.
func (c *GeminiClient) Supports(capability Capability) bool {
	return capability != CapabilityImageGeneration
}

// CompleteText implements Provider via generateContent.
func (c *GeminiClient) CompleteText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	return c.generate(ctx, []geminiPart{{Text: prompt}}, opts)
}

// AnalyzeImage implements Provider via generateContent with a fileData part.
func (c *GeminiClient) AnalyzeImage(ctx context.Context, imageURL, prompt string, opts TextOptions) (string, error) {
	parts := []geminiPart{
		{FileData: &geminiFileData{MimeType: defaultGeminiMimeType, FileURI: imageURL}},
		{Text: prompt},
	}
	return c.generate(ctx, parts, opts)
}

// GenerateImage implements Provider. Gemini cannot generate images;
// callers go through the Adapter, which delegates to the other provider.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	return "", upstreamErr(geminiProviderName, 0, "image generation not supported")
}

func (c *GeminiClient) generate(ctx context.Context, parts []geminiPart, opts TextOptions) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		reqBody.GenerationConfig = &geminiGenerationConfig{}
		if opts.MaxTokens > 0 {
			reqBody.GenerationConfig.MaxOutputTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			reqBody.GenerationConfig.Temperature = &opts.Temperature
		}
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	var resp geminiGenerateResponse
	if err := c.doJSON(ctx, url, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", parseErr(geminiProviderName, "response has no candidates")
	}
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", parseErr(geminiProviderName, "response text empty")
	}
	return text, nil
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return parseErr(geminiProviderName, "encode request: "+err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return upstreamErr(geminiProviderName, 0, "build request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstreamErr(geminiProviderName, 0, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp geminiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return upstreamErr(geminiProviderName, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return parseErr(geminiProviderName, "decode response: "+err.Error())
	}
	return nil
}

func normalizeGeminiModel(model string) string {
	model = strings.TrimSpace(model)
	return strings.TrimPrefix(model, "models/")
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"fileData,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
