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

const openAIProviderName = "openai"

// OpenAIClient calls any OpenAI-compatible API: /chat/completions for
// text and vision, /images/generations for image generation.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	chatModel  string
	imageModel string
	httpClient *http.Client
}

// NewOpenAIClient builds an OpenAI-compatible provider.
// baseURL should include the /v1 prefix, e.g. "https://api.openai.com/v1".
func NewOpenAIClient(baseURL, apiKey, chatModel, imageModel string, timeout time.Duration) (*OpenAIClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("openai base URL required")
	}
	if strings.TrimSpace(chatModel) == "" {
		return nil, fmt.Errorf("openai chat model required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		chatModel:  strings.TrimSpace(chatModel),
		imageModel: strings.TrimSpace(imageModel),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Provider.
func (c *OpenAIClient) Name() string { return openAIProviderName }

// Supports implements Provider. Image generation needs an image model.
func (c *OpenAIClient) Supports(capability Capability) bool {
	if capability == CapabilityImageGeneration {
		return c.imageModel != ""
	}
	return true
}

// CompleteText implements Provider using the chat completions API.
func (c *OpenAIClient) CompleteText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	return c.chat(ctx, []oaiMessage{{Role: "user", Content: prompt}}, opts)
}

// AnalyzeImage implements Provider using a vision content part.
func (c *OpenAIClient) AnalyzeImage(ctx context.Context, imageURL, prompt string, opts TextOptions) (string, error) {
	content := []oaiContentPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &oaiImageURL{URL: imageURL}},
	}
	return c.chat(ctx, []oaiMessage{{Role: "user", Content: content}}, opts)
}

// GenerateImage implements Provider using the images API.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	reqBody := oaiImageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   imageSize(opts),
	}
	var resp oaiImageResponse
	if err := c.doJSON(ctx, c.baseURL+"/images/generations", reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].URL) == "" {
		return "", parseErr(openAIProviderName, "image response missing url")
	}
	return resp.Data[0].URL, nil
}

func (c *OpenAIClient) chat(ctx context.Context, messages []oaiMessage, opts TextOptions) (string, error) {
	reqBody := oaiChatRequest{
		Model:    c.chatModel,
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = &opts.Temperature
	}
	var resp oaiChatResponse
	if err := c.doJSON(ctx, c.baseURL+"/chat/completions", reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", parseErr(openAIProviderName, "response has no choices")
	}
	text, ok := resp.Choices[0].Message.Content.(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "", parseErr(openAIProviderName, "response message content empty")
	}
	return strings.TrimSpace(text), nil
}

func (c *OpenAIClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return parseErr(openAIProviderName, "encode request: "+err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return upstreamErr(openAIProviderName, 0, "build request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstreamErr(openAIProviderName, 0, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return upstreamErr(openAIProviderName, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return parseErr(openAIProviderName, "decode response: "+err.Error())
	}
	return nil
}

func imageSize(opts ImageOptions) string {
	if opts.Width > 0 && opts.Height > 0 {
		return fmt.Sprintf("%dx%d", opts.Width, opts.Height)
	}
	return "1024x1024"
}

// OpenAI-compatible request/response types.

type oaiContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *oaiImageURL `json:"image_url,omitempty"`
}

type oaiImageURL struct {
	URL string `json:"url"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiImageRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type oaiImageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
