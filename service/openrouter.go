package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
)

// CompletionRequest is one chat completion expected to answer with a JSON object.
type CompletionRequest struct {
	APIKey      string
	Model       string
	System      string
	Prompt      string
	Temperature float32
}

// Completion is the raw JSON text plus whether the fallback path produced it.
type Completion struct {
	JSON     string
	Fallback bool
}

// ChatCompleter produces JSON text from a prompt.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// OpenRouterClient talks to OpenRouter through its OpenAI-compatible API.
type OpenRouterClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenRouterClient(baseURL string, timeout time.Duration) *OpenRouterClient {
	return &OpenRouterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OpenRouterClient) client(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(cfg)
}

// CompleteJSON asks for response_format=json_object. When the provider rejects
// the request (4xx other than auth/rate limit) it retries once without
// response_format and pulls the JSON out of the free-text reply.
func (c *OpenRouterClient) CompleteJSON(ctx context.Context, req CompletionRequest) (*Completion, error) {
	cli := c.client(req.APIKey)

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	content, err := complete(ctx, cli, chatReq)
	fallback := false
	if err != nil {
		if !retryWithoutFormat(err) {
			return nil, err
		}
		log.Warn("openrouter rejected response_format, retrying without it", "model", req.Model, "err", err)
		chatReq.ResponseFormat = nil
		content, err = complete(ctx, cli, chatReq)
		if err != nil {
			return nil, err
		}
		fallback = true
	}

	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	return &Completion{JSON: raw, Fallback: fallback}, nil
}

func complete(ctx context.Context, cli *openai.Client, req openai.ChatCompletionRequest) (string, error) {
	resp, err := cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func retryWithoutFormat(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, http.StatusPaymentRequired:
		return false
	}
	return true
}

var ErrNoJSON = errors.New("resposta da IA não contém JSON válido")

// ExtractJSON returns the first JSON object or array in s that decodes,
// tolerating markdown code fences and prose (braces included) around it.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\ufeff")
	if json.Valid([]byte(s)) && (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) {
		return s, nil
	}

	var lastErr error
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&raw); err != nil {
			lastErr = err
			continue
		}
		return string(raw), nil
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
	}
	return "", ErrNoJSON
}
