package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/infra/ai/prompt"
)

const (
	ProviderName = "openai"
	DefaultModel = "gpt-4o-mini"
	maxTokens    = 8192
)

type Client struct {
	*openai.Client
	Model      string
	SugarTerms []string
}

// NewClient; baseURL kosong = api.openai.com, isi untuk gateway yang kompatibel
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Name() string { return ProviderName }

// DescribeLabel sends the instruction prompt plus the photo as a data URI.
func (c *Client) DescribeLabel(ctx context.Context, img ai.Image) (string, error) {
	req := c.request([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.GetLabelPrompt()},
		{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt.GetLabelUserPrompt(c.SugarTerms)},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    img.DataURI(),
				Detail: openai.ImageURLDetailHigh,
			}},
		}},
	})
	return c.complete(ctx, req)
}

// Answer kirim satu prompt chat apa adanya
func (c *Client) Answer(ctx context.Context, p string) (string, error) {
	req := c.request([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: p},
	})
	return c.complete(ctx, req)
}

func (c *Client) request(msgs []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{Model: c.Model, Messages: msgs}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		// 0 di-omit oleh omitempty, jadi pakai nilai terkecil
		req.Temperature = math.SmallestNonzeroFloat32
	}
	return req
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ai.UpstreamError{Kind: ai.KindGeneric, Provider: ProviderName, Err: errors.New("empty choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ai.NewStatusError(ProviderName, apiErr.HTTPStatusCode, fmt.Errorf("failed to create chat completion: %w", err))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ai.NewStatusError(ProviderName, reqErr.HTTPStatusCode, fmt.Errorf("failed to create chat completion: %w", err))
	}
	return ai.AsUpstream(ProviderName, fmt.Errorf("failed to create chat completion: %w", err))
}
