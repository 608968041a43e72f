package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/infra/ai/prompt"
)

const (
	ProviderName   = "gemini"
	DefaultModel   = "gemini-2.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	maxOutput      = 8192
)

// Client talks to the generateContent REST endpoint.
type Client struct {
	APIKey     string
	Model      string
	BaseURL    string
	SugarTerms []string
	HTTP       *http.Client
}

func NewClient(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *Client) Name() string { return ProviderName }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// DescribeLabel kirim prompt + foto sebagai inline_data
func (c *Client) DescribeLabel(ctx context.Context, img ai.Image) (string, error) {
	text := prompt.GetLabelPrompt() + "\n\n" + prompt.GetLabelUserPrompt(c.SugarTerms)
	return c.generate(ctx, []part{
		{Text: text},
		{InlineData: &inlineData{MimeType: img.ContentType(), Data: img.Base64()}},
	})
}

func (c *Client) Answer(ctx context.Context, p string) (string, error) {
	return c.generate(ctx, []part{{Text: p}})
}

func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	if c.APIKey == "" {
		return "", &ai.UpstreamError{Kind: ai.KindConfiguration, Provider: ProviderName, Err: errors.New("missing api key")}
	}

	var payload generateRequest
	payload.Contents = []content{{Role: "user", Parts: parts}}
	payload.GenerationConfig.Temperature = 0
	payload.GenerationConfig.MaxOutputTokens = maxOutput

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, url.PathEscape(c.Model), url.QueryEscape(c.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", ai.AsUpstream(ProviderName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", ai.AsUpstream(ProviderName, redact(err, c.APIKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", ai.AsUpstream(ProviderName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", ai.NewStatusError(ProviderName, resp.StatusCode, fmt.Errorf("gemini api error: %s", truncate(string(raw), 300)))
	}

	var result generateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", ai.AsUpstream(ProviderName, fmt.Errorf("decode gemini response: %w", err))
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ai.AsUpstream(ProviderName, errors.New("empty gemini response"))
	}

	// jawaban bisa terpecah ke beberapa part
	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// redact buang api key dari error url.Error
func redact(err error, key string) error {
	if key == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
