package ai

import (
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/infra/ai/gemini"
	"github.com/bryanwahyu/nutrisift/internal/infra/ai/openai"
)

// Options subset dari config.AI yang dibutuhkan provider
type Options struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	SugarTerms []string
}

// New pilih provider berdasarkan nama
func New(opts Options) (domain.Client, error) {
	if opts.APIKey == "" {
		return nil, &domain.UpstreamError{Kind: domain.KindConfiguration, Provider: opts.Provider, Err: errors.New("ai.api_key is empty")}
	}
	switch opts.Provider {
	case openai.ProviderName:
		c := openai.NewClient(opts.APIKey, opts.Model, opts.BaseURL)
		c.SugarTerms = opts.SugarTerms
		return c, nil
	case gemini.ProviderName, "":
		c := gemini.NewClient(opts.APIKey, opts.Model, opts.BaseURL)
		c.SugarTerms = opts.SugarTerms
		return c, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}

// ModelOf returns the model name a client was built with.
func ModelOf(c domain.Client) string {
	switch v := c.(type) {
	case *openai.Client:
		return v.Model
	case *gemini.Client:
		return v.Model
	}
	return ""
}
