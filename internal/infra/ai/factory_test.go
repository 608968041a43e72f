package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/infra/ai/gemini"
	"github.com/bryanwahyu/nutrisift/internal/infra/ai/openai"
)

func TestNew(t *testing.T) {
	c, err := New(Options{Provider: "openai", APIKey: "k", SugarTerms: []string{"madu"}})
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, c)
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, openai.DefaultModel, ModelOf(c))
	assert.Equal(t, []string{"madu"}, c.(*openai.Client).SugarTerms)

	c, err = New(Options{Provider: "gemini", APIKey: "k", Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, c)
	assert.Equal(t, "gemini-2.0-flash", ModelOf(c))

	_, err = New(Options{Provider: "bard", APIKey: "k"})
	assert.Error(t, err)
}

func TestNew_MissingKeyIsConfigurationError(t *testing.T) {
	_, err := New(Options{Provider: "gemini"})
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, domain.KindConfiguration, ue.Kind)
}
