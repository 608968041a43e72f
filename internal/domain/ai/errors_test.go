package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, KindConfiguration, KindForStatus(401))
	assert.Equal(t, KindConfiguration, KindForStatus(403))
	assert.Equal(t, KindConfiguration, KindForStatus(404))
	assert.Equal(t, KindQuota, KindForStatus(429))
	assert.Equal(t, KindGeneric, KindForStatus(500))
	assert.Equal(t, KindGeneric, KindForStatus(0))
}

func TestNewStatusError_QuotaUnwraps(t *testing.T) {
	err := NewStatusError("gemini", 429, errors.New("resource exhausted"))
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.Equal(t, KindQuota, err.Kind)
	assert.Contains(t, err.Error(), "status 429")
}

func TestAsUpstream(t *testing.T) {
	assert.Nil(t, AsUpstream("openai", nil))

	orig := NewStatusError("openai", 404, errors.New("model not found"))
	var wrapped error = orig
	assert.Same(t, orig, AsUpstream("other", wrapped))

	plain := AsUpstream("openai", errors.New("dial tcp: timeout"))
	assert.Equal(t, KindGeneric, plain.Kind)
	assert.Equal(t, "openai", plain.Provider)
}
