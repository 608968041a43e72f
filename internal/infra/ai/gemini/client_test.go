package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
)

func TestDescribeLabel(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", "", srv.URL)
	raw, err := c.DescribeLabel(context.Background(), ai.Image{Data: []byte("img"), MIMEType: "image/webp"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, raw)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Contains(t, got.Contents[0].Parts[0].Text, "halal_analysis")
	require.NotNil(t, got.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/webp", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, "aW1n", got.Contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, 0.0, got.GenerationConfig.Temperature)
	assert.Equal(t, maxOutput, got.GenerationConfig.MaxOutputTokens)
}

func TestGenerate_StatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   ai.FailureKind
	}{
		{http.StatusNotFound, ai.KindConfiguration},
		{http.StatusForbidden, ai.KindConfiguration},
		{http.StatusTooManyRequests, ai.KindQuota},
		{http.StatusBadGateway, ai.KindGeneric},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			_, err := NewClient("k", "m", srv.URL).Answer(context.Background(), "hi")
			var ue *ai.UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tc.kind, ue.Kind)
			assert.Equal(t, tc.status, ue.Status)
			if tc.kind == ai.KindQuota {
				assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
			}
		})
	}
}

func TestGenerate_MissingKey(t *testing.T) {
	_, err := NewClient("", "", "").Answer(context.Background(), "hi")
	var ue *ai.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ai.KindConfiguration, ue.Kind)
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", "", srv.URL).Answer(context.Background(), "hi")
	var ue *ai.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ai.KindGeneric, ue.Kind)
}
