package ai

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func TestParseImagePayload(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(pngBytes)

	tests := []struct {
		name    string
		payload string
		mime    string
	}{
		{"plain base64", b64, "image/jpeg"},
		{"data uri png", "data:image/png;base64," + b64, "image/png"},
		{"data uri webp", "data:image/webp;base64," + b64, "image/webp"},
		{"non image data uri", "data:text/plain;base64," + b64, "image/jpeg"},
		{"wrapped lines", b64[:4] + "\n" + b64[4:], "image/jpeg"},
		{"unpadded", base64.RawStdEncoding.EncodeToString(pngBytes), "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseImagePayload(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, pngBytes, img.Data)
			assert.Equal(t, tt.mime, img.MIMEType)
		})
	}
}

func TestParseImagePayload_Invalid(t *testing.T) {
	for _, p := range []string{"", "   ", "data:image/png;base64,", "%%%not-base64%%%"} {
		_, err := ParseImagePayload(p)
		require.Error(t, err, p)
		assert.True(t, errors.Is(err, ErrInvalidImage))
	}
}

func TestImage_Encodings(t *testing.T) {
	img := Image{Data: pngBytes, MIMEType: "image/png"}
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes), img.DataURI())
	assert.Equal(t, ".png", img.Extension())

	assert.Equal(t, ".jpg", Image{Data: pngBytes}.Extension())
	assert.Contains(t, Image{Data: pngBytes}.DataURI(), "data:image/jpeg;base64,")
}

func TestNewImage(t *testing.T) {
	img, err := NewImage(pngBytes, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	_, err = NewImage(nil, "image/png")
	assert.ErrorIs(t, err, ErrInvalidImage)
}
