package ai

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const defaultMIME = "image/jpeg"

// Image is one decoded label photo.
type Image struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the payload without any data-URI prefix.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURI returns the payload as data:<mime>;base64,<data>.
func (i Image) DataURI() string {
	return "data:" + i.ContentType() + ";base64," + i.Base64()
}

// ContentType is the MIME type, image/jpeg when unknown.
func (i Image) ContentType() string {
	if i.MIMEType == "" {
		return defaultMIME
	}
	return i.MIMEType
}

// Extension is used for object keys.
func (i Image) Extension() string {
	switch i.ContentType() {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}

// ParseImagePayload accepts plain base64 or a data URI
// ("data:image/png;base64,...") and decodes it.
func ParseImagePayload(payload string) (Image, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Image{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	img := Image{MIMEType: defaultMIME}
	if i := strings.Index(payload, "base64,"); i != -1 {
		prefix := payload[:i]
		payload = payload[i+len("base64,"):]
		if strings.HasPrefix(prefix, "data:") {
			if mime := strings.TrimSuffix(strings.TrimPrefix(prefix, "data:"), ";"); strings.HasPrefix(mime, "image/") {
				img.MIMEType = mime
			}
		}
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	img.Data = data
	return img, nil
}

// NewImage wraps raw bytes from an upload or a file.
func NewImage(data []byte, mime string) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = defaultMIME
	}
	return Image{Data: data, MIMEType: mime}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
