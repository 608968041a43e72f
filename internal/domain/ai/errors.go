package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrInvalidImage is returned when the submitted payload is not a usable image.
var ErrInvalidImage = errors.New("invalid image payload")

// FailureKind separates operator-fixable failures from everything else.
type FailureKind string

const (
	KindConfiguration FailureKind = "configuration" // missing key, wrong model, auth
	KindQuota         FailureKind = "quota"
	KindGeneric       FailureKind = "generic"
)

// UpstreamError means the model call never produced a response.
type UpstreamError struct {
	Kind     FailureKind
	Provider string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s upstream failure (%s, status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s upstream failure (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// KindForStatus maps an HTTP status from a provider to a failure kind.
func KindForStatus(status int) FailureKind {
	switch status {
	case 401, 403, 404:
		return KindConfiguration
	case 429:
		return KindQuota
	default:
		return KindGeneric
	}
}

// NewStatusError builds an UpstreamError from a provider HTTP status.
// Quota errors wrap ErrQuotaExceeded so errors.Is keeps working.
func NewStatusError(provider string, status int, err error) *UpstreamError {
	kind := KindForStatus(status)
	if kind == KindQuota {
		err = fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return &UpstreamError{Kind: kind, Provider: provider, Status: status, Err: err}
}

// AsUpstream wraps any error as a generic UpstreamError unless it already is one.
func AsUpstream(provider string, err error) *UpstreamError {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	return &UpstreamError{Kind: KindGeneric, Provider: provider, Err: err}
}
