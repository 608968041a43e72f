package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// Object is one decoded JSON object. Numbers stay json.Number so the
// validator can tell integers from fractions without coercion.
type Object map[string]any

// Strategy names which extraction step succeeded.
type Strategy int

const (
	StrategyWhole Strategy = iota + 1
	StrategyFence
	StrategyBraces
)

func (s Strategy) String() string {
	switch s {
	case StrategyWhole:
		return "whole"
	case StrategyFence:
		return "fence"
	case StrategyBraces:
		return "braces"
	default:
		return "none"
	}
}

var fenceRx = regexp.MustCompile("(?is)```json(.*?)```")

var errNotObject = errors.New("value is not a JSON object")

// Extract recovers exactly one JSON object from raw model output.
func Extract(raw string) (Object, error) {
	obj, _, err := ExtractWithStrategy(raw)
	return obj, err
}

// ExtractWithStrategy is Extract plus the strategy that produced the object.
//
// Order: whole text, first ```json fence, first '{' through last '}'.
// Every candidate must be valid JSON on its own; nothing is repaired.
func ExtractWithStrategy(raw string) (Object, Strategy, error) {
	var attempts []error

	obj, err := decodeObject(raw)
	if err == nil {
		return obj, StrategyWhole, nil
	}
	attempts = append(attempts, err)

	if m := fenceRx.FindStringSubmatch(raw); m != nil {
		obj, err := decodeObject(m[1])
		if err == nil {
			return obj, StrategyFence, nil
		}
		attempts = append(attempts, err)
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last != -1 && first < last {
		obj, err := decodeObject(raw[first : last+1])
		if err == nil {
			return obj, StrategyBraces, nil
		}
		attempts = append(attempts, err)
	}

	return nil, 0, &ExtractionError{Attempts: attempts}
}

func decodeObject(s string) (Object, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// trailing data after the value is a syntax error, same as a strict parse
	if _, err := dec.Token(); err == nil {
		return nil, errors.New("invalid character after top-level value")
	} else if !errors.Is(err, io.EOF) {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return Object(m), nil
}

// Compact re-encodes an object; used for diagnostics and logging.
func (o Object) Compact() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(o)); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
