package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction matches any *ExtractionError via errors.Is.
	ErrExtraction = errors.New("extraction failure")
	// ErrSchema matches any *SchemaError via errors.Is.
	ErrSchema = errors.New("schema violation")
)

// ExtractionError means no strategy recovered a parseable object.
type ExtractionError struct {
	// Attempts holds the parse error of each strategy that got far enough to try.
	Attempts []error
}

func (e *ExtractionError) Error() string {
	if len(e.Attempts) == 0 {
		return "extraction failure: no JSON object found in model output"
	}
	return fmt.Sprintf("extraction failure: no JSON object found in model output (last error: %v)", e.Attempts[len(e.Attempts)-1])
}

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// SchemaError names the path of the first field that broke the contract.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func missing(path string) *SchemaError {
	return &SchemaError{Path: path, Reason: "required field is missing"}
}

func wrongType(path, want string) *SchemaError {
	return &SchemaError{Path: path, Reason: "must be " + want}
}
