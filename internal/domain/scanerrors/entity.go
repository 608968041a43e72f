package scanerrors

import "time"

// Phase tells which pipeline step stopped the submission.
type Phase string

const (
	PhaseInput      Phase = "input"
	PhaseUpstream   Phase = "upstream"
	PhaseExtraction Phase = "extraction"
	PhaseSchema     Phase = "schema"
)

// ScanError represents a persisted failure entry for one submission
type ScanError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	ScanID      string    `json:"scan_id"`
	Provider    string    `json:"provider,omitempty"`
	Phase       Phase     `json:"phase"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
