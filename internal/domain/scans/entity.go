package scans

import (
	"time"

	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
)

// ID tipe untuk Scan
type ScanID string

// Aggregate Root: Scan, satu kali submit foto label
type Scan struct {
	ID        ScanID           `json:"id"`
	TenantID  string           `json:"tenant_id"`
	CreatedAt time.Time        `json:"created_at"`
	ImageURL  string           `json:"image_url,omitempty"`
	Provider  string           `json:"provider"`
	Model     string           `json:"model,omitempty"`
	Strategy  string           `json:"strategy"`
	Rules     []string         `json:"rules_fired,omitempty"`
	Record    *analysis.Record `json:"record"`
}

// Summary rekap scan dalam rentang waktu
type Summary struct {
	TotalScans   int     `json:"total_scans"`
	NonHalal     int     `json:"non_halal"`
	Syubhat      int     `json:"syubhat"`
	Anomalies    int     `json:"anomalies"`
	AverageScore float64 `json:"average_score"`
}
