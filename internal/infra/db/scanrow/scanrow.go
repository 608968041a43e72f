// Package scanrow maps scans to the flat column layout shared by the SQL repositories.
package scanrow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	domain "github.com/bryanwahyu/nutrisift/internal/domain/scans"
)

// Columns urutannya harus sama dengan Values dan Scan
const Columns = `id, tenant_id, created_at, image_url, provider, model, strategy, rules_fired,
       product_name, health_score, halal_status, anomaly, record_json`

// ProductNameMax matches product_name VARCHAR(255) in migrations/.
// The full name stays in record_json.
const ProductNameMax = 255

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Values returns the insert arguments in Columns order.
func Values(s *domain.Scan) ([]any, error) {
	if s.Record == nil {
		return nil, fmt.Errorf("scan %s has no record", s.ID)
	}
	body, err := json.Marshal(s.Record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []any{
		string(s.ID),
		StringOrDash(s.TenantID),
		created,
		s.ImageURL,
		StringOrDash(s.Provider),
		s.Model,
		StringOrDash(s.Strategy),
		strings.Join(s.Rules, ","),
		Truncate(s.Record.ProductName, ProductNameMax),
		s.Record.HealthScore,
		string(s.Record.HalalAnalysis.Status),
		s.Record.HasAnomaly(),
		string(body),
	}, nil
}

// Scan reads one row in Columns order.
func Scan(row Scanner) (*domain.Scan, error) {
	var (
		s                   domain.Scan
		id, rules, body     string
		productName, status string
		score               int
		anomaly             bool
	)
	if err := row.Scan(&id, &s.TenantID, &s.CreatedAt, &s.ImageURL, &s.Provider, &s.Model, &s.Strategy, &rules,
		&productName, &score, &status, &anomaly, &body); err != nil {
		return nil, err
	}
	s.ID = domain.ScanID(id)
	s.Rules = SplitRules(rules)

	var rec analysis.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode record for scan %s: %w", id, err)
	}
	s.Record = &rec
	return &s, nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func SplitRules(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// DetailsOrEmpty makes sure details_json always holds valid JSON;
// invalid input is wrapped as {"raw": "..."}.
func DetailsOrEmpty(details string) string {
	if strings.TrimSpace(details) == "" {
		return "{}"
	}
	if !json.Valid([]byte(details)) {
		b, _ := json.Marshal(map[string]string{"raw": details})
		return string(b)
	}
	return details
}

// Offset converts page/pageSize into LIMIT/OFFSET with defaults.
func Offset(page, pageSize int) (limit, offset int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}
