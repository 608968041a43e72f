package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	domain "github.com/bryanwahyu/nutrisift/internal/domain/scans"
	"github.com/bryanwahyu/nutrisift/internal/infra/db/scanrow"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Save insert/update Scan record
func (r *ScanRepository) Save(ctx context.Context, s *domain.Scan) error {
	const q = `
INSERT INTO label_scans
(` + scanrow.Columns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 image_url=VALUES(image_url),
 rules_fired=VALUES(rules_fired),
 health_score=VALUES(health_score), halal_status=VALUES(halal_status), anomaly=VALUES(anomaly),
 record_json=VALUES(record_json);
`
	args, err := scanrow.Values(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// Get by ID + Tenant; (nil, nil) kalau tidak ada
func (r *ScanRepository) Get(ctx context.Context, tenant string, id domain.ScanID) (*domain.Scan, error) {
	const q = `
SELECT ` + scanrow.Columns + `
FROM label_scans
WHERE tenant_id=? AND id=? LIMIT 1;
`
	s, err := scanrow.Scan(r.db.QueryRowContext(ctx, q, tenant, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// Latest scans per tenant
func (r *ScanRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + scanrow.Columns + `
FROM label_scans
WHERE tenant_id=? ORDER BY created_at DESC LIMIT ?;
`
	return r.list(ctx, q, tenant, limit)
}

// Paginate with offset + limit (classic pagination)
func (r *ScanRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Scan, int64, error) {
	limit, offset := scanrow.Offset(page, pageSize)
	const q = `
SELECT ` + scanrow.Columns + `
FROM label_scans
WHERE tenant_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	scans, err := r.list(ctx, q, tenant, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying scans: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM label_scans WHERE tenant_id = ?", tenant).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("getting total count: %w", err)
	}
	return scans, total, nil
}

// Summary rekap scan sejak waktu tertentu
func (r *ScanRepository) Summary(ctx context.Context, tenant string, since time.Time) (domain.Summary, error) {
	const q = `
SELECT COUNT(*) AS total_scans,
       COALESCE(SUM(halal_status = ?),0) AS non_halal,
       COALESCE(SUM(halal_status = ?),0) AS syubhat,
       COALESCE(SUM(anomaly),0)          AS anomalies,
       COALESCE(AVG(health_score),0)     AS avg_score
FROM label_scans
WHERE tenant_id=? AND created_at >= ?;
`
	var s domain.Summary
	err := r.db.QueryRowContext(ctx, q, string(analysis.NonHalal), string(analysis.Syubhat), tenant, since).
		Scan(&s.TotalScans, &s.NonHalal, &s.Syubhat, &s.Anomalies, &s.AverageScore)
	return s, err
}

func (r *ScanRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Scan, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Scan{}
	for rows.Next() {
		s, err := scanrow.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
