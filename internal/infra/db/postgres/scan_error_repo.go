package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/nutrisift/internal/domain/scanerrors"
	"github.com/bryanwahyu/nutrisift/internal/infra/db/scanrow"
)

type ScanErrorRepository struct{ db *sql.DB }

func NewScanErrorRepository(db *sql.DB) *ScanErrorRepository { return &ScanErrorRepository{db: db} }

func (r *ScanErrorRepository) Save(ctx context.Context, e *domain.ScanError) error {
	const q = `
INSERT INTO label_scan_errors
  (tenant_id, scan_id, provider, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id;`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return r.db.QueryRowContext(ctx, q,
		scanrow.StringOrDash(e.TenantID),
		scanrow.StringOrDash(e.ScanID),
		scanrow.StringOrDash(e.Provider),
		scanrow.StringOrDash(string(e.Phase)),
		msg,
		scanrow.DetailsOrEmpty(e.DetailsJSON),
		created,
	).Scan(&e.ID)
}

func (r *ScanErrorRepository) ListByScan(ctx context.Context, tenant string, scanID string, limit int) ([]*domain.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, scan_id, provider, phase, message, details_json, created_at
FROM label_scan_errors
WHERE tenant_id = $1 AND scan_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
	return r.list(ctx, q, tenant, scanID, limit)
}

func (r *ScanErrorRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, scan_id, provider, phase, message, details_json, created_at
FROM label_scan_errors
WHERE tenant_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	return r.list(ctx, q, tenant, limit)
}

func (r *ScanErrorRepository) list(ctx context.Context, q string, args ...any) ([]*domain.ScanError, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.ScanError{}
	for rows.Next() {
		var e domain.ScanError
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ScanID, &e.Provider, &e.Phase, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
