package scans

import (
	"context"
	"time"

	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, s *Scan) error
	Get(ctx context.Context, tenant string, id ScanID) (*Scan, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Scan, error)
	Summary(ctx context.Context, tenant string, since time.Time) (Summary, error)

	// tambahan paginate
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Scan, int64, error)
}

// ImageStore port (interface untuk penyimpanan foto label)
type ImageStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// RecordCache port, dipakai chat untuk ambil context berdasarkan scan ID.
// Entries are scoped per tenant; Get returns (nil, nil) on a miss.
type RecordCache interface {
	Put(ctx context.Context, tenant string, id ScanID, rec *analysis.Record) error
	Get(ctx context.Context, tenant string, id ScanID) (*analysis.Record, error)
}
