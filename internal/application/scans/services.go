package scans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/nutrisift/internal/application"
	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	"github.com/bryanwahyu/nutrisift/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/nutrisift/internal/domain/scans"
)

const (
	DefaultTimeout = 60 * time.Second
	rawExcerptLen  = 500
)

// ErrNotFound dikembalikan kalau scan tidak ada untuk tenant tsb
var ErrNotFound = errors.New("scan not found")

// Service implements use-cases untuk Scan.
// Repo, Images, Errors dan Cache boleh nil; tanpa Repo history tidak disimpan.
type Service struct {
	Vision   ai.Vision
	Provider string
	Model    string
	Engine   *analysis.Engine

	Repo   domain.Repository
	Images domain.ImageStore
	Errors scanerrors.Repository
	Cache  domain.RecordCache

	Clock   application.Clock
	Logger  *zap.Logger
	Timeout time.Duration
}

//
// ==== USE CASES ====
//

// Command untuk analisa satu foto label
type AnalyzeCommand struct {
	TenantID string
	Image    ai.Image
}

// Result is what the recovery pipeline produces from one raw model response.
type Result struct {
	Record   *analysis.Record
	Strategy analysis.Strategy
	Rules    []string
}

// Finalize runs extraction, validation and the rule engine on a raw response.
// Dipakai juga oleh CLI `recover` supaya hasilnya sama persis dengan API.
func Finalize(engine *analysis.Engine, raw string) (Result, error) {
	if engine == nil {
		engine = analysis.DefaultEngine()
	}
	obj, strategy, err := analysis.ExtractWithStrategy(raw)
	if err != nil {
		return Result{}, err
	}
	rec, err := analysis.Validate(obj)
	if err != nil {
		return Result{}, err
	}
	final, fired := engine.ApplyTrace(rec)
	return Result{Record: final, Strategy: strategy, Rules: fired}, nil
}

// Analyze: panggil model → recover JSON → validasi → rules → simpan
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Scan, error) {
	log := s.logger().With(zap.String("tenant", cmd.TenantID))
	id := domain.ScanID(uuid.New().String())
	log = log.With(zap.String("scan_id", string(id)))

	if len(cmd.Image.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ai.ErrInvalidImage)
	}

	raw, err := s.describe(ctx, cmd.Image)
	if err != nil {
		log.Warn("model call failed", zap.Error(err))
		s.recordFailure(cmd.TenantID, id, scanerrors.PhaseUpstream, err, "")
		return nil, err
	}

	res, err := Finalize(s.Engine, raw)
	if err != nil {
		phase := scanerrors.PhaseExtraction
		if errors.Is(err, analysis.ErrSchema) {
			phase = scanerrors.PhaseSchema
		}
		log.Warn("model response rejected", zap.String("phase", string(phase)), zap.Error(err))
		s.recordFailure(cmd.TenantID, id, phase, err, raw)
		return nil, err
	}
	if len(res.Rules) > 0 {
		log.Debug("rules corrected record", zap.Strings("rules", res.Rules))
	}

	scan := &domain.Scan{
		ID:        id,
		TenantID:  cmd.TenantID,
		CreatedAt: s.now(),
		Provider:  s.Provider,
		Model:     s.Model,
		Strategy:  res.Strategy.String(),
		Rules:     res.Rules,
		Record:    res.Record,
	}

	// record sudah final dari sini; kegagalan storage cuma di-log
	if s.Images != nil {
		key := fmt.Sprintf("%s/%s%s", cmd.TenantID, id, cmd.Image.Extension())
		url, err := s.Images.Upload(ctx, key, cmd.Image.Data, cmd.Image.ContentType())
		if err != nil {
			log.Warn("image upload failed", zap.Error(err))
		} else {
			scan.ImageURL = url
		}
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, scan); err != nil {
			log.Error("save scan failed", zap.Error(err))
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, cmd.TenantID, id, scan.Record); err != nil {
			log.Warn("cache put failed", zap.Error(err))
		}
	}
	return scan, nil
}

func (s *Service) describe(ctx context.Context, img ai.Image) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := s.Vision.DescribeLabel(cctx, img)
	if err != nil {
		return "", ai.AsUpstream(s.Provider, err)
	}
	return raw, nil
}

// recordFailure nulis ke failure log; pakai context baru supaya
// request yang sudah di-cancel tetap tercatat.
func (s *Service) recordFailure(tenant string, id domain.ScanID, phase scanerrors.Phase, cause error, raw string) {
	if s.Errors == nil {
		return
	}
	details := map[string]any{"provider": s.Provider}
	var se *analysis.SchemaError
	if errors.As(cause, &se) {
		details["path"] = se.Path
		details["reason"] = se.Reason
	}
	var ue *ai.UpstreamError
	if errors.As(cause, &ue) {
		details["kind"] = string(ue.Kind)
		if ue.Status != 0 {
			details["status"] = ue.Status
		}
	}
	if raw != "" {
		details["raw_excerpt"] = excerpt(raw, rawExcerptLen)
	}
	b, _ := json.Marshal(details)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Errors.Save(ctx, &scanerrors.ScanError{
		TenantID:    tenant,
		ScanID:      string(id),
		Provider:    s.Provider,
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: string(b),
		CreatedAt:   s.now(),
	})
	if err != nil {
		s.logger().Error("save scan error failed", zap.String("scan_id", string(id)), zap.Error(err))
	}
}

// Latest ambil N scan terakhir
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Scan, error) {
	if s.Repo == nil {
		return []*domain.Scan{}, nil
	}
	return s.Repo.Latest(ctx, tenant, limit)
}

// Get ambil 1 scan by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.ScanID) (*domain.Scan, error) {
	if s.Repo == nil {
		return nil, ErrNotFound
	}
	scan, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if scan == nil {
		return nil, ErrNotFound
	}
	return scan, nil
}

// Paginate ambil history per halaman
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if s.Repo == nil {
		return domain.NewPaginatedResult(nil, page, pageSize, 0), nil
	}
	data, total, err := s.Repo.Paginate(ctx, tenant, page, pageSize)
	if err != nil {
		return domain.PaginatedResult{}, err
	}
	return domain.NewPaginatedResult(data, page, pageSize, total), nil
}

// Summary rekap hasil scan N hari terakhir
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (domain.Summary, error) {
	if s.Repo == nil {
		return domain.Summary{}, nil
	}
	return s.Repo.Summary(ctx, tenant, application.DaysAgo(s.clock(), sinceDays))
}

// Failures list failure log untuk satu scan; scanID kosong = terbaru untuk tenant
func (s *Service) Failures(ctx context.Context, tenant, scanID string, limit int) ([]*scanerrors.ScanError, error) {
	if s.Errors == nil {
		return []*scanerrors.ScanError{}, nil
	}
	if scanID == "" {
		return s.Errors.Latest(ctx, tenant, limit)
	}
	return s.Errors.ListByScan(ctx, tenant, scanID, limit)
}

// helper
func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) now() time.Time { return s.clock().Now() }

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
