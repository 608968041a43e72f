package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	"github.com/bryanwahyu/nutrisift/internal/domain/scans"
	"github.com/bryanwahyu/nutrisift/internal/infra/ai/prompt"
)

// FallbackReply dikirim ke user kalau model gagal menjawab
const FallbackReply = "Maaf, saya sedang pusing. Coba tanya lagi."

var (
	ErrChatUnavailable = errors.New("chat unavailable")
	ErrEmptyQuestion   = errors.New("message is required")
	ErrNoContext       = errors.New("product context not found")
)

// Service meneruskan pertanyaan user plus record ke model chat.
// Cache dan Repo opsional, hanya dipakai kalau context dikirim lewat scan ID.
type Service struct {
	Chatter ai.Chatter
	Cache   scans.RecordCache
	Repo    scans.Repository
	Logger  *zap.Logger
	Timeout time.Duration
}

type AskCommand struct {
	TenantID string
	Question string
	Context  *analysis.Record
	ScanID   string
}

// Ask returns the model reply unmodified. Upstream failures return
// FallbackReply together with ErrChatUnavailable.
func (s *Service) Ask(ctx context.Context, cmd AskCommand) (string, error) {
	if strings.TrimSpace(cmd.Question) == "" {
		return "", ErrEmptyQuestion
	}
	rec, err := s.resolveContext(ctx, cmd)
	if err != nil {
		return "", err
	}
	p, err := prompt.GetChatPrompt(rec, cmd.Question)
	if err != nil {
		return "", err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := s.Chatter.Answer(cctx, p)
	if err != nil {
		s.logger().Warn("chat failed", zap.String("tenant", cmd.TenantID), zap.Error(err))
		return FallbackReply, fmt.Errorf("%w: %v", ErrChatUnavailable, err)
	}
	return reply, nil
}

func (s *Service) resolveContext(ctx context.Context, cmd AskCommand) (*analysis.Record, error) {
	if cmd.Context != nil || cmd.ScanID == "" {
		return cmd.Context, nil
	}
	id := scans.ScanID(cmd.ScanID)
	if s.Cache != nil {
		rec, err := s.Cache.Get(ctx, cmd.TenantID, id)
		if err != nil {
			s.logger().Warn("cache get failed", zap.String("scan_id", cmd.ScanID), zap.Error(err))
		} else if rec != nil {
			return rec, nil
		}
	}
	if s.Repo != nil {
		scan, err := s.Repo.Get(ctx, cmd.TenantID, id)
		if err != nil {
			return nil, err
		}
		if scan != nil && scan.Record != nil {
			if s.Cache != nil {
				_ = s.Cache.Put(ctx, cmd.TenantID, id, scan.Record)
			}
			return scan.Record, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoContext, cmd.ScanID)
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
