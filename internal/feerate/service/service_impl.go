package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/feerate/domain"
	obsmetrics "github.com/smallbiznis/eventledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxPublishAttempts = 3

type Params struct {
	fx.In

	Log        *zap.Logger
	Repo       domain.Repository
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service keeps the latest snapshot in memory. Readers get the pointer
// that was current when they asked and keep it for the whole calculation;
// a concurrent Publish swaps the pointer without touching theirs.
type Service struct {
	log        *zap.Logger
	repo       domain.Repository
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics

	current   atomic.Pointer[domain.Snapshot]
	publishMu sync.Mutex
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("feerate.service"),
		repo:       p.Repo,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

var _ domain.Service = (*Service)(nil)

func (s *Service) Current(ctx context.Context) (*domain.Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrNoRatesPublished
	}
	return snap, nil
}

func (s *Service) Resolve(ctx context.Context, version int64) (*domain.Snapshot, error) {
	if version <= 0 {
		return s.Current(ctx)
	}
	return s.Get(ctx, version)
}

func (s *Service) Get(ctx context.Context, version int64) (*domain.Snapshot, error) {
	if snap := s.current.Load(); snap != nil && snap.Version == version {
		return snap, nil
	}
	snap, err := s.repo.Get(ctx, version)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrVersionNotFound
	}
	return snap, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	return s.repo.List(ctx, limit)
}

// Refresh reloads the newest version from the store, for instances that
// did not publish it themselves.
func (s *Service) Refresh(ctx context.Context) error {
	latest, err := s.repo.Latest(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}
	for {
		cur := s.current.Load()
		if cur != nil && cur.Version >= latest.Version {
			return nil
		}
		if s.current.CompareAndSwap(cur, latest) {
			return nil
		}
	}
}

func (s *Service) Publish(ctx context.Context, req domain.PublishRequest) (*domain.Snapshot, bool, error) {
	table, err := domain.FromDocument(domain.ToDocument(req.Table))
	if err != nil {
		return nil, false, err
	}
	checksum, err := domain.Checksum(table)
	if err != nil {
		return nil, false, err
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = domain.SourceManual
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		latest, err := s.repo.Latest(ctx)
		if err != nil {
			return nil, false, err
		}
		if latest != nil && latest.Checksum == checksum {
			s.store(latest)
			return latest, false, nil
		}

		var next int64 = 1
		if latest != nil {
			next = latest.Version + 1
		}
		snap := &domain.Snapshot{
			Version:   next,
			Table:     table,
			Checksum:  checksum,
			Source:    source,
			Note:      strings.TrimSpace(req.Note),
			CreatedBy: strings.TrimSpace(req.CreatedBy),
			CreatedAt: s.clock.Now(),
		}
		err = s.repo.Insert(ctx, snap)
		if errors.Is(err, domain.ErrVersionConflict) {
			// another instance published concurrently
			continue
		}
		if err != nil {
			return nil, false, err
		}

		s.store(snap)
		s.obsMetrics.RecordRateVersion(ctx, source)
		s.log.Info("fee rates published",
			zap.Int64("version", snap.Version),
			zap.String("source", source),
			zap.String("checksum", checksum),
		)
		return snap, true, nil
	}
	return nil, false, domain.ErrVersionConflict
}

func (s *Service) store(snap *domain.Snapshot) {
	for {
		cur := s.current.Load()
		if cur != nil && cur.Version >= snap.Version {
			return
		}
		if s.current.CompareAndSwap(cur, snap) {
			return
		}
	}
}
