package configuration

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/business"
	"github.com/erp/backoffice/internal/domain/job"
	"github.com/erp/backoffice/internal/domain/realtime"
)

// Follow-up names used in logs and metrics
const (
	EffectCache  = "cache_invalidation"
	EffectNotify = "notification"
	EffectJob    = "job_enqueue"
)

// afterCommit runs the follow-ups of a committed batch. They are detached
// from the request context, bounded by the side effect timeout, and their
// failures are logged, never returned.
func (s *Service) afterCommit(ctx context.Context, req ApplyRequest, p *plan) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
	defer cancel()

	var result *multierror.Error
	fail := func(effect string, err error) {
		s.metrics.RecordSideEffectFailure(ctx, effect)
		result = multierror.Append(result, fmt.Errorf("%s: %w", effect, err))
	}

	if s.cache != nil {
		if err := s.invalidate(ctx, req.BusinessID); err != nil {
			fail(EffectCache, err)
		}
	}

	if s.notifier != nil {
		if err := s.notify(ctx, req); err != nil {
			fail(EffectNotify, err)
		}
	}

	if s.jobs != nil && p.stockArea != nil {
		j := job.New(job.CodeOnlineShopStockRecheck, map[string]any{
			job.ParamBusinessID:     req.BusinessID.String(),
			job.ParamAreaID:         p.stockArea.next,
			job.ParamPreviousAreaID: p.stockArea.previous,
		})
		if err := s.jobs.Enqueue(ctx, j, job.DefaultOptions()); err != nil {
			fail(EffectJob, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		s.logger.Warn("Configuration follow-ups failed",
			zap.String("business_id", req.BusinessID.String()),
			zap.Int("failures", result.Len()),
			zap.Error(err),
		)
	}
}

func (s *Service) notify(ctx context.Context, req ApplyRequest) error {
	b, err := s.businesses.FindByID(ctx, req.BusinessID)
	if err != nil {
		return fmt.Errorf("failed to load business: %w", err)
	}
	settings, err := s.settings.FindNonSensitive(ctx, req.BusinessID)
	if err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}

	return s.notifier.Emit(ctx, realtime.Notification{
		Event:   realtime.EventBusinessUpdate,
		Room:    realtime.BusinessRoom(req.BusinessID),
		Payload: business.NewSnapshot(b, settings),
		Meta: realtime.Meta{
			ActorID:   req.Actor.ID,
			ActorName: req.Actor.DisplayName(),
			OriginTag: req.Origin,
		},
	})
}
