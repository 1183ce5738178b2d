// Package configuration coordinates business configuration updates: typed
// validation, cascade and guard rules, cost recalculation on a cost currency
// change, and the post-commit cache, notification and job follow-ups.
package configuration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/erp/backoffice/internal/domain/business"
	"github.com/erp/backoffice/internal/domain/costing"
	"github.com/erp/backoffice/internal/domain/currency"
	"github.com/erp/backoffice/internal/domain/job"
	"github.com/erp/backoffice/internal/domain/realtime"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/locking"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
)

// DefaultSideEffectTimeout bounds the post-commit follow-ups of one batch
const DefaultSideEffectTimeout = 10 * time.Second

// Actor is the user who submitted a batch
type Actor struct {
	ID    string
	Name  string
	Email string
}

// DisplayName returns the name, falling back to the email
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// ApplyRequest is one configuration batch
type ApplyRequest struct {
	BusinessID uuid.UUID
	Actor      Actor
	// Origin tags where the change came from, echoed to live clients
	Origin  string
	Changes []setting.Change
}

// ApplyResult describes a committed batch
type ApplyResult struct {
	// Written holds exactly the rows persisted, cascaded rows included
	Written []setting.Change
	// PreviousCostCurrency is set when the cost currency changed
	PreviousCostCurrency string
	Recalculation        *costing.Report
}

// Service applies configuration batches and serves configuration reads
type Service struct {
	scope      TransactionScope
	settings   setting.Repository
	businesses business.Repository

	registry          *setting.Registry
	recalculator      *costing.Recalculator
	locks             *locking.KeyedMutex
	cache             setting.Cache
	notifier          realtime.Notifier
	jobs              job.Queue
	metrics           *telemetry.ConfigurationMetrics
	logger            *zap.Logger
	sideEffectTimeout time.Duration

	reads singleflight.Group
	// generations counts cache invalidations per business
	generations sync.Map
}

// ServiceOption is a functional option for configuring Service
type ServiceOption func(*Service)

// WithRegistry sets the setting registry. Defaults to setting.DefaultRegistry.
func WithRegistry(r *setting.Registry) ServiceOption {
	return func(s *Service) { s.registry = r }
}

// WithRecalculator sets the cost recalculator
func WithRecalculator(r *costing.Recalculator) ServiceOption {
	return func(s *Service) { s.recalculator = r }
}

// WithLocks shares a keyed mutex with other services of the process
func WithLocks(l *locking.KeyedMutex) ServiceOption {
	return func(s *Service) { s.locks = l }
}

// WithCache sets the configuration read cache
func WithCache(c setting.Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithNotifier sets the live-update notifier
func WithNotifier(n realtime.Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithJobQueue sets the follow-up job queue
func WithJobQueue(q job.Queue) ServiceOption {
	return func(s *Service) { s.jobs = q }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *telemetry.ConfigurationMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithSideEffectTimeout bounds the post-commit follow-ups
func WithSideEffectTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.sideEffectTimeout = d
		}
	}
}

// NewService creates a configuration service. Cache, notifier and job queue
// are optional; their follow-ups are skipped when unset.
func NewService(scope TransactionScope, settings setting.Repository, businesses business.Repository, opts ...ServiceOption) *Service {
	s := &Service{
		scope:             scope,
		settings:          settings,
		businesses:        businesses,
		registry:          setting.DefaultRegistry(),
		recalculator:      costing.NewRecalculator(costing.DefaultBatchSize, currency.DefaultMissingRatePolicy),
		locks:             locking.NewKeyedMutex(),
		logger:            zap.NewNop(),
		sideEffectTimeout: DefaultSideEffectTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the setting registry in use
func (s *Service) Registry() *setting.Registry {
	return s.registry
}

// ApplyConfigurationBatch validates and applies a batch of changes in one
// transaction. Either every change is written or none is.
func (s *Service) ApplyConfigurationBatch(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	if req.BusinessID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("business id is required")
	}
	if len(req.Changes) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("at least one configuration change is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "configuration.apply",
		telemetry.WithAttribute(telemetry.SpanAttrBusinessID, req.BusinessID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrChangeCount, len(req.Changes)),
	)
	defer span.End()

	ctx = logger.WithBusinessID(ctx, req.BusinessID.String())
	if req.Actor.ID != "" {
		ctx = logger.WithActorID(ctx, req.Actor.ID)
	}
	log := s.logger.With(zap.String("business_id", req.BusinessID.String()))

	unlock, err := s.locks.Lock(ctx, LockName(req.BusinessID))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire configuration lock: %w", err)
	}
	defer unlock()

	var p *plan
	err = s.scope.Execute(ctx, req.BusinessID, func(repos TransactionalRepositories) error {
		stored, err := repos.Settings().FindNonSensitive(ctx, req.BusinessID)
		if err != nil {
			return fmt.Errorf("failed to load configurations: %w", err)
		}

		p, err = s.buildPlan(stored, req.Changes)
		if err != nil {
			return err
		}

		if p.recalculate {
			report, err := s.recalculate(ctx, repos, req.BusinessID, p.previousCurrency, p.nextCurrency)
			if err != nil {
				return err
			}
			p.report = report
		}

		written, err := repos.Settings().BulkUpsert(ctx, req.BusinessID, p.writes)
		if err != nil {
			return fmt.Errorf("failed to save configurations: %w", err)
		}
		p.written = written
		return nil
	})
	if err != nil {
		outcome := telemetry.BatchOutcomeFailed
		if shared.CodeOf(err) != "" {
			outcome = telemetry.BatchOutcomeRejected
		}
		s.metrics.RecordBatch(ctx, req.BusinessID.String(), outcome, 0)
		telemetry.RecordError(span, err)
		log.Info("Configuration batch rejected",
			zap.Int("changes", len(req.Changes)),
			zap.String("code", shared.CodeOf(err)),
			zap.Error(err),
		)
		return nil, err
	}

	result := &ApplyResult{
		Written:       make([]setting.Change, len(p.written)),
		Recalculation: p.report,
	}
	for i, row := range p.written {
		result.Written[i] = setting.Change{Key: row.Key, Value: row.Value}
	}
	if p.recalculate {
		result.PreviousCostCurrency = p.previousCurrency
	}

	s.metrics.RecordBatch(ctx, req.BusinessID.String(), telemetry.BatchOutcomeApplied, len(result.Written))
	telemetry.SetAttribute(span, telemetry.SpanAttrWrittenCount, len(result.Written))
	log.Info("Configuration batch applied",
		zap.Int("changes", len(req.Changes)),
		zap.Int("written", len(result.Written)),
		zap.Bool("recalculated", p.recalculate),
	)

	s.afterCommit(ctx, req, p)
	return result, nil
}

// plan is the validated outcome of a batch before it is written
type plan struct {
	writes           []setting.Change
	recalculate      bool
	previousCurrency string
	nextCurrency     string
	stockArea        *valueChange

	report  *costing.Report
	written []setting.Setting
}

type valueChange struct {
	previous string
	next     string
}

func (s *Service) buildPlan(stored []setting.Setting, changes []setting.Change) (*plan, error) {
	// Rules compare canonical values, stored rows may predate normalization
	current := s.registry.Canonicalize(setting.ValuesOf(stored))

	var missing []string
	for _, c := range changes {
		if _, ok := current[c.Key]; !ok {
			missing = append(missing, c.Key)
		}
	}
	if len(missing) > 0 {
		return nil, shared.ErrNotFound.WithMessage(
			fmt.Sprintf("configuration not found: %s", strings.Join(missing, ", ")))
	}

	// Later duplicates of a key override earlier ones and keep the first position
	tentative := current.Clone()
	var order []string
	seen := make(map[string]bool, len(changes))
	for _, c := range changes {
		value, err := s.registry.Normalize(c.Key, c.Value)
		if err != nil {
			return nil, err
		}
		tentative[c.Key] = value
		if !seen[c.Key] {
			seen[c.Key] = true
			order = append(order, c.Key)
		}
	}

	for _, forced := range s.registry.Cascade(tentative) {
		if _, ok := current[forced.Key]; !ok {
			// Only settings the business already has are ever written
			delete(tentative, forced.Key)
			continue
		}
		if !seen[forced.Key] && tentative[forced.Key] != current[forced.Key] {
			seen[forced.Key] = true
			order = append(order, forced.Key)
		}
	}

	if err := s.registry.CheckGuards(s.registry.WithDefaults(tentative)); err != nil {
		return nil, err
	}

	p := &plan{writes: make([]setting.Change, 0, len(order))}
	for _, key := range order {
		p.writes = append(p.writes, setting.Change{Key: key, Value: tentative[key]})
	}

	if seen[setting.KeyGeneralCostCurrency] {
		previous := current[setting.KeyGeneralCostCurrency]
		if previous == "" {
			previous = s.defaultValue(setting.KeyGeneralCostCurrency)
		}
		next := tentative[setting.KeyGeneralCostCurrency]
		if next != "" && next != previous {
			p.recalculate = true
			p.previousCurrency = previous
			p.nextCurrency = next
		}
	}

	if seen[setting.KeyOnlineShopAreaStock] && tentative[setting.KeyOnlineShopAreaStock] != current[setting.KeyOnlineShopAreaStock] {
		p.stockArea = &valueChange{
			previous: current[setting.KeyOnlineShopAreaStock],
			next:     tentative[setting.KeyOnlineShopAreaStock],
		}
	}
	return p, nil
}

func (s *Service) defaultValue(key string) string {
	if def, ok := s.registry.Lookup(key); ok {
		return def.Default
	}
	return ""
}

func (s *Service) recalculate(ctx context.Context, repos TransactionalRepositories, businessID uuid.UUID, from, to string) (*costing.Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.recalculate",
		telemetry.WithAttribute(telemetry.SpanAttrBusinessID, businessID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrCurrencyFrom, from),
		telemetry.WithAttribute(telemetry.SpanAttrCurrencyTo, to),
	)
	defer span.End()

	rates, err := repos.Rates().FindAllIncludingInactive(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load currency rates: %w", err)
	}

	report, err := s.recalculator.Recalculate(ctx, costing.Request{
		BusinessID:  businessID,
		From:        from,
		To:          to,
		Rates:       rates,
		Collections: repos.Collections(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, c := range report.Collections {
		s.metrics.RecordRecalculatedRows(ctx, c.Name, currency.OutcomeConverted.String(), c.Converted)
		s.metrics.RecordRecalculatedRows(ctx, c.Name, currency.OutcomeZeroed.String(), c.Zeroed)
		s.metrics.RecordRecalculatedRows(ctx, c.Name, currency.OutcomeSkipped.String(), c.Skipped)
		telemetry.AddEvent(span, "collection.recalculated",
			telemetry.SpanAttrCollection, c.Name,
			telemetry.SpanAttrRows, c.Rows,
		)
	}
	s.metrics.RecordRecalculationDuration(ctx, report.Policy, report.Duration)

	s.logger.Info("Cost recalculation finished",
		zap.String("business_id", businessID.String()),
		zap.String("from", report.From),
		zap.String("to", report.To),
		zap.String("policy", report.Policy),
		zap.Int("rows_written", report.TotalRows()),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// GetConfigurations returns the non-sensitive settings of a business,
// reading through the cache. Concurrent misses share one database read.
func (s *Service) GetConfigurations(ctx context.Context, businessID uuid.UUID) ([]setting.Setting, error) {
	if businessID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("business id is required")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, businessID)
		if err != nil {
			s.logger.Warn("Configuration cache read failed", zap.String("business_id", businessID.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	v, err, _ := s.reads.Do(businessID.String(), func() (any, error) {
		gen := s.generation(businessID)
		before := gen.Load()
		settings, err := s.settings.FindNonSensitive(ctx, businessID)
		if err != nil {
			return nil, fmt.Errorf("failed to load configurations: %w", err)
		}
		// Skip the fill when a commit invalidated the cache during the read
		if s.cache != nil && gen.Load() == before {
			if err := s.cache.Set(ctx, businessID, settings); err != nil {
				s.logger.Warn("Configuration cache fill failed", zap.String("business_id", businessID.String()), zap.Error(err))
			}
		}
		return settings, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]setting.Setting), nil
}

func (s *Service) generation(businessID uuid.UUID) *atomic.Uint64 {
	v, _ := s.generations.LoadOrStore(businessID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// invalidate drops the cached settings of a business. Reads in flight at that
// moment will not write their result back.
func (s *Service) invalidate(ctx context.Context, businessID uuid.UUID) error {
	s.generation(businessID).Add(1)
	return s.cache.Delete(ctx, businessID)
}

// Schema returns the definitions of every setting a client may edit
func (s *Service) Schema() []setting.Definition {
	defs := s.registry.Definitions()
	out := make([]setting.Definition, 0, len(defs))
	for _, d := range defs {
		if !d.Sensitive {
			out = append(out, d)
		}
	}
	return out
}

// SeedDefaults creates the registry defaults a business is missing and
// returns how many were created.
func (s *Service) SeedDefaults(ctx context.Context, businessID uuid.UUID) (int, error) {
	if businessID == uuid.Nil {
		return 0, shared.ErrInvalidInput.WithMessage("business id is required")
	}
	created, err := s.settings.SeedDefaults(ctx, businessID, s.registry.Definitions())
	if err != nil {
		return 0, fmt.Errorf("failed to seed configurations: %w", err)
	}
	if created > 0 && s.cache != nil {
		if err := s.invalidate(ctx, businessID); err != nil {
			s.logger.Warn("Configuration cache invalidation failed", zap.String("business_id", businessID.String()), zap.Error(err))
		}
	}
	s.logger.Info("Configuration defaults seeded",
		zap.String("business_id", businessID.String()),
		zap.Int("created", created),
	)
	return created, nil
}
