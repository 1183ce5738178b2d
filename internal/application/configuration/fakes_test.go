package configuration

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/erp/backoffice/internal/domain/business"
	"github.com/erp/backoffice/internal/domain/costing"
	"github.com/erp/backoffice/internal/domain/currency"
	"github.com/erp/backoffice/internal/domain/job"
	"github.com/erp/backoffice/internal/domain/realtime"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
)

// memorySettings is an in-memory setting.Repository keeping insertion order
type memorySettings struct {
	mu    sync.Mutex
	rows  map[uuid.UUID][]setting.Setting
	reads int
}

func newMemorySettings() *memorySettings {
	return &memorySettings{rows: make(map[uuid.UUID][]setting.Setting)}
}

func (r *memorySettings) FindNonSensitive(_ context.Context, businessID uuid.UUID) ([]setting.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	var out []setting.Setting
	for _, s := range r.rows[businessID] {
		if !s.IsSensitive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memorySettings) BulkUpsert(_ context.Context, businessID uuid.UUID, changes []setting.Change) ([]setting.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	written := make([]setting.Setting, 0, len(changes))
	for _, c := range changes {
		rows := r.rows[businessID]
		found := false
		for i := range rows {
			if rows[i].Key == c.Key {
				rows[i].Value = c.Value
				written = append(written, rows[i])
				found = true
				break
			}
		}
		if !found {
			s := setting.NewSetting(businessID, c.Key, c.Value)
			r.rows[businessID] = append(rows, *s)
			written = append(written, *s)
		}
	}
	return written, nil
}

func (r *memorySettings) SeedDefaults(_ context.Context, businessID uuid.UUID, defs []setting.Definition) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := setting.ValuesOf(r.rows[businessID])
	created := 0
	for _, d := range defs {
		if _, ok := existing[d.Key]; ok {
			continue
		}
		s := setting.NewSetting(businessID, d.Key, d.Default)
		s.IsSensitive = d.Sensitive
		r.rows[businessID] = append(r.rows[businessID], *s)
		created++
	}
	return created, nil
}

func (r *memorySettings) values(businessID uuid.UUID) setting.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return setting.ValuesOf(r.rows[businessID])
}

func (r *memorySettings) snapshot() map[uuid.UUID][]setting.Setting {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID][]setting.Setting, len(r.rows))
	for id, rows := range r.rows {
		out[id] = append([]setting.Setting(nil), rows...)
	}
	return out
}

func (r *memorySettings) restore(rows map[uuid.UUID][]setting.Setting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

type memoryRates struct {
	rates []currency.Rate
}

func (r *memoryRates) FindAllIncludingInactive(_ context.Context, _ uuid.UUID) ([]currency.Rate, error) {
	return r.rates, nil
}

// memoryCollection is a cost collection counting its update batches
type memoryCollection struct {
	name    string
	amounts map[uuid.UUID]decimal.Decimal
	order   []uuid.UUID
	batches []int
}

func newMemoryCollection(name string, n int, amount decimal.Decimal) *memoryCollection {
	c := &memoryCollection{name: name, amounts: make(map[uuid.UUID]decimal.Decimal, n)}
	for range n {
		id := uuid.New()
		c.amounts[id] = amount
		c.order = append(c.order, id)
	}
	return c
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) FindByBusiness(_ context.Context, _ uuid.UUID) ([]costing.Record, error) {
	out := make([]costing.Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, costing.Record{ID: id, Amount: c.amounts[id]})
	}
	return out, nil
}

func (c *memoryCollection) UpdateAmounts(_ context.Context, records []costing.Record) error {
	for _, r := range records {
		c.amounts[r.ID] = r.Amount
	}
	c.batches = append(c.batches, len(records))
	return nil
}

func (c *memoryCollection) first() decimal.Decimal {
	return c.amounts[c.order[0]]
}

func (c *memoryCollection) snapshot() map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(c.amounts))
	for id, a := range c.amounts {
		out[id] = a
	}
	return out
}

// rollbackScope restores settings and collections when fn fails
type rollbackScope struct {
	settings    *memorySettings
	rates       *memoryRates
	collections []*memoryCollection
	executions  int
}

func (s *rollbackScope) Execute(_ context.Context, _ uuid.UUID, fn func(repos TransactionalRepositories) error) error {
	s.executions++
	settings := s.settings.snapshot()
	amounts := make([]map[uuid.UUID]decimal.Decimal, len(s.collections))
	for i, c := range s.collections {
		amounts[i] = c.snapshot()
	}
	if err := fn(s); err != nil {
		s.settings.restore(settings)
		for i, c := range s.collections {
			c.amounts = amounts[i]
		}
		return err
	}
	return nil
}

func (s *rollbackScope) Settings() setting.Repository   { return s.settings }
func (s *rollbackScope) Rates() currency.RateRepository { return s.rates }
func (s *rollbackScope) Collections() []costing.Collection {
	out := make([]costing.Collection, len(s.collections))
	for i, c := range s.collections {
		out[i] = c
	}
	return out
}

type memoryBusinesses struct {
	businesses map[uuid.UUID]*business.Business
}

func (r *memoryBusinesses) FindByID(_ context.Context, id uuid.UUID) (*business.Business, error) {
	if b, ok := r.businesses[id]; ok {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryBusinesses) Save(_ context.Context, b *business.Business) error {
	r.businesses[b.ID] = b
	return nil
}

// MockCache is a mock implementation of setting.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, businessID uuid.UUID) ([]setting.Setting, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]setting.Setting), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, businessID uuid.UUID, settings []setting.Setting) error {
	args := m.Called(ctx, businessID, settings)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, businessID uuid.UUID) error {
	args := m.Called(ctx, businessID)
	return args.Error(0)
}

// MockNotifier is a mock implementation of realtime.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Emit(ctx context.Context, n realtime.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockQueue is a mock implementation of job.Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, j job.Job, opts job.Options) error {
	args := m.Called(ctx, j, opts)
	return args.Error(0)
}
