package configuration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/domain/business"
	"github.com/erp/backoffice/internal/domain/costing"
	"github.com/erp/backoffice/internal/domain/currency"
	"github.com/erp/backoffice/internal/domain/job"
	"github.com/erp/backoffice/internal/domain/realtime"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
)

type fixture struct {
	businessID uuid.UUID
	settings   *memorySettings
	scope      *rollbackScope
	products   *memoryCollection
	cache      *MockCache
	notifier   *MockNotifier
	queue      *MockQueue
	service    *Service
}

func testRate(businessID uuid.UUID, code string, value int64, isMain bool) currency.Rate {
	r, err := currency.NewRate(businessID, code, decimal.NewFromInt(value), isMain)
	if err != nil {
		panic(err)
	}
	return *r
}

// newFixture seeds a business with the default settings, applies overrides
// and wires every follow-up to a mock. Pass withFollowUps=false to leave
// cache, notifier and queue unset.
func newFixture(t *testing.T, overrides map[string]string, withFollowUps bool, opts ...ServiceOption) *fixture {
	t.Helper()
	ctx := context.Background()

	b, err := business.NewBusiness("la-esquina", "La Esquina")
	require.NoError(t, err)

	f := &fixture{
		businessID: b.ID,
		settings:   newMemorySettings(),
		products:   newMemoryCollection(costing.CollectionProduct, 3, decimal.NewFromInt(100)),
		cache:      new(MockCache),
		notifier:   new(MockNotifier),
		queue:      new(MockQueue),
	}
	_, err = f.settings.SeedDefaults(ctx, b.ID, setting.DefaultDefinitions())
	require.NoError(t, err)
	for k, v := range overrides {
		_, err := f.settings.BulkUpsert(ctx, b.ID, []setting.Change{{Key: k, Value: v}})
		require.NoError(t, err)
	}

	f.scope = &rollbackScope{
		settings: f.settings,
		rates: &memoryRates{rates: []currency.Rate{
			testRate(b.ID, "CUP", 1, true),
			testRate(b.ID, "USD", 3, false),
		}},
		collections: []*memoryCollection{f.products},
	}

	if withFollowUps {
		opts = append([]ServiceOption{WithCache(f.cache), WithNotifier(f.notifier), WithJobQueue(f.queue)}, opts...)
	}
	businesses := &memoryBusinesses{businesses: map[uuid.UUID]*business.Business{b.ID: b}}
	f.service = NewService(f.scope, f.settings, businesses, opts...)
	return f
}

// expectFollowUps accepts any follow-up call
func (f *fixture) expectFollowUps() {
	f.cache.On("Delete", mock.Anything, f.businessID).Return(nil).Maybe()
	f.notifier.On("Emit", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.queue.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (f *fixture) assertNoFollowUps(t *testing.T) {
	t.Helper()
	f.cache.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func (f *fixture) apply(changes ...setting.Change) (*ApplyResult, error) {
	return f.service.ApplyConfigurationBatch(context.Background(), ApplyRequest{
		BusinessID: f.businessID,
		Actor:      Actor{ID: "user-7", Name: "Ana"},
		Origin:     "settings-page",
		Changes:    changes,
	})
}

func change(key, value string) setting.Change {
	return setting.Change{Key: key, Value: value}
}

func writtenKeys(result *ApplyResult) []string {
	keys := make([]string, len(result.Written))
	for i, c := range result.Written {
		keys[i] = c.Key
	}
	return keys
}

func TestApplyConfigurationBatch_InvalidInput(t *testing.T) {
	f := newFixture(t, nil, true)

	_, err := f.service.ApplyConfigurationBatch(context.Background(), ApplyRequest{
		Changes: []setting.Change{change(setting.KeyReceiptFooter, "x")},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.apply()
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	assert.Equal(t, 0, f.scope.executions)
	f.assertNoFollowUps(t)
}

func TestApplyConfigurationBatch_UnknownKeysRejectWholeBatch(t *testing.T) {
	f := newFixture(t, nil, true)

	_, err := f.apply(
		change(setting.KeyReceiptFooter, "Gracias"),
		change("missing_a", "1"),
		change("missing_b", "2"),
	)
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, err.Error(), "missing_a, missing_b")

	assert.Equal(t, "", f.settings.values(f.businessID)[setting.KeyReceiptFooter])
	f.assertNoFollowUps(t)
}

func TestApplyConfigurationBatch_SensitiveKeysAreNotFound(t *testing.T) {
	f := newFixture(t, nil, true)

	_, err := f.apply(change(setting.KeyDeliveryProviderToken, "secret"))
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.assertNoFollowUps(t)
}

func TestApplyConfigurationBatch_InvalidValue(t *testing.T) {
	f := newFixture(t, nil, true)

	_, err := f.apply(
		change(setting.KeyReceiptFooter, "Gracias"),
		change(setting.KeyEnableOngoingOrders, "maybe"),
	)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, "", f.settings.values(f.businessID)[setting.KeyReceiptFooter])
	f.assertNoFollowUps(t)
}

func TestApplyConfigurationBatch_OfficialExchangeRateCascade(t *testing.T) {
	dependentsOn := map[string]string{
		setting.KeyEnableOficialExchangeRate:                   "true",
		setting.KeyReturnOrderChangeAccordingOficialExchange:   "true",
		setting.KeyPrintOrderWithPricesAdjustToOficialExchange: "true",
	}

	tests := []struct {
		name      string
		stored    map[string]string
		changes   []setting.Change
		wantKeys  []string
		wantFalse []string
	}{
		{
			name:    "disabling forces both dependents",
			stored:  dependentsOn,
			changes: []setting.Change{change(setting.KeyEnableOficialExchangeRate, "false")},
			wantKeys: []string{
				setting.KeyEnableOficialExchangeRate,
				setting.KeyReturnOrderChangeAccordingOficialExchange,
				setting.KeyPrintOrderWithPricesAdjustToOficialExchange,
			},
			wantFalse: []string{
				setting.KeyReturnOrderChangeAccordingOficialExchange,
				setting.KeyPrintOrderWithPricesAdjustToOficialExchange,
			},
		},
		{
			name: "dependent requested true in the same batch is still forced",
			stored: map[string]string{
				setting.KeyEnableOficialExchangeRate: "true",
			},
			changes: []setting.Change{
				change(setting.KeyEnableOficialExchangeRate, "false"),
				change(setting.KeyReturnOrderChangeAccordingOficialExchange, "true"),
			},
			wantKeys: []string{
				setting.KeyEnableOficialExchangeRate,
				setting.KeyReturnOrderChangeAccordingOficialExchange,
			},
			wantFalse: []string{setting.KeyReturnOrderChangeAccordingOficialExchange},
		},
		{
			name:     "dependents already false are not rewritten",
			stored:   map[string]string{setting.KeyEnableOficialExchangeRate: "true"},
			changes:  []setting.Change{change(setting.KeyEnableOficialExchangeRate, "false")},
			wantKeys: []string{setting.KeyEnableOficialExchangeRate},
		},
		{
			name: "stored disabled flag in mixed case still forces",
			stored: map[string]string{
				setting.KeyEnableOficialExchangeRate: "False",
			},
			changes:   []setting.Change{change(setting.KeyReturnOrderChangeAccordingOficialExchange, "true")},
			wantKeys:  []string{setting.KeyReturnOrderChangeAccordingOficialExchange},
			wantFalse: []string{setting.KeyReturnOrderChangeAccordingOficialExchange},
		},
		{
			name:     "enabling leaves dependents alone",
			changes:  []setting.Change{change(setting.KeyEnableOficialExchangeRate, "true")},
			wantKeys: []string{setting.KeyEnableOficialExchangeRate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.stored, true)
			f.expectFollowUps()

			result, err := f.apply(tt.changes...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, writtenKeys(result))

			values := f.settings.values(f.businessID)
			for _, k := range tt.wantFalse {
				assert.Equal(t, "false", values[k], k)
			}
		})
	}
}

func TestApplyConfigurationBatch_OngoingOrdersGuard(t *testing.T) {
	tests := []struct {
		name    string
		stored  map[string]string
		changes []setting.Change
		wantErr bool
	}{
		{
			name: "ongoing orders with automated cycle",
			changes: []setting.Change{
				change(setting.KeyEnableOngoingOrders, "true"),
				change(setting.KeyEconomicCycleAutomated, "true"),
			},
			wantErr: true,
		},
		{
			name:    "automated cycle against stored ongoing orders",
			stored:  map[string]string{setting.KeyEnableOngoingOrders: "true"},
			changes: []setting.Change{change(setting.KeyEconomicCycleAutomated, "true")},
			wantErr: true,
		},
		{
			name: "pending payment allowed in the same batch",
			changes: []setting.Change{
				change(setting.KeyEnableOngoingOrders, "true"),
				change(setting.KeyEconomicCycleAutomated, "true"),
				change(setting.KeyPosAllowPendingPayment, "true"),
			},
		},
		{
			name:    "stored cycle flag in upper case",
			stored:  map[string]string{setting.KeyEconomicCycleAutomated: "TRUE"},
			changes: []setting.Change{change(setting.KeyEnableOngoingOrders, "true")},
			wantErr: true,
		},
		{
			name: "stored ongoing orders as 1",
			stored: map[string]string{
				setting.KeyEnableOngoingOrders:    "1",
				setting.KeyPosAllowPendingPayment: "False",
			},
			changes: []setting.Change{change(setting.KeyEconomicCycleAutomated, "true")},
			wantErr: true,
		},
		{
			name:    "ongoing orders with manual cycle",
			changes: []setting.Change{change(setting.KeyEnableOngoingOrders, "true")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.stored, true)
			f.expectFollowUps()
			before := f.settings.values(f.businessID)

			_, err := f.apply(tt.changes...)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, before, f.settings.values(f.businessID))
			f.assertNoFollowUps(t)
		})
	}
}

func TestApplyConfigurationBatch_DuplicateKeysLastValueWins(t *testing.T) {
	f := newFixture(t, nil, true)
	f.expectFollowUps()

	result, err := f.apply(
		change(setting.KeyReceiptFooter, "first"),
		change(setting.KeyPosDefaultPaymentMethod, "card"),
		change(setting.KeyReceiptFooter, "second"),
	)
	require.NoError(t, err)
	assert.Equal(t, []setting.Change{
		change(setting.KeyReceiptFooter, "second"),
		change(setting.KeyPosDefaultPaymentMethod, "CARD"),
	}, result.Written)
}

func TestApplyConfigurationBatch_UnregisteredKeyStoredRaw(t *testing.T) {
	f := newFixture(t, map[string]string{"legacy_ticket_width": "58"}, true)
	f.expectFollowUps()

	result, err := f.apply(change("legacy_ticket_width", " 80mm "))
	require.NoError(t, err)
	assert.Equal(t, []setting.Change{change("legacy_ticket_width", " 80mm ")}, result.Written)
}

func TestApplyConfigurationBatch_CostCurrencyChangeConverts(t *testing.T) {
	f := newFixture(t, map[string]string{setting.KeyGeneralCostCurrency: "SC"}, true)
	f.scope.rates.rates = []currency.Rate{
		testRate(f.businessID, "MN", 1, true),
		testRate(f.businessID, "SC", 2, false),
	}
	f.expectFollowUps()

	result, err := f.apply(change(setting.KeyGeneralCostCurrency, " mn "))
	require.NoError(t, err)

	assert.Equal(t, []setting.Change{change(setting.KeyGeneralCostCurrency, "MN")}, result.Written)
	assert.Equal(t, "SC", result.PreviousCostCurrency)
	require.NotNil(t, result.Recalculation)
	assert.Equal(t, 3, result.Recalculation.TotalRows())
	for id, amount := range f.products.amounts {
		assert.True(t, amount.Equal(decimal.NewFromInt(50)), "%s: %s", id, amount)
	}
}

func TestApplyConfigurationBatch_RoundTripDrift(t *testing.T) {
	f := newFixture(t, map[string]string{setting.KeyGeneralCostCurrency: "USD"}, true)
	f.expectFollowUps()

	_, err := f.apply(change(setting.KeyGeneralCostCurrency, "CUP"))
	require.NoError(t, err)
	assert.Equal(t, "33.33", f.products.first().StringFixed(2))

	_, err = f.apply(change(setting.KeyGeneralCostCurrency, "USD"))
	require.NoError(t, err)
	assert.Equal(t, "99.99", f.products.first().StringFixed(2))
}

func TestApplyConfigurationBatch_SameCurrencyDoesNotRecalculate(t *testing.T) {
	f := newFixture(t, nil, true)
	f.expectFollowUps()

	result, err := f.apply(change(setting.KeyGeneralCostCurrency, "cup"))
	require.NoError(t, err)
	assert.Nil(t, result.Recalculation)
	assert.Empty(t, result.PreviousCostCurrency)
	assert.Empty(t, f.products.batches)
}

func TestApplyConfigurationBatch_RecalculationBatchBoundaries(t *testing.T) {
	tests := []struct {
		rows        int
		wantBatches []int
	}{
		{rows: 2000, wantBatches: []int{2000}},
		{rows: 2001, wantBatches: []int{2000, 1}},
		{rows: 4000, wantBatches: []int{2000, 2000}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			f := newFixture(t, nil, false)
			f.products = newMemoryCollection(costing.CollectionProduct, tt.rows, decimal.NewFromInt(10))
			f.scope.collections = []*memoryCollection{f.products}

			result, err := f.apply(change(setting.KeyGeneralCostCurrency, "USD"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantBatches, f.products.batches)
			assert.Equal(t, tt.rows, result.Recalculation.TotalRows())
		})
	}
}

func TestApplyConfigurationBatch_MainCurrencyRequired(t *testing.T) {
	tests := []struct {
		name  string
		rates func(uuid.UUID) []currency.Rate
	}{
		{
			name: "no main currency",
			rates: func(id uuid.UUID) []currency.Rate {
				return []currency.Rate{testRate(id, "CUP", 1, false), testRate(id, "USD", 3, false)}
			},
		},
		{
			name: "two main currencies",
			rates: func(id uuid.UUID) []currency.Rate {
				return []currency.Rate{testRate(id, "CUP", 1, true), testRate(id, "USD", 3, true)}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, true)
			f.scope.rates.rates = tt.rates(f.businessID)

			_, err := f.apply(
				change(setting.KeyReceiptFooter, "Gracias"),
				change(setting.KeyGeneralCostCurrency, "USD"),
			)
			require.ErrorIs(t, err, shared.ErrConfiguration)

			values := f.settings.values(f.businessID)
			assert.Equal(t, "CUP", values[setting.KeyGeneralCostCurrency])
			assert.Equal(t, "", values[setting.KeyReceiptFooter])
			assert.Empty(t, f.products.batches)
			f.assertNoFollowUps(t)
		})
	}
}

func TestApplyConfigurationBatch_MissingRatePolicies(t *testing.T) {
	t.Run("fail rolls back", func(t *testing.T) {
		f := newFixture(t, nil, true, WithRecalculator(costing.NewRecalculator(0, currency.MissingRateFail)))

		_, err := f.apply(change(setting.KeyGeneralCostCurrency, "EUR"))
		require.ErrorIs(t, err, shared.ErrConfiguration)
		assert.Equal(t, "CUP", f.settings.values(f.businessID)[setting.KeyGeneralCostCurrency])
		assert.True(t, f.products.first().Equal(decimal.NewFromInt(100)))
		f.assertNoFollowUps(t)
	})

	t.Run("skip leaves amounts", func(t *testing.T) {
		f := newFixture(t, nil, true, WithRecalculator(costing.NewRecalculator(0, currency.MissingRateSkip)))
		f.expectFollowUps()

		result, err := f.apply(change(setting.KeyGeneralCostCurrency, "EUR"))
		require.NoError(t, err)
		assert.Equal(t, "EUR", f.settings.values(f.businessID)[setting.KeyGeneralCostCurrency])
		assert.Equal(t, 0, result.Recalculation.TotalRows())
		assert.True(t, f.products.first().Equal(decimal.NewFromInt(100)))
	})

	t.Run("zero by default", func(t *testing.T) {
		f := newFixture(t, nil, true)
		f.expectFollowUps()

		_, err := f.apply(change(setting.KeyGeneralCostCurrency, "EUR"))
		require.NoError(t, err)
		assert.True(t, f.products.first().IsZero())
	})
}

func TestApplyConfigurationBatch_FollowUps(t *testing.T) {
	f := newFixture(t, map[string]string{setting.KeyOnlineShopAreaStock: "4"}, true)

	f.cache.On("Delete", mock.Anything, f.businessID).Return(nil).Once()
	f.notifier.On("Emit", mock.Anything, mock.MatchedBy(func(n realtime.Notification) bool {
		snapshot, ok := n.Payload.(business.Snapshot)
		_, leaked := snapshot.Configurations[setting.KeyDeliveryProviderToken]
		return ok && !leaked &&
			n.Event == realtime.EventBusinessUpdate &&
			n.Room == "business:"+f.businessID.String() &&
			n.Meta == realtime.Meta{ActorID: "user-7", ActorName: "Ana", OriginTag: "settings-page"} &&
			snapshot.Configurations[setting.KeyOnlineShopAreaStock] == "9"
	})).Return(nil).Once()
	f.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(j job.Job) bool {
		return j.Code == job.CodeOnlineShopStockRecheck &&
			j.Params[job.ParamBusinessID] == f.businessID.String() &&
			j.Params[job.ParamAreaID] == "9" &&
			j.Params[job.ParamPreviousAreaID] == "4"
	}), job.Options{Attempts: 2, RemoveOnComplete: true, RemoveOnFail: true}).Return(nil).Once()

	result, err := f.apply(change(setting.KeyOnlineShopAreaStock, "9"))
	require.NoError(t, err)
	assert.Equal(t, []setting.Change{change(setting.KeyOnlineShopAreaStock, "9")}, result.Written)

	f.cache.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.queue.AssertExpectations(t)
}

func TestApplyConfigurationBatch_NoJobWithoutStockAreaChange(t *testing.T) {
	f := newFixture(t, map[string]string{setting.KeyOnlineShopAreaStock: "4"}, true)
	f.expectFollowUps()

	_, err := f.apply(
		change(setting.KeyOnlineShopAreaStock, "4"),
		change(setting.KeyReceiptFooter, "Gracias"),
	)
	require.NoError(t, err)
	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyConfigurationBatch_FollowUpFailuresDoNotFailBatch(t *testing.T) {
	f := newFixture(t, nil, true)
	boom := errors.New("redis down")
	f.cache.On("Delete", mock.Anything, f.businessID).Return(boom)
	f.notifier.On("Emit", mock.Anything, mock.Anything).Return(boom)
	f.queue.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(boom)

	result, err := f.apply(change(setting.KeyOnlineShopAreaStock, "2"))
	require.NoError(t, err)
	assert.Len(t, result.Written, 1)
	assert.Equal(t, "2", f.settings.values(f.businessID)[setting.KeyOnlineShopAreaStock])

	f.cache.AssertNumberOfCalls(t, "Delete", 1)
	f.notifier.AssertNumberOfCalls(t, "Emit", 1)
	f.queue.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestApplyConfigurationBatch_FollowUpsIgnoreRequestCancellation(t *testing.T) {
	f := newFixture(t, nil, true)
	f.cache.On("Delete", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), f.businessID).Return(nil).Once()
	f.notifier.On("Emit", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	scope := &cancellingScope{inner: f.scope, cancel: cancel}
	f.service.scope = scope

	_, err := f.service.ApplyConfigurationBatch(ctx, ApplyRequest{
		BusinessID: f.businessID,
		Changes:    []setting.Change{change(setting.KeyReceiptFooter, "Gracias")},
	})
	require.NoError(t, err)
	f.cache.AssertExpectations(t)
}

// cancellingScope cancels the request context once the transaction commits
type cancellingScope struct {
	inner  TransactionScope
	cancel context.CancelFunc
}

func (s *cancellingScope) Execute(ctx context.Context, businessID uuid.UUID, fn func(repos TransactionalRepositories) error) error {
	err := s.inner.Execute(ctx, businessID, fn)
	s.cancel()
	return err
}

func TestGetConfigurations(t *testing.T) {
	t.Run("cache hit skips the database", func(t *testing.T) {
		f := newFixture(t, nil, true)
		cached := []setting.Setting{*setting.NewSetting(f.businessID, setting.KeyReceiptFooter, "cached")}
		f.cache.On("Get", mock.Anything, f.businessID).Return(cached, nil).Once()

		got, err := f.service.GetConfigurations(context.Background(), f.businessID)
		require.NoError(t, err)
		assert.Equal(t, cached, got)
		assert.Equal(t, 0, f.settings.reads)
	})

	t.Run("miss reads through and fills", func(t *testing.T) {
		f := newFixture(t, nil, true)
		f.cache.On("Get", mock.Anything, f.businessID).Return(nil, nil).Once()
		f.cache.On("Set", mock.Anything, f.businessID, mock.Anything).Return(nil).Once()

		got, err := f.service.GetConfigurations(context.Background(), f.businessID)
		require.NoError(t, err)
		assert.Len(t, got, len(setting.DefaultDefinitions())-1)
		assert.Equal(t, 1, f.settings.reads)
		f.cache.AssertExpectations(t)
	})

	t.Run("cache errors fall back to the database", func(t *testing.T) {
		f := newFixture(t, nil, true)
		f.cache.On("Get", mock.Anything, f.businessID).Return(nil, errors.New("timeout"))
		f.cache.On("Set", mock.Anything, f.businessID, mock.Anything).Return(errors.New("timeout"))

		got, err := f.service.GetConfigurations(context.Background(), f.businessID)
		require.NoError(t, err)
		assert.NotEmpty(t, got)
	})

	t.Run("without cache", func(t *testing.T) {
		f := newFixture(t, nil, false)
		got, err := f.service.GetConfigurations(context.Background(), f.businessID)
		require.NoError(t, err)
		assert.Equal(t, "CUP", setting.ValuesOf(got)[setting.KeyGeneralCostCurrency])
	})

	t.Run("nil business", func(t *testing.T) {
		f := newFixture(t, nil, false)
		_, err := f.service.GetConfigurations(context.Background(), uuid.Nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

// commitDuringRead applies a batch between loading the rows and returning them
type commitDuringRead struct {
	setting.Repository
	commit func()
}

func (r *commitDuringRead) FindNonSensitive(ctx context.Context, businessID uuid.UUID) ([]setting.Setting, error) {
	rows, err := r.Repository.FindNonSensitive(ctx, businessID)
	if r.commit != nil {
		commit := r.commit
		r.commit = nil
		commit()
	}
	return rows, err
}

func TestGetConfigurations_CommitDuringReadDoesNotRefillCache(t *testing.T) {
	f := newFixture(t, nil, false)
	f.service.cache = f.cache
	f.cache.On("Get", mock.Anything, f.businessID).Return(nil, nil)
	f.cache.On("Delete", mock.Anything, f.businessID).Return(nil)
	f.cache.On("Set", mock.Anything, f.businessID, mock.Anything).Return(nil)

	repo := &commitDuringRead{Repository: f.settings}
	repo.commit = func() {
		_, err := f.apply(change(setting.KeyReceiptFooter, "Gracias"))
		require.NoError(t, err)
	}
	f.service.settings = repo

	stale, err := f.service.GetConfigurations(context.Background(), f.businessID)
	require.NoError(t, err)
	assert.NotEqual(t, "Gracias", setting.ValuesOf(stale)[setting.KeyReceiptFooter])
	f.cache.AssertNumberOfCalls(t, "Delete", 1)
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)

	fresh, err := f.service.GetConfigurations(context.Background(), f.businessID)
	require.NoError(t, err)
	assert.Equal(t, "Gracias", setting.ValuesOf(fresh)[setting.KeyReceiptFooter])
	f.cache.AssertNumberOfCalls(t, "Set", 1)
}

func TestSchema_HidesSensitiveSettings(t *testing.T) {
	f := newFixture(t, nil, false)

	schema := f.service.Schema()
	assert.Len(t, schema, len(setting.DefaultDefinitions())-1)
	for _, def := range schema {
		assert.NotEqual(t, setting.KeyDeliveryProviderToken, def.Key)
	}
}

func TestSeedDefaults(t *testing.T) {
	f := newFixture(t, nil, true)
	other := uuid.New()
	f.cache.On("Delete", mock.Anything, other).Return(nil).Once()

	created, err := f.service.SeedDefaults(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, len(setting.DefaultDefinitions()), created)

	created, err = f.service.SeedDefaults(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	f.cache.AssertNumberOfCalls(t, "Delete", 1)

	_, err = f.service.SeedDefaults(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
