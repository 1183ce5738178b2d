package configuration

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/costing"
	"github.com/erp/backoffice/internal/domain/currency"
	"github.com/erp/backoffice/internal/domain/setting"
)

// LockName returns the lock name that serializes configuration batches of one business
func LockName(businessID uuid.UUID) string {
	return "configuration:" + businessID.String()
}

// TransactionScope runs a configuration batch in one database transaction
// that holds the business lock until it commits or rolls back.
type TransactionScope interface {
	// Execute runs fn in a transaction locked on businessID.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, businessID uuid.UUID, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to the current transaction.
type TransactionalRepositories interface {
	Settings() setting.Repository
	Rates() currency.RateRepository
	// Collections returns the cost-bearing collections in recalculation order
	Collections() []costing.Collection
}

// NoOpTransactionScope runs fn directly against the given repositories.
// It does not lock or roll back and is meant for tests.
type NoOpTransactionScope struct {
	settings    setting.Repository
	rates       currency.RateRepository
	collections []costing.Collection
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(settings setting.Repository, rates currency.RateRepository, collections []costing.Collection) *NoOpTransactionScope {
	return &NoOpTransactionScope{settings: settings, rates: rates, collections: collections}
}

// Execute runs fn without a transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, _ uuid.UUID, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Settings() setting.Repository       { return s.settings }
func (s *NoOpTransactionScope) Rates() currency.RateRepository     { return s.rates }
func (s *NoOpTransactionScope) Collections() []costing.Collection { return s.collections }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
