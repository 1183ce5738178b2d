// Package currency holds the per-business exchange rate table and the
// conversion rules used to move cost amounts between currencies.
package currency

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Rate is the exchange rate of one currency relative to the business main currency.
// ExchangeRate is the number of units of this currency that one unit of the main
// currency is worth: with CUP as main and USD at 0.01, 100 CUP is 1 USD.
// A main currency has ExchangeRate 1 by convention, but the pivot formula does not rely on it.
type Rate struct {
	shared.BusinessEntity
	Code         string
	ExchangeRate decimal.Decimal
	IsMain       bool
	IsActive     bool
	DeletedAt    *time.Time
}

// NewRate creates an active rate for a business
func NewRate(businessID uuid.UUID, code string, exchangeRate decimal.Decimal, isMain bool) (*Rate, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, shared.ErrInvalidInput.WithMessage("currency code cannot be empty")
	}
	if !exchangeRate.IsPositive() {
		return nil, shared.ErrInvalidInput.WithMessage("exchange rate must be positive")
	}
	return &Rate{
		BusinessEntity: shared.NewBusinessEntity(businessID),
		Code:           code,
		ExchangeRate:   exchangeRate,
		IsMain:         isMain,
		IsActive:       true,
	}, nil
}

// IsDeleted reports whether the rate has been soft-deleted
func (r *Rate) IsDeleted() bool {
	return r.DeletedAt != nil
}

// NormalizeCode trims and upper-cases a currency code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RateRepository reads a business's exchange rates.
type RateRepository interface {
	// FindAllIncludingInactive returns every rate of the business, including
	// inactive and soft-deleted ones, since historical rates stay resolvable.
	FindAllIncludingInactive(ctx context.Context, businessID uuid.UUID) ([]Rate, error)
}
