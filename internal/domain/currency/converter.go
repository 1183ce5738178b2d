package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erp/backoffice/internal/domain/shared"
)

// AmountScale is the number of decimal places kept after a conversion
const AmountScale int32 = 2

// RateTable indexes a business's rates by currency code.
// When a code appears more than once, an active non-deleted rate wins over
// inactive or deleted ones.
type RateTable struct {
	byCode map[string]Rate
	mains  []Rate
}

// NewRateTable builds a table from the given rates
func NewRateTable(rates []Rate) *RateTable {
	t := &RateTable{byCode: make(map[string]Rate, len(rates))}
	for _, r := range rates {
		code := NormalizeCode(r.Code)
		if r.IsMain && !r.IsDeleted() {
			t.mains = append(t.mains, r)
		}
		existing, ok := t.byCode[code]
		if !ok || (!isCurrent(existing) && isCurrent(r)) {
			t.byCode[code] = r
		}
	}
	return t
}

func isCurrent(r Rate) bool {
	return r.IsActive && !r.IsDeleted()
}

// Len returns the number of distinct currency codes in the table
func (t *RateTable) Len() int {
	return len(t.byCode)
}

// Main returns the main currency rate. Exactly one main rate is required.
func (t *RateTable) Main() (Rate, error) {
	switch len(t.mains) {
	case 1:
		return t.mains[0], nil
	case 0:
		return Rate{}, shared.ErrConfiguration.WithMessage("no main currency is defined for this business")
	default:
		return Rate{}, shared.ErrConfiguration.WithMessage(
			fmt.Sprintf("%d main currencies are defined for this business, expected exactly one", len(t.mains)))
	}
}

// Lookup resolves the exchange rate of a currency code.
// Rates that are zero or negative are treated as unresolvable.
func (t *RateTable) Lookup(code string) (decimal.Decimal, bool) {
	r, ok := t.byCode[NormalizeCode(code)]
	if !ok || !r.ExchangeRate.IsPositive() {
		return decimal.Zero, false
	}
	return r.ExchangeRate, true
}

// Convert moves an amount from one currency to another by pivoting through
// the main currency: amount / rateFrom * rateTo, rounded half-up to two places.
// The second return value is false when either code cannot be resolved.
func (t *RateTable) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	rateFrom, ok := t.Lookup(from)
	if !ok {
		return decimal.Zero, false
	}
	rateTo, ok := t.Lookup(to)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Div(rateFrom).Mul(rateTo).Round(AmountScale), true
}

// Outcome describes how a single amount was handled by a Converter
type Outcome int

const (
	// OutcomeConverted means the amount was converted normally
	OutcomeConverted Outcome = iota
	// OutcomeZeroed means a rate was missing and the amount was replaced by zero
	OutcomeZeroed
	// OutcomeSkipped means a rate was missing and the amount was left as is
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConverted:
		return "converted"
	case OutcomeZeroed:
		return "zeroed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Converter applies a MissingRatePolicy on top of a RateTable
type Converter struct {
	table  *RateTable
	policy MissingRatePolicy
}

// NewConverter creates a converter. An invalid policy falls back to the default.
func NewConverter(table *RateTable, policy MissingRatePolicy) *Converter {
	if !policy.IsValid() {
		policy = DefaultMissingRatePolicy
	}
	return &Converter{table: table, policy: policy}
}

// Policy returns the policy in effect
func (c *Converter) Policy() MissingRatePolicy {
	return c.policy
}

// Convert converts amount from one currency to another.
// Under MissingRateFail an unresolvable code returns a configuration error.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, Outcome, error) {
	converted, ok := c.table.Convert(amount, from, to)
	if ok {
		return converted, OutcomeConverted, nil
	}
	switch c.policy {
	case MissingRateFail:
		return amount, OutcomeSkipped, shared.ErrConfiguration.WithMessage(
			fmt.Sprintf("no exchange rate to convert from %s to %s", NormalizeCode(from), NormalizeCode(to)))
	case MissingRateSkip:
		return amount, OutcomeSkipped, nil
	default:
		return decimal.Zero, OutcomeZeroed, nil
	}
}
