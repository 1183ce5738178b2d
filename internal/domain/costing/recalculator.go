package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/domain/currency"
)

// DefaultBatchSize is the number of rows written per update statement
const DefaultBatchSize = 2000

// Request describes one recalculation run
type Request struct {
	BusinessID  uuid.UUID
	From        string
	To          string
	Rates       []currency.Rate
	Collections []Collection
}

// CollectionReport summarises the work done on one collection
type CollectionReport struct {
	Name      string `json:"name"`
	Rows      int    `json:"rows"`
	Converted int    `json:"converted"`
	Zeroed    int    `json:"zeroed"`
	Skipped   int    `json:"skipped"`
	Batches   int    `json:"batches"`
}

// Report summarises a recalculation run
type Report struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	Policy      string             `json:"policy"`
	Collections []CollectionReport `json:"collections"`
	Duration    time.Duration      `json:"duration"`
}

// TotalRows returns the number of rows written across all collections
func (r *Report) TotalRows() int {
	total := 0
	for _, c := range r.Collections {
		total += c.Converted + c.Zeroed
	}
	return total
}

// Recalculator converts cost amounts between currencies in bounded batches
type Recalculator struct {
	batchSize int
	policy    currency.MissingRatePolicy
}

// NewRecalculator creates a recalculator. A non-positive batch size uses DefaultBatchSize.
func NewRecalculator(batchSize int, policy currency.MissingRatePolicy) *Recalculator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if !policy.IsValid() {
		policy = currency.DefaultMissingRatePolicy
	}
	return &Recalculator{batchSize: batchSize, policy: policy}
}

// BatchSize returns the configured batch size
func (r *Recalculator) BatchSize() int {
	return r.batchSize
}

// Recalculate converts every collection from req.From to req.To.
// It fails before touching any row when the business does not have exactly
// one main currency. Any error leaves partial writes in the caller's
// transaction, which must then be rolled back.
func (r *Recalculator) Recalculate(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()
	table := currency.NewRateTable(req.Rates)
	if _, err := table.Main(); err != nil {
		return nil, err
	}
	converter := currency.NewConverter(table, r.policy)

	report := &Report{
		From:   currency.NormalizeCode(req.From),
		To:     currency.NormalizeCode(req.To),
		Policy: r.policy.String(),
	}
	for _, coll := range req.Collections {
		cr, err := r.recalculateCollection(ctx, req.BusinessID, coll, converter, report.From, report.To)
		if err != nil {
			return nil, fmt.Errorf("recalculate %s: %w", coll.Name(), err)
		}
		report.Collections = append(report.Collections, cr)
	}
	report.Duration = time.Since(started)
	return report, nil
}

func (r *Recalculator) recalculateCollection(
	ctx context.Context,
	businessID uuid.UUID,
	coll Collection,
	converter *currency.Converter,
	from, to string,
) (CollectionReport, error) {
	cr := CollectionReport{Name: coll.Name()}

	records, err := coll.FindByBusiness(ctx, businessID)
	if err != nil {
		return cr, err
	}
	cr.Rows = len(records)

	updates := make([]Record, 0, len(records))
	for _, rec := range records {
		amount, outcome, err := converter.Convert(rec.Amount, from, to)
		if err != nil {
			return cr, err
		}
		switch outcome {
		case currency.OutcomeSkipped:
			cr.Skipped++
			continue
		case currency.OutcomeZeroed:
			cr.Zeroed++
		default:
			cr.Converted++
		}
		updates = append(updates, Record{ID: rec.ID, Amount: amount})
	}

	for start := 0; start < len(updates); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return cr, err
		}
		end := min(start+r.batchSize, len(updates))
		if err := coll.UpdateAmounts(ctx, updates[start:end]); err != nil {
			return cr, err
		}
		cr.Batches++
	}
	return cr, nil
}
