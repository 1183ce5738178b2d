// Package onlineshop holds the follow-up jobs of online shop settings.
package onlineshop

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/job"
	"github.com/erp/backoffice/internal/domain/shared"
)

// StockRecheckRequest is the decoded payload of a stock recheck job
type StockRecheckRequest struct {
	BusinessID     uuid.UUID
	AreaID         string
	PreviousAreaID string
}

// StockRechecker re-evaluates online shop availability against a stock area.
// The availability logic belongs to the online shop service.
type StockRechecker interface {
	Recheck(ctx context.Context, req StockRecheckRequest) error
}

// StockRecheckExecutor runs CodeOnlineShopStockRecheck jobs
type StockRecheckExecutor struct {
	rechecker StockRechecker
	logger    *zap.Logger
}

// NewStockRecheckExecutor creates the executor. A nil rechecker only logs the request.
func NewStockRecheckExecutor(rechecker StockRechecker, logger *zap.Logger) *StockRecheckExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockRecheckExecutor{rechecker: rechecker, logger: logger}
}

// Code returns the job code handled
func (e *StockRecheckExecutor) Code() string {
	return job.CodeOnlineShopStockRecheck
}

// Execute decodes the job and hands it to the rechecker
func (e *StockRecheckExecutor) Execute(ctx context.Context, j job.Job) error {
	req, err := ParseStockRecheck(j)
	if err != nil {
		return err
	}

	e.logger.Info("Online shop stock recheck requested",
		zap.String("job_id", j.ID.String()),
		zap.String("business_id", req.BusinessID.String()),
		zap.String("area_id", req.AreaID),
		zap.String("previous_area_id", req.PreviousAreaID),
	)
	if e.rechecker == nil {
		return nil
	}
	if err := e.rechecker.Recheck(ctx, req); err != nil {
		return fmt.Errorf("stock recheck for business %s: %w", req.BusinessID, err)
	}
	return nil
}

// ParseStockRecheck decodes the parameters of a stock recheck job
func ParseStockRecheck(j job.Job) (StockRecheckRequest, error) {
	raw, _ := j.Params[job.ParamBusinessID].(string)
	businessID, err := uuid.Parse(raw)
	if err != nil {
		return StockRecheckRequest{}, shared.ErrInvalidInput.WithMessage(
			fmt.Sprintf("stock recheck job %s has an invalid business id %q", j.ID, raw))
	}
	area, _ := j.Params[job.ParamAreaID].(string)
	previous, _ := j.Params[job.ParamPreviousAreaID].(string)
	return StockRecheckRequest{BusinessID: businessID, AreaID: area, PreviousAreaID: previous}, nil
}

// Ensure StockRecheckExecutor implements job.Executor
var _ job.Executor = (*StockRecheckExecutor)(nil)
