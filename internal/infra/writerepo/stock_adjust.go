package writerepo

import (
	"context"
	"math"

	"possync/internal/domain/action"
	"possync/internal/infra"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

// StockAdjustmentWriter applies manual corrections to the stock snapshot.
// Adjustments above the tenant's quantity threshold park behind an
// approval request instead of applying.
type StockAdjustmentWriter struct {
	uow shared.UnitOfWork
}

func NewStockAdjustmentWriter(uow shared.UnitOfWork) shared.StockWriter {
	return &StockAdjustmentWriter{uow: uow}
}

func (w *StockAdjustmentWriter) Adjust(ctx context.Context, businessID, userID uuid.UUID, payload action.StockAdjustmentPayload) (*shared.WriteOutcome, error) {
	if payload.Delta == 0 {
		return nil, errs.Mark(errs.New("adjustment delta must be non-zero"), shared.ErrValidation)
	}

	var outcome *shared.WriteOutcome
	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		tenant, err := loadTenantSettings(ctx, tx.DB(), businessID)
		if err != nil {
			return err
		}

		if tenant.AdjustmentApprovalQuantity > 0 && math.Abs(payload.Delta) > tenant.AdjustmentApprovalQuantity {
			approvalID, err := createApprovalRequest(ctx, tx.DB(), businessID, userID, "STOCK_ADJUSTMENT", payload)
			if err != nil {
				return err
			}
			outcome = &shared.WriteOutcome{ApprovalRequired: true, ApprovalID: approvalID}
			return nil
		}

		err = tx.Stock().ApplyDelta(ctx, businessID, payload.BranchID, payload.VariantID, payload.Delta, tenant.AllowNegativeStock)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, shared.ErrValidation)
			}
			return err
		}

		outcome = &shared.WriteOutcome{RecordID: payload.VariantID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
