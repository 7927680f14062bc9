package writerepo

import (
	"context"
	"encoding/json"
	"time"

	"possync/internal/domain/action"
	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

// SaleWriter runs the authoritative sale pipeline. Offline replays go
// through the same path as online sales: stock guards, batch depletion and
// discount-approval thresholds all apply.
type SaleWriter struct {
	uow shared.UnitOfWork
}

func NewSaleWriter(uow shared.UnitOfWork) shared.SaleWriter {
	return &SaleWriter{uow: uow}
}

const insertSaleSQL = `
INSERT INTO sales (
    id, business_id, branch_id, user_id, customer_id, total,
    payment_method, note, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertSaleLineSQL = `
INSERT INTO sale_lines (
    id, sale_id, variant_id, batch_id, quantity, unit_price, discount_percent
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Batch decrement carries its own depletion guard, same shape as the stock
// snapshot guard.
const decrementBatchSQL = `
UPDATE stock_batches
SET quantity = quantity - $3
WHERE id = $1 AND business_id = $2 AND quantity >= $3`

func (w *SaleWriter) CompleteSale(ctx context.Context, businessID, userID uuid.UUID, payload action.SalePayload) (*shared.WriteOutcome, error) {
	if len(payload.Lines) == 0 {
		return nil, errs.Mark(errs.New("sale has no lines"), shared.ErrValidation)
	}
	for _, line := range payload.Lines {
		if line.Quantity <= 0 {
			return nil, errs.Mark(errs.New("sale line quantity must be positive"), shared.ErrValidation)
		}
	}

	var outcome *shared.WriteOutcome
	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		tenant, err := loadTenantSettings(ctx, tx.DB(), businessID)
		if err != nil {
			return err
		}

		if breached := maxDiscount(payload.Lines); tenant.DiscountApprovalThreshold > 0 && breached > tenant.DiscountApprovalThreshold {
			approvalID, err := createApprovalRequest(ctx, tx.DB(), businessID, userID, "SALE_DISCOUNT", payload)
			if err != nil {
				return err
			}
			outcome = &shared.WriteOutcome{ApprovalRequired: true, ApprovalID: approvalID}
			return nil
		}

		saleID := uuid.New()
		_, err = tx.DB().Exec(ctx, insertSaleSQL,
			saleID, businessID, payload.BranchID, userID, payload.CustomerID,
			payload.Total(), payload.PaymentMethod, payload.Note, time.Now(),
		)
		if err != nil {
			return infra.WrapRepoErr("failed to insert sale", err)
		}

		for _, line := range payload.Lines {
			_, err = tx.DB().Exec(ctx, insertSaleLineSQL,
				uuid.New(), saleID, line.VariantID, line.BatchID,
				line.Quantity, line.UnitPrice, line.DiscountPercent,
			)
			if err != nil {
				return infra.WrapRepoErr("failed to insert sale line", err)
			}

			if tenant.BatchTrackingOn && line.BatchID != nil {
				tag, err := tx.DB().Exec(ctx, decrementBatchSQL, *line.BatchID, businessID, line.Quantity)
				if err != nil {
					return infra.WrapRepoErr("failed to decrement batch", err)
				}
				if tag.RowsAffected() == 0 {
					return shared.ErrBatchDepleted
				}
			}

			err = tx.Stock().ApplyDelta(ctx, businessID, payload.BranchID, line.VariantID, -line.Quantity, tenant.AllowNegativeStock)
			if err != nil {
				if infra.IsKind(err, infra.KindNotFound) {
					return errs.Mark(err, shared.ErrValidation)
				}
				return err
			}
		}

		outcome = &shared.WriteOutcome{RecordID: saleID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func maxDiscount(lines []action.SaleLine) float64 {
	var max float64
	for _, l := range lines {
		if l.DiscountPercent > max {
			max = l.DiscountPercent
		}
	}
	return max
}

const insertApprovalSQL = `
INSERT INTO approval_requests (
    id, business_id, requested_by, kind, payload, status, created_at
) VALUES ($1, $2, $3, $4, $5, 'PENDING', $6)`

func createApprovalRequest(ctx context.Context, dbtx db.DBTX, businessID, userID uuid.UUID, kind string, payload any) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to encode approval payload", err)
	}

	id := uuid.New()
	_, err = dbtx.Exec(ctx, insertApprovalSQL, id, businessID, userID, kind, body, time.Now())
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create approval request", err)
	}
	return id, nil
}
