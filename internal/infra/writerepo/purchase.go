package writerepo

import (
	"context"
	"time"

	"possync/internal/domain/action"
	"possync/internal/infra"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

// PurchaseWriter lands offline purchases as drafts. A draft moves no
// stock, so replay never conflicts on it; receiving happens online later.
type PurchaseWriter struct {
	uow shared.UnitOfWork
}

func NewPurchaseWriter(uow shared.UnitOfWork) shared.PurchaseWriter {
	return &PurchaseWriter{uow: uow}
}

const insertPurchaseSQL = `
INSERT INTO purchases (
    id, business_id, branch_id, user_id, supplier_id, status, note, created_at
) VALUES ($1, $2, $3, $4, $5, 'DRAFT', $6, $7)`

const insertPurchaseLineSQL = `
INSERT INTO purchase_lines (
    id, purchase_id, variant_id, quantity, unit_cost
) VALUES ($1, $2, $3, $4, $5)`

func (w *PurchaseWriter) CreateDraft(ctx context.Context, businessID, userID uuid.UUID, payload action.PurchasePayload) (*shared.WriteOutcome, error) {
	if len(payload.Lines) == 0 {
		return nil, errs.Mark(errs.New("purchase has no lines"), shared.ErrValidation)
	}

	var outcome *shared.WriteOutcome
	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		purchaseID := uuid.New()
		_, err := tx.DB().Exec(ctx, insertPurchaseSQL,
			purchaseID, businessID, payload.BranchID, userID,
			payload.SupplierID, payload.Note, time.Now(),
		)
		if err != nil {
			return infra.WrapRepoErr("failed to insert purchase draft", err)
		}

		for _, line := range payload.Lines {
			_, err = tx.DB().Exec(ctx, insertPurchaseLineSQL,
				uuid.New(), purchaseID, line.VariantID, line.Quantity, line.UnitCost,
			)
			if err != nil {
				return infra.WrapRepoErr("failed to insert purchase line", err)
			}
		}

		outcome = &shared.WriteOutcome{RecordID: purchaseID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
