package readstore

import (
	"context"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

type ApprovalReadStore struct {
	db db.DBTX
}

func NewApprovalReadStore(dbtx db.DBTX) shared.ApprovalReader {
	return &ApprovalReadStore{db: dbtx}
}

const selectApprovalSQL = `
SELECT id, status FROM approval_requests
WHERE business_id = $1 AND id = $2`

func (s *ApprovalReadStore) Get(ctx context.Context, businessID, approvalID uuid.UUID) (*shared.ApprovalView, error) {
	var view shared.ApprovalView
	err := s.db.QueryRow(ctx, selectApprovalSQL, businessID, approvalID).Scan(&view.ID, &view.Status)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("approval request not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to read approval request", err)
	}
	return &view, nil
}
