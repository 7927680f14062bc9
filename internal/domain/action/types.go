package action

type Type string

const (
	TypeSaleComplete    Type = "SALE_COMPLETE"
	TypePurchaseDraft   Type = "PURCHASE_DRAFT"
	TypeStockAdjustment Type = "STOCK_ADJUSTMENT"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeSaleComplete, TypePurchaseDraft, TypeStockAdjustment:
		return true
	}
	return false
}

// RequiredPermission is the permission re-resolved and checked at replay
// time, before the applier runs.
func (t Type) RequiredPermission() string {
	switch t {
	case TypeSaleComplete:
		return "sale-write"
	case TypePurchaseDraft:
		return "purchase-write"
	case TypeStockAdjustment:
		return "stock-write"
	}
	return ""
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApplied  Status = "APPLIED"
	StatusConflict Status = "CONFLICT"
	StatusRejected Status = "REJECTED"
	StatusFailed   Status = "FAILED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApplied, StatusConflict, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// ConflictReason codes. CONFLICT reasons are recoverable through the
// resolution workstation; REJECTED reasons are terminal unless an operator
// retries.
type ConflictReason string

const (
	ReasonPriceVariance     ConflictReason = "PRICE_VARIANCE"
	ReasonApprovalRequired  ConflictReason = "APPROVAL_REQUIRED"
	ReasonBatchDepleted     ConflictReason = "BATCH_DEPLETED"
	ReasonStockOversell     ConflictReason = "STOCK_OVERSELL"
	ReasonPermissionRevoked ConflictReason = "PERMISSION_REVOKED"
	ReasonValidationFailed  ConflictReason = "VALIDATION_FAILED"
)

type Resolution string

const (
	ResolutionDismiss       Resolution = "DISMISS"
	ResolutionRetry         Resolution = "RETRY"
	ResolutionOverridePrice Resolution = "OVERRIDE_PRICE"
	ResolutionSyncApproval  Resolution = "SYNC_APPROVAL"
)

func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionDismiss, ResolutionRetry, ResolutionOverridePrice, ResolutionSyncApproval:
		return true
	}
	return false
}
