package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"possync/internal/domain/action"

	"github.com/google/uuid"
)

// Typed outcomes shared by the domain writers. Appliers map these onto the
// action state machine; anything unmapped stays a raw error.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrBatchDepleted     = errors.New("batch depleted")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrValidation        = errors.New("validation failed")
)

// SubscriptionInfo is the tenant's plan as seen by this subsystem.
type SubscriptionInfo struct {
	Tier              string
	Status            string
	OfflineEnabled    bool
	MaxOfflineDevices int
}

const (
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionSuspended = "suspended"
)

type SubscriptionLookup interface {
	Get(ctx context.Context, businessID uuid.UUID) (*SubscriptionInfo, error)
}

type UserAccess struct {
	Permissions []string
	RoleIDs     []string
}

func (a UserAccess) Has(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionResolver resolves the actor's CURRENT permission set. Replay
// never trusts the device's stale snapshot.
type PermissionResolver interface {
	ResolveUserAccess(ctx context.Context, userID, businessID uuid.UUID) (*UserAccess, error)
}

// OfflinePolicies merges tenant policy with subscription-tier defaults.
// Zero values mean the tier default applies.
type OfflinePolicies struct {
	MaxOfflineDuration  time.Duration
	MaxPendingSaleCount int
	MaxPendingSaleValue float64
	VarianceThreshold   float64
	AllowNegativeStock  bool
	BatchTrackingOn     bool
}

type SettingsLookup interface {
	Get(ctx context.Context, businessID uuid.UUID) (*OfflinePolicies, error)
}

// WriteOutcome is the success shape of every domain writer. A pending
// human approval is a success at the write layer; the applier classifies
// it as a conflict.
type WriteOutcome struct {
	RecordID         uuid.UUID
	ApprovalRequired bool
	ApprovalID       uuid.UUID
}

// SaleWriter wraps the same authoritative sale pipeline used online: stock
// availability, discount-approval thresholds and batch checks all apply.
type SaleWriter interface {
	CompleteSale(ctx context.Context, businessID, userID uuid.UUID, payload action.SalePayload) (*WriteOutcome, error)
}

type PurchaseWriter interface {
	CreateDraft(ctx context.Context, businessID, userID uuid.UUID, payload action.PurchasePayload) (*WriteOutcome, error)
}

type StockWriter interface {
	Adjust(ctx context.Context, businessID, userID uuid.UUID, payload action.StockAdjustmentPayload) (*WriteOutcome, error)
}

const (
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
	ApprovalPending  = "PENDING"
)

type ApprovalView struct {
	ID     uuid.UUID
	Status string
}

type ApprovalReader interface {
	Get(ctx context.Context, businessID, approvalID uuid.UUID) (*ApprovalView, error)
}

// CatalogReader supplies current prices for the variance gate.
type CatalogReader interface {
	CurrentPrices(ctx context.Context, businessID uuid.UUID, variantIDs []uuid.UUID) (map[uuid.UUID]float64, error)
}

type AuditEvent struct {
	Type           string
	BusinessID     uuid.UUID
	UserID         uuid.UUID
	DeviceID       uuid.UUID
	ActionID       *uuid.UUID
	ActionType     string
	ConflictReason string
	Detail         json.RawMessage
}

// AuditSink is fire-and-forget: implementations log failures and never
// propagate them into the sync path.
type AuditSink interface {
	LogEvent(ctx context.Context, event AuditEvent)
}
