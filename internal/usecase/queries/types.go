package queries

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeviceView represents read-optimized offline device data
type DeviceView struct {
	ID          uuid.UUID  `json:"id"`
	BusinessID  uuid.UUID  `json:"business_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Permissions []string   `json:"permissions"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// ActionView represents one ledger entry for the resolution workstation
type ActionView struct {
	ID             uuid.UUID       `json:"id"`
	DeviceID       uuid.UUID       `json:"device_id"`
	UserID         uuid.UUID       `json:"user_id"`
	ActionType     string          `json:"action_type"`
	Checksum       string          `json:"checksum"`
	LocalAuditID   *string         `json:"local_audit_id,omitempty"`
	ProvisionalAt  *time.Time      `json:"provisional_at,omitempty"`
	Status         string          `json:"status"`
	Result         json.RawMessage `json:"result,omitempty"`
	ConflictReason *string         `json:"conflict_reason,omitempty"`
	ConflictData   json.RawMessage `json:"conflict_data,omitempty"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	SyncedAt       *time.Time      `json:"synced_at,omitempty"`
	AppliedAt      *time.Time      `json:"applied_at,omitempty"`
}

// Extract views assembled by the cache builder.

type BranchView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type VariantView struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Price     float64   `json:"price"`
	UnitID    uuid.UUID `json:"unit_id"`
	Active    bool      `json:"active"`
}

type UnitView struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Symbol string    `json:"symbol"`
}

type BarcodeView struct {
	VariantID uuid.UUID `json:"variant_id"`
	Code      string    `json:"code"`
}

type BatchView struct {
	ID        uuid.UUID  `json:"id"`
	VariantID uuid.UUID  `json:"variant_id"`
	BranchID  uuid.UUID  `json:"branch_id"`
	Quantity  float64    `json:"quantity"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type StockView struct {
	BranchID          uuid.UUID `json:"branch_id"`
	VariantID         uuid.UUID `json:"variant_id"`
	Quantity          float64   `json:"quantity"`
	InTransitQuantity float64   `json:"in_transit_quantity"`
}

type CustomerView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone *string   `json:"phone,omitempty"`
}

type PriceListView struct {
	ID        uuid.UUID `json:"id"`
	VariantID uuid.UUID `json:"variant_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
}

type SupplierView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
