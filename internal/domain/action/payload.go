package action

import (
	"math"

	"github.com/google/uuid"
)

// Payload shapes recorded by the offline client. Payloads are stored as raw
// JSON in the ledger and parsed by the applier for their action type.

type SaleLine struct {
	VariantID       uuid.UUID  `json:"variantId"`
	BatchID         *uuid.UUID `json:"batchId,omitempty"`
	Quantity        float64    `json:"quantity"`
	UnitPrice       float64    `json:"unitPrice"`
	DiscountPercent float64    `json:"discountPercent,omitempty"`
}

type SalePayload struct {
	BranchID       uuid.UUID  `json:"branchId"`
	CustomerID     *uuid.UUID `json:"customerId,omitempty"`
	Lines          []SaleLine `json:"lines"`
	PaymentMethod  string     `json:"paymentMethod,omitempty"`
	Note           *string    `json:"note,omitempty"`
	OverridePrices bool       `json:"overridePrices,omitempty"`
}

func (p SalePayload) Total() float64 {
	var total float64
	for _, l := range p.Lines {
		line := l.UnitPrice * l.Quantity
		if l.DiscountPercent > 0 {
			line *= (100 - l.DiscountPercent) / 100
		}
		total += line
	}
	return total
}

type PurchaseLine struct {
	VariantID uuid.UUID `json:"variantId"`
	Quantity  float64   `json:"quantity"`
	UnitCost  float64   `json:"unitCost"`
}

type PurchasePayload struct {
	BranchID   uuid.UUID      `json:"branchId"`
	SupplierID *uuid.UUID     `json:"supplierId,omitempty"`
	Lines      []PurchaseLine `json:"lines"`
	Note       *string        `json:"note,omitempty"`
}

type StockAdjustmentPayload struct {
	BranchID  uuid.UUID `json:"branchId"`
	VariantID uuid.UUID `json:"variantId"`
	Delta     float64   `json:"delta"`
	Reason    string    `json:"reason,omitempty"`
}

// PriceBreach describes one sale line whose offline price deviates from the
// current catalog price beyond the tenant's variance threshold.
type PriceBreach struct {
	VariantID       uuid.UUID `json:"variantId"`
	OfflinePrice    float64   `json:"offlinePrice"`
	CurrentPrice    float64   `json:"currentPrice"`
	VariancePercent float64   `json:"variancePercent"`
}

// VariancePercent computes |current - offline| / current * 100. A zero
// current price yields zero variance rather than a division blowup.
func VariancePercent(currentPrice, offlinePrice float64) float64 {
	if currentPrice == 0 {
		return 0
	}
	return math.Abs(currentPrice-offlinePrice) / currentPrice * 100
}
