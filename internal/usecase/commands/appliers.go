package commands

import (
	"context"
	"encoding/json"
	"errors"

	"possync/internal/domain/action"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

// applyOutcome is the terminal-for-this-attempt classification of one
// replayed action. Per-action outcomes are never surfaced as errors.
type applyOutcome struct {
	Status       action.Status
	Result       json.RawMessage
	Reason       action.ConflictReason
	ConflictData json.RawMessage
	ErrorMessage string
}

type applyOptions struct {
	Policies *shared.OfflinePolicies
	// BypassVariance skips the price-variance gate for one attempt
	// (OVERRIDE_PRICE resolution).
	BypassVariance bool
}

type applierFunc func(ctx context.Context, act *action.Action, opts applyOptions) applyOutcome

// applierSet wraps the authoritative write paths and classifies their
// outcomes onto the action state machine.
type applierSet struct {
	catalog   shared.CatalogReader
	sales     shared.SaleWriter
	purchases shared.PurchaseWriter
	stock     shared.StockWriter
	appliers  map[action.Type]applierFunc
}

func newApplierSet(
	catalog shared.CatalogReader,
	sales shared.SaleWriter,
	purchases shared.PurchaseWriter,
	stock shared.StockWriter,
) *applierSet {
	s := &applierSet{
		catalog:   catalog,
		sales:     sales,
		purchases: purchases,
		stock:     stock,
	}
	// Dispatch by tagged type; new action types register here.
	s.appliers = map[action.Type]applierFunc{
		action.TypeSaleComplete:    s.applySale,
		action.TypePurchaseDraft:   s.applyPurchase,
		action.TypeStockAdjustment: s.applyStockAdjustment,
	}
	return s
}

func (s *applierSet) apply(ctx context.Context, act *action.Action, opts applyOptions) applyOutcome {
	applier, ok := s.appliers[act.ActionType()]
	if !ok {
		// Rehydrated ledger rows skip construction-time type checks,
		// so a retired type can land here during a resolution rerun.
		return applyOutcome{
			Status:       action.StatusRejected,
			Reason:       action.ReasonValidationFailed,
			ErrorMessage: "unknown action type: " + string(act.ActionType()),
		}
	}
	return applier(ctx, act, opts)
}

func (s *applierSet) applySale(ctx context.Context, act *action.Action, opts applyOptions) applyOutcome {
	var payload action.SalePayload
	if err := unmarshalPayload(act.Payload(), &payload); err != nil {
		return rejected(action.ReasonValidationFailed, "malformed sale payload: "+err.Error())
	}

	if !opts.BypassVariance && !payload.OverridePrices {
		breaches, err := s.priceBreaches(ctx, act.BusinessID(), payload, opts.Policies.VarianceThreshold)
		if err != nil {
			return failed(err)
		}
		if len(breaches) > 0 {
			data, _ := json.Marshal(map[string]any{
				"threshold": opts.Policies.VarianceThreshold,
				"lines":     breaches,
			})
			return conflicted(action.ReasonPriceVariance, data)
		}
	}

	out, err := s.sales.CompleteSale(ctx, act.BusinessID(), act.UserID(), payload)
	if err != nil {
		return classifySaleError(err)
	}
	if out.ApprovalRequired {
		return approvalConflict(out.ApprovalID)
	}
	return applied(map[string]any{"saleId": out.RecordID})
}

// applyPurchase always drafts; a draft cannot conflict with server state.
func (s *applierSet) applyPurchase(ctx context.Context, act *action.Action, _ applyOptions) applyOutcome {
	var payload action.PurchasePayload
	if err := unmarshalPayload(act.Payload(), &payload); err != nil {
		return failed(errs.Wrap(err, "malformed purchase payload"))
	}

	out, err := s.purchases.CreateDraft(ctx, act.BusinessID(), act.UserID(), payload)
	if err != nil {
		return failed(err)
	}
	return applied(map[string]any{"purchaseId": out.RecordID})
}

func (s *applierSet) applyStockAdjustment(ctx context.Context, act *action.Action, _ applyOptions) applyOutcome {
	var payload action.StockAdjustmentPayload
	if err := unmarshalPayload(act.Payload(), &payload); err != nil {
		return rejected(action.ReasonValidationFailed, "malformed adjustment payload: "+err.Error())
	}

	out, err := s.stock.Adjust(ctx, act.BusinessID(), act.UserID(), payload)
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			return rejected(action.ReasonValidationFailed, err.Error())
		}
		return failed(err)
	}
	if out.ApprovalRequired {
		return approvalConflict(out.ApprovalID)
	}
	return applied(map[string]any{"adjustmentId": out.RecordID})
}

func (s *applierSet) priceBreaches(ctx context.Context, businessID uuid.UUID, payload action.SalePayload, threshold float64) ([]action.PriceBreach, error) {
	variantIDs := make([]uuid.UUID, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		variantIDs = append(variantIDs, l.VariantID)
	}
	current, err := s.catalog.CurrentPrices(ctx, businessID, variantIDs)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read current prices")
	}

	var breaches []action.PriceBreach
	for _, l := range payload.Lines {
		currentPrice, ok := current[l.VariantID]
		if !ok {
			continue // delisted variants fail later in the sale pipeline
		}
		percent := action.VariancePercent(currentPrice, l.UnitPrice)
		if percent > threshold {
			breaches = append(breaches, action.PriceBreach{
				VariantID:       l.VariantID,
				OfflinePrice:    l.UnitPrice,
				CurrentPrice:    currentPrice,
				VariancePercent: percent,
			})
		}
	}
	return breaches, nil
}

// classifySaleError maps the typed errors of the authoritative sale
// pipeline. Anything unmapped becomes FAILED with the raw message
// preserved, never silently reclassified.
func classifySaleError(err error) applyOutcome {
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		return rejected(action.ReasonStockOversell, err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		return rejected(action.ReasonPermissionRevoked, err.Error())
	case errors.Is(err, shared.ErrBatchDepleted):
		// A different batch may still satisfy the sale; conflict, not
		// rejection.
		return conflicted(action.ReasonBatchDepleted, nil)
	case errors.Is(err, shared.ErrValidation):
		return rejected(action.ReasonValidationFailed, err.Error())
	default:
		return failed(err)
	}
}

func applied(result map[string]any) applyOutcome {
	data, _ := json.Marshal(result)
	return applyOutcome{Status: action.StatusApplied, Result: data}
}

func conflicted(reason action.ConflictReason, data json.RawMessage) applyOutcome {
	return applyOutcome{Status: action.StatusConflict, Reason: reason, ConflictData: data}
}

func approvalConflict(approvalID uuid.UUID) applyOutcome {
	data, _ := json.Marshal(map[string]any{"approvalId": approvalID})
	return conflicted(action.ReasonApprovalRequired, data)
}

func rejected(reason action.ConflictReason, msg string) applyOutcome {
	return applyOutcome{Status: action.StatusRejected, Reason: reason, ErrorMessage: msg}
}

func failed(err error) applyOutcome {
	return applyOutcome{Status: action.StatusFailed, ErrorMessage: err.Error()}
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errs.New("empty payload")
	}
	return json.Unmarshal(raw, v)
}
