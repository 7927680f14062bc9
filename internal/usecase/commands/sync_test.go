//go:build unit

package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"possync/internal/domain/action"
	"possync/internal/domain/device"
	"possync/internal/usecase/commands"
	"possync/internal/usecase/shared"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleIncoming(t *testing.T, variantID uuid.UUID, qty, price float64, at *time.Time) commands.IncomingAction {
	t.Helper()
	payload, err := json.Marshal(action.SalePayload{
		BranchID: uuid.New(),
		Lines:    []action.SaleLine{{VariantID: variantID, Quantity: qty, UnitPrice: price}},
	})
	require.NoError(t, err)
	return commands.IncomingAction{
		ActionType:    action.TypeSaleComplete,
		Payload:       payload,
		ProvisionalAt: at,
	}
}

func (f *fixture) syncOne(t *testing.T, in commands.IncomingAction) commands.ActionResult {
	t.Helper()
	res, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), []commands.IncomingAction{in})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	return res.Results[0]
}

func TestSyncActions_AppliesMixedBatch(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100

	purchasePayload, err := json.Marshal(action.PurchasePayload{
		BranchID: uuid.New(),
		Lines:    []action.PurchaseLine{{VariantID: variantID, Quantity: 10, UnitCost: 60}},
	})
	require.NoError(t, err)
	adjustPayload, err := json.Marshal(action.StockAdjustmentPayload{
		BranchID: uuid.New(), VariantID: variantID, Delta: -2, Reason: "damage",
	})
	require.NoError(t, err)

	incoming := []commands.IncomingAction{
		saleIncoming(t, variantID, 2, 100, nil),
		{ActionType: action.TypePurchaseDraft, Payload: purchasePayload},
		{ActionType: action.TypeStockAdjustment, Payload: adjustPayload},
	}

	res, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), incoming)

	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	for _, r := range res.Results {
		assert.Equal(t, action.StatusApplied, r.Status)
		assert.NotEmpty(t, r.Checksum)
	}
	assert.Len(t, f.sales.calls, 1)
	assert.Len(t, f.purchases.calls, 1)
	assert.Len(t, f.stock.calls, 1)
	require.NotNil(t, res.Cache)
	assert.Equal(t, 1, f.cacheBuilder.builds)
}

func TestSyncActions_DuplicateChecksumReturnsPriorOutcome(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100
	in := saleIncoming(t, variantID, 1, 100, nil)

	first := f.syncOne(t, in)
	require.Equal(t, action.StatusApplied, first.Status)

	second := f.syncOne(t, in)

	assert.Empty(t, cmp.Diff(first, second), "prior outcome must be returned verbatim")
	assert.Len(t, f.sales.calls, 1, "resubmission must not re-run the writer")
}

func TestSyncActions_OrdersByProvisionalAt(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100

	base := f.clock.Now()
	earlier := base.Add(-2 * time.Hour)
	later := base.Add(-1 * time.Hour)

	incoming := []commands.IncomingAction{
		saleIncoming(t, variantID, 3, 100, &later),
		saleIncoming(t, variantID, 2, 100, &earlier),
		saleIncoming(t, variantID, 1, 100, nil),
	}

	res, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), incoming)

	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	require.Len(t, f.sales.calls, 3)
	// nil provisionalAt first, then ascending by timestamp
	assert.Equal(t, 1.0, f.sales.calls[0].Lines[0].Quantity)
	assert.Equal(t, 2.0, f.sales.calls[1].Lines[0].Quantity)
	assert.Equal(t, 3.0, f.sales.calls[2].Lines[0].Quantity)
}

func TestSyncActions_PriceVariance(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100

	t.Run("above threshold conflicts without touching the writer", func(t *testing.T) {
		result := f.syncOne(t, saleIncoming(t, variantID, 1, 110, nil))

		assert.Equal(t, action.StatusConflict, result.Status)
		require.NotNil(t, result.ConflictReason)
		assert.Equal(t, action.ReasonPriceVariance, *result.ConflictReason)
		assert.Empty(t, f.sales.calls)

		var data struct {
			Threshold float64              `json:"threshold"`
			Lines     []action.PriceBreach `json:"lines"`
		}
		require.NoError(t, json.Unmarshal(result.ConflictData, &data))
		assert.Equal(t, 5.0, data.Threshold)
		require.Len(t, data.Lines, 1)
		assert.InDelta(t, 10.0, data.Lines[0].VariancePercent, 1e-9)
	})

	t.Run("within threshold applies", func(t *testing.T) {
		result := f.syncOne(t, saleIncoming(t, variantID, 1, 104, nil))

		assert.Equal(t, action.StatusApplied, result.Status)
		assert.Len(t, f.sales.calls, 1)
	})

	t.Run("unknown variant skips the gate", func(t *testing.T) {
		result := f.syncOne(t, saleIncoming(t, uuid.New(), 1, 999, nil))

		assert.Equal(t, action.StatusApplied, result.Status)
	})
}

func TestSyncActions_ClassifiesWriterErrors(t *testing.T) {
	tests := []struct {
		name       string
		writerErr  error
		wantStatus action.Status
		wantReason action.ConflictReason
	}{
		{"insufficient stock rejects as oversell", shared.ErrInsufficientStock, action.StatusRejected, action.ReasonStockOversell},
		{"depleted batch conflicts", shared.ErrBatchDepleted, action.StatusConflict, action.ReasonBatchDepleted},
		{"validation failure rejects", shared.ErrValidation, action.StatusRejected, action.ReasonValidationFailed},
		{"permission denial rejects", shared.ErrPermissionDenied, action.StatusRejected, action.ReasonPermissionRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			variantID := uuid.New()
			f.catalog.prices[variantID] = 100
			f.sales.err = tt.writerErr

			result := f.syncOne(t, saleIncoming(t, variantID, 1, 100, nil))

			assert.Equal(t, tt.wantStatus, result.Status)
			require.NotNil(t, result.ConflictReason)
			assert.Equal(t, tt.wantReason, *result.ConflictReason)
		})
	}
}

func TestSyncActions_UnexpectedWriterErrorFailsActionNotBatch(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100
	f.sales.err = errors.New("connection reset")

	adjustPayload, err := json.Marshal(action.StockAdjustmentPayload{
		BranchID: uuid.New(), VariantID: variantID, Delta: 1,
	})
	require.NoError(t, err)
	incoming := []commands.IncomingAction{
		saleIncoming(t, variantID, 1, 100, nil),
		{ActionType: action.TypeStockAdjustment, Payload: adjustPayload},
	}

	res, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), incoming)

	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, action.StatusFailed, res.Results[0].Status)
	require.NotNil(t, res.Results[0].ErrorMessage)
	assert.Contains(t, *res.Results[0].ErrorMessage, "connection reset")
	assert.Equal(t, action.StatusApplied, res.Results[1].Status)
}

func TestSyncActions_ApprovalRequiredBecomesConflict(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100
	approvalID := uuid.New()
	f.sales.outcome = shared.WriteOutcome{ApprovalRequired: true, ApprovalID: approvalID}

	result := f.syncOne(t, saleIncoming(t, variantID, 1, 100, nil))

	assert.Equal(t, action.StatusConflict, result.Status)
	require.NotNil(t, result.ConflictReason)
	assert.Equal(t, action.ReasonApprovalRequired, *result.ConflictReason)

	var data struct {
		ApprovalID uuid.UUID `json:"approvalId"`
	}
	require.NoError(t, json.Unmarshal(result.ConflictData, &data))
	assert.Equal(t, approvalID, data.ApprovalID)
}

func TestSyncActions_PermissionRevokedAtReplay(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100
	// Membership still active, but the sale permission was withdrawn
	// after the device snapshotted it.
	f.permissions.access[f.userID] = &shared.UserAccess{Permissions: []string{"purchase-write"}}

	result := f.syncOne(t, saleIncoming(t, variantID, 1, 100, nil))

	assert.Equal(t, action.StatusRejected, result.Status)
	require.NotNil(t, result.ConflictReason)
	assert.Equal(t, action.ReasonPermissionRevoked, *result.ConflictReason)
	assert.Empty(t, f.sales.calls)
}

func TestSyncActions_MalformedPayloadRejectsAction(t *testing.T) {
	f := newFixture(t)

	result := f.syncOne(t, commands.IncomingAction{
		ActionType: action.TypeSaleComplete,
		Payload:    json.RawMessage(`{"lines": "not-an-array"}`),
	})

	assert.Equal(t, action.StatusRejected, result.Status)
	require.NotNil(t, result.ConflictReason)
	assert.Equal(t, action.ReasonValidationFailed, *result.ConflictReason)
}

func TestSyncActions_DurationCeiling(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100

	t.Run("breach expires the device and rejects the call", func(t *testing.T) {
		f.clock.Advance(72*time.Hour + time.Minute)

		_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(),
			[]commands.IncomingAction{saleIncoming(t, variantID, 1, 100, nil)})

		require.ErrorIs(t, err, commands.ErrDeviceExpired)
		saved, findErr := f.devices.FindByID(context.Background(), f.device.ID())
		require.NoError(t, findErr)
		assert.Equal(t, device.StatusExpired, saved.Status())
		assert.Contains(t, f.audit.typesSeen(), "offline_device_expired")
	})

	t.Run("expired device stays rejected on the next call", func(t *testing.T) {
		_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(),
			[]commands.IncomingAction{saleIncoming(t, variantID, 1, 100, nil)})

		require.ErrorIs(t, err, commands.ErrDeviceNotActive)
	})
}

func TestSyncActions_TenantDurationOverride(t *testing.T) {
	f := newFixture(t)
	f.settings.policies.MaxOfflineDuration = 4 * time.Hour
	f.clock.Advance(5 * time.Hour)

	_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), nil)

	require.ErrorIs(t, err, commands.ErrDeviceExpired)
}

func TestSyncActions_QueueCeilings(t *testing.T) {
	variantID := uuid.New()

	t.Run("count ceiling rejects the whole batch", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.prices[variantID] = 100
		f.settings.policies.MaxPendingSaleCount = 2

		incoming := []commands.IncomingAction{
			saleIncoming(t, variantID, 1, 100, nil),
			saleIncoming(t, variantID, 2, 100, nil),
			saleIncoming(t, variantID, 3, 100, nil),
		}
		_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), incoming)

		require.ErrorIs(t, err, commands.ErrQueueCountExceeded)
		assert.Empty(t, f.sales.calls, "no partial admission")
	})

	t.Run("value ceiling rejects the whole batch", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.prices[variantID] = 100
		f.settings.policies.MaxPendingSaleValue = 150

		incoming := []commands.IncomingAction{
			saleIncoming(t, variantID, 2, 100, nil),
		}
		_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), incoming)

		require.ErrorIs(t, err, commands.ErrQueueValueExceeded)
	})

	t.Run("breached pending queue blocks even non-sale batches", func(t *testing.T) {
		f := newFixture(t)
		f.settings.policies.MaxPendingSaleCount = 2
		for i := 0; i < 3; i++ {
			payload, err := json.Marshal(action.SalePayload{
				BranchID: uuid.New(),
				Lines:    []action.SaleLine{{VariantID: variantID, Quantity: 1, UnitPrice: 100}},
			})
			require.NoError(t, err)
			queued, err := action.New(f.businessID, f.device.ID(), f.userID,
				action.TypeSaleComplete, payload, "", nil, nil, f.clock.Now())
			require.NoError(t, err)
			inserted, err := f.actions.Insert(context.Background(), queued)
			require.NoError(t, err)
			require.True(t, inserted)
		}

		adjustPayload, err := json.Marshal(action.StockAdjustmentPayload{
			BranchID: uuid.New(), VariantID: variantID, Delta: 1,
		})
		require.NoError(t, err)
		_, err = f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(),
			[]commands.IncomingAction{{ActionType: action.TypeStockAdjustment, Payload: adjustPayload}})

		require.ErrorIs(t, err, commands.ErrQueueCountExceeded)
		assert.Empty(t, f.stock.calls)
	})

	t.Run("non-sale actions never count against ceilings", func(t *testing.T) {
		f := newFixture(t)
		f.settings.policies.MaxPendingSaleCount = 1

		adjustPayload, err := json.Marshal(action.StockAdjustmentPayload{
			BranchID: uuid.New(), VariantID: variantID, Delta: 1,
		})
		require.NoError(t, err)
		incoming := []commands.IncomingAction{
			{ActionType: action.TypeStockAdjustment, Payload: adjustPayload},
			{ActionType: action.TypeStockAdjustment, Payload: adjustPayload},
		}
		// Identical payloads collapse onto one ledger row; both report
		// the same applied outcome.
		res, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(), incoming)

		require.NoError(t, err)
		require.Len(t, res.Results, 2)
		assert.Equal(t, res.Results[0].ID, res.Results[1].ID)
		assert.Len(t, f.stock.calls, 1)
	})
}

func TestSyncActions_Admission(t *testing.T) {
	variantID := uuid.New()

	tests := []struct {
		name    string
		arrange func(f *fixture)
		wantErr error
	}{
		{
			"offline disabled for tier",
			func(f *fixture) { f.subscriptions.info.OfflineEnabled = false },
			commands.ErrOfflineNotEnabled,
		},
		{
			"subscription expired",
			func(f *fixture) { f.subscriptions.info.Status = shared.SubscriptionExpired },
			commands.ErrSubscriptionInactive,
		},
		{
			"membership deactivated",
			func(f *fixture) { delete(f.permissions.access, f.userID) },
			commands.ErrMembershipInactive,
		},
		{
			"revoked device",
			func(f *fixture) { f.device.Revoke(f.clock.Now()) },
			commands.ErrDeviceNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.catalog.prices[variantID] = 100
			tt.arrange(f)

			_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(),
				[]commands.IncomingAction{saleIncoming(t, variantID, 1, 100, nil)})

			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.sales.calls)
		})
	}

	t.Run("unknown device", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, uuid.New(), nil)

		require.ErrorIs(t, err, commands.ErrDeviceNotFound)
	})

	t.Run("device owned by another user", func(t *testing.T) {
		f := newFixture(t)
		otherUser := uuid.New()
		f.permissions.access[otherUser] = &shared.UserAccess{Permissions: []string{"sale-write"}}

		_, err := f.sync.SyncActions(context.Background(), f.businessID, otherUser, f.device.ID(), nil)

		require.ErrorIs(t, err, commands.ErrDeviceNotFound)
	})
}

func TestSyncActions_InvalidActionTypeFailsBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.SyncActions(context.Background(), f.businessID, f.userID, f.device.ID(),
		[]commands.IncomingAction{{ActionType: "COUPON_BURN", Payload: json.RawMessage(`{}`)}})

	require.ErrorIs(t, err, commands.ErrInvalidAction)
}

func TestSyncActions_EmitsAuditTrail(t *testing.T) {
	f := newFixture(t)
	variantID := uuid.New()
	f.catalog.prices[variantID] = 100

	f.syncOne(t, saleIncoming(t, variantID, 1, 100, nil))

	types := f.audit.typesSeen()
	assert.Contains(t, types, "offline_action_ingested")
	assert.Contains(t, types, "offline_action_applied")
}
