package commands

import (
	"context"
	"encoding/json"

	"possync/internal/domain/action"
	"possync/internal/infra"
	"possync/internal/pkg/clock"
	"possync/internal/pkg/config"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrActionNotFound    = errs.New("offline action not found")
	ErrInvalidResolution = errs.New("invalid resolution for this action")
)

type ResolutionCommands interface {
	ResolveConflict(ctx context.Context, businessID, operatorID, actionID uuid.UUID, resolution action.Resolution) (*ActionResult, error)
}

type resolutionWorkstationImpl struct {
	actions   shared.ActionRepository
	approvals shared.ApprovalReader
	settings  shared.SettingsLookup
	governor  *limitGovernor
	replay    *replayService
	audit     shared.AuditSink
	clock     clock.Clock
}

func NewResolutionCommands(
	actions shared.ActionRepository,
	devices shared.DeviceRepository,
	permissions shared.PermissionResolver,
	approvals shared.ApprovalReader,
	settings shared.SettingsLookup,
	catalog shared.CatalogReader,
	sales shared.SaleWriter,
	purchases shared.PurchaseWriter,
	stock shared.StockWriter,
	audit shared.AuditSink,
	defaults config.SyncConfig,
	clock clock.Clock,
) ResolutionCommands {
	appliers := newApplierSet(catalog, sales, purchases, stock)
	return &resolutionWorkstationImpl{
		actions:   actions,
		approvals: approvals,
		settings:  settings,
		governor:  newLimitGovernor(devices, actions, settings, audit, defaults, clock),
		replay:    newReplayService(actions, permissions, appliers, audit, clock),
		audit:     audit,
		clock:     clock,
	}
}

// ResolveConflict re-adjudicates a CONFLICT/REJECTED action. The
// transition emits two audit events: the operator's decision and the
// resulting status. An already-APPLIED action is a no-op — resolution
// never re-applies a settled action.
func (w *resolutionWorkstationImpl) ResolveConflict(ctx context.Context, businessID, operatorID, actionID uuid.UUID, resolution action.Resolution) (*ActionResult, error) {
	if !resolution.IsValid() {
		return nil, ErrInvalidResolution
	}

	act, err := w.actions.FindByID(ctx, businessID, actionID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	if act.IsSettled() {
		return toActionResult(act), nil
	}
	if !act.IsResolvable() {
		return nil, ErrInvalidResolution
	}

	w.logDecision(ctx, act, operatorID, resolution)

	switch resolution {
	case action.ResolutionDismiss:
		err = w.dismiss(ctx, act)
	case action.ResolutionSyncApproval:
		err = w.syncApproval(ctx, act)
	case action.ResolutionRetry:
		err = w.rerun(ctx, act, false)
	case action.ResolutionOverridePrice:
		if act.ActionType() != action.TypeSaleComplete {
			return nil, ErrInvalidResolution
		}
		err = w.rerun(ctx, act, true)
	}
	if err != nil {
		return nil, err
	}

	return toActionResult(act), nil
}

// dismiss is terminal REJECTED with no domain effect.
func (w *resolutionWorkstationImpl) dismiss(ctx context.Context, act *action.Action) error {
	reason := action.ReasonValidationFailed
	if r := act.ConflictReason(); r != nil {
		reason = *r
	}
	return w.replay.recordOutcome(ctx, act, applyOutcome{
		Status:       action.StatusRejected,
		Reason:       reason,
		ErrorMessage: "dismissed by operator",
	})
}

// syncApproval polls the referenced approval. A still-pending approval
// leaves the action in CONFLICT, so polling repeatedly is safe.
func (w *resolutionWorkstationImpl) syncApproval(ctx context.Context, act *action.Action) error {
	approvalID, ok := act.ApprovalID()
	if !ok {
		return ErrInvalidResolution
	}

	approval, err := w.approvals.Get(ctx, act.BusinessID(), approvalID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return ErrInvalidResolution
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}

	switch approval.Status {
	case shared.ApprovalApproved:
		result, _ := json.Marshal(map[string]any{"approvalId": approvalID, "approved": true})
		return w.replay.recordOutcome(ctx, act, applyOutcome{
			Status: action.StatusApplied,
			Result: result,
		})
	case shared.ApprovalRejected:
		return w.replay.recordOutcome(ctx, act, applyOutcome{
			Status:       action.StatusRejected,
			Reason:       action.ReasonApprovalRequired,
			ErrorMessage: "approval rejected",
		})
	default:
		// Still pending: re-assign CONFLICT with the payload unchanged.
		return w.replay.recordOutcome(ctx, act, applyOutcome{
			Status:       action.StatusConflict,
			Reason:       action.ReasonApprovalRequired,
			ConflictData: act.ConflictData(),
		})
	}
}

// rerun re-resolves current permissions and re-invokes the original
// applier with the unchanged payload. bypassVariance skips the price gate
// for this one attempt.
func (w *resolutionWorkstationImpl) rerun(ctx context.Context, act *action.Action, bypassVariance bool) error {
	policies, err := w.governor.policiesFor(ctx, act.BusinessID())
	if err != nil {
		return err
	}

	outcome := w.replay.gateAndApply(ctx, act, applyOptions{
		Policies:       policies,
		BypassVariance: bypassVariance,
	})
	return w.replay.recordOutcome(ctx, act, outcome)
}

func (w *resolutionWorkstationImpl) logDecision(ctx context.Context, act *action.Action, operatorID uuid.UUID, resolution action.Resolution) {
	id := act.ID()
	detail, _ := json.Marshal(map[string]any{"resolution": resolution})
	event := shared.AuditEvent{
		Type:       "offline_conflict_resolution",
		BusinessID: act.BusinessID(),
		UserID:     operatorID,
		DeviceID:   act.DeviceID(),
		ActionID:   &id,
		ActionType: string(act.ActionType()),
		Detail:     detail,
	}
	if reason := act.ConflictReason(); reason != nil {
		event.ConflictReason = string(*reason)
	}
	w.audit.LogEvent(ctx, event)
}
