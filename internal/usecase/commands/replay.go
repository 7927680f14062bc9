package commands

import (
	"context"

	"possync/internal/domain/action"
	"possync/internal/infra"
	"possync/internal/pkg/clock"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"
)

// replayService is the per-action half of the engine: permission gate,
// applier dispatch and outcome recording. The sync loop and the resolution
// workstation both replay through it so a retried action follows exactly
// the path of a freshly synced one.
type replayService struct {
	actions     shared.ActionRepository
	permissions shared.PermissionResolver
	appliers    *applierSet
	audit       shared.AuditSink
	clock       clock.Clock
}

func newReplayService(
	actions shared.ActionRepository,
	permissions shared.PermissionResolver,
	appliers *applierSet,
	audit shared.AuditSink,
	clock clock.Clock,
) *replayService {
	return &replayService{
		actions:     actions,
		permissions: permissions,
		appliers:    appliers,
		audit:       audit,
		clock:       clock,
	}
}

// gateAndApply re-resolves the actor's permissions and short-circuits to
// REJECTED/PERMISSION_REVOKED before the applier ever runs. This is what
// neutralizes a compromised or off-boarded device's queue.
func (r *replayService) gateAndApply(ctx context.Context, act *action.Action, opts applyOptions) applyOutcome {
	access, err := r.permissions.ResolveUserAccess(ctx, act.UserID(), act.BusinessID())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return rejected(action.ReasonPermissionRevoked, "membership no longer active")
		}
		return failed(err)
	}
	// Ledger rows rehydrated for resolution may carry a type with no
	// permission mapped; those fall through to the applier dispatch.
	if required := act.ActionType().RequiredPermission(); required != "" && !access.Has(required) {
		return rejected(action.ReasonPermissionRevoked, "missing permission: "+required)
	}

	return r.appliers.apply(ctx, act, opts)
}

// recordOutcome assigns exactly one new status for this attempt, persists
// it and emits the transition audit event.
func (r *replayService) recordOutcome(ctx context.Context, act *action.Action, outcome applyOutcome) error {
	now := r.clock.Now()

	var err error
	switch outcome.Status {
	case action.StatusApplied:
		err = act.MarkApplied(outcome.Result, now)
	case action.StatusConflict:
		err = act.MarkConflict(outcome.Reason, outcome.ConflictData, now)
	case action.StatusRejected:
		err = act.MarkRejected(outcome.Reason, outcome.ErrorMessage, now)
	default:
		err = act.MarkFailed(outcome.ErrorMessage, now)
	}
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	if err := r.actions.SaveOutcome(ctx, act); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	r.logActionEvent(ctx, "offline_action_"+statusEventSuffix(outcome.Status), act)
	return nil
}

func (r *replayService) logActionEvent(ctx context.Context, eventType string, act *action.Action) {
	id := act.ID()
	event := shared.AuditEvent{
		Type:       eventType,
		BusinessID: act.BusinessID(),
		UserID:     act.UserID(),
		DeviceID:   act.DeviceID(),
		ActionID:   &id,
		ActionType: string(act.ActionType()),
	}
	if reason := act.ConflictReason(); reason != nil {
		event.ConflictReason = string(*reason)
	}
	r.audit.LogEvent(ctx, event)
}

func statusEventSuffix(s action.Status) string {
	switch s {
	case action.StatusApplied:
		return "applied"
	case action.StatusConflict:
		return "conflict"
	case action.StatusRejected:
		return "rejected"
	default:
		return "failed"
	}
}
