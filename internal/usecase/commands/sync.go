package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"possync/internal/domain/action"
	"possync/internal/domain/device"
	"possync/internal/infra"
	"possync/internal/pkg/clock"
	"possync/internal/pkg/config"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/queries"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

var ErrInvalidAction = errs.New("invalid action in batch")

// IncomingAction is one queued business action submitted by a device.
type IncomingAction struct {
	ActionType    action.Type
	Payload       json.RawMessage
	Checksum      string
	LocalAuditID  *string
	ProvisionalAt *time.Time
}

// ActionResult is the per-action breakdown returned to the device. A batch
// that partially succeeds still reports every item.
type ActionResult struct {
	ID             uuid.UUID
	ActionType     action.Type
	Checksum       string
	LocalAuditID   *string
	Status         action.Status
	Result         json.RawMessage
	ConflictReason *action.ConflictReason
	ConflictData   json.RawMessage
	ErrorMessage   *string
}

type SyncResult struct {
	Results []ActionResult
	Cache   *queries.CacheExtract
}

type SyncCommands interface {
	SyncActions(ctx context.Context, businessID, userID, deviceID uuid.UUID, incoming []IncomingAction) (*SyncResult, error)
}

type syncEngineImpl struct {
	devices       shared.DeviceRepository
	actions       shared.ActionRepository
	subscriptions shared.SubscriptionLookup
	permissions   shared.PermissionResolver
	governor      *limitGovernor
	replay        *replayService
	cacheBuilder  queries.CacheBuilder
	audit         shared.AuditSink
	clock         clock.Clock
}

func NewSyncCommands(
	devices shared.DeviceRepository,
	actions shared.ActionRepository,
	subscriptions shared.SubscriptionLookup,
	permissions shared.PermissionResolver,
	settings shared.SettingsLookup,
	catalog shared.CatalogReader,
	sales shared.SaleWriter,
	purchases shared.PurchaseWriter,
	stock shared.StockWriter,
	cacheBuilder queries.CacheBuilder,
	audit shared.AuditSink,
	defaults config.SyncConfig,
	clock clock.Clock,
) SyncCommands {
	appliers := newApplierSet(catalog, sales, purchases, stock)
	return &syncEngineImpl{
		devices:       devices,
		actions:       actions,
		subscriptions: subscriptions,
		permissions:   permissions,
		governor:      newLimitGovernor(devices, actions, settings, audit, defaults, clock),
		replay:        newReplayService(actions, permissions, appliers, audit, clock),
		cacheBuilder:  cacheBuilder,
		audit:         audit,
		clock:         clock,
	}
}

// SyncActions is the single entry point for a reconnecting device. The
// batch is admitted as a whole or rejected as a whole; admitted actions
// are replayed strictly sequentially in client-intended order, each
// reaching a terminal-for-this-attempt state.
func (e *syncEngineImpl) SyncActions(ctx context.Context, businessID, userID, deviceID uuid.UUID, incoming []IncomingAction) (*SyncResult, error) {
	d, err := e.admitDevice(ctx, businessID, userID, deviceID)
	if err != nil {
		return nil, err
	}

	policies, err := e.governor.policiesFor(ctx, d.BusinessID())
	if err != nil {
		return nil, err
	}
	if err := e.governor.checkDuration(ctx, d, policies); err != nil {
		return nil, err
	}
	if err := e.governor.checkQueue(ctx, d, policies, incoming); err != nil {
		return nil, err
	}

	ordered := orderByProvisionalAt(incoming)

	results := make([]ActionResult, 0, len(ordered))
	for _, in := range ordered {
		result, err := e.replayOne(ctx, d, in, policies)
		if err != nil {
			// Infrastructure failure: stop before recording later actions.
			// Already-recorded ones stay discoverable under their checksum.
			return nil, err
		}
		results = append(results, *result)
	}

	// The extract must reflect state AFTER this call's actions applied.
	cache, err := e.cacheBuilder.Build(ctx, businessID, userID, deviceID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	return &SyncResult{Results: results, Cache: cache}, nil
}

func (e *syncEngineImpl) admitDevice(ctx context.Context, businessID, userID, deviceID uuid.UUID) (*device.Device, error) {
	sub, err := e.subscriptions.Get(ctx, businessID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if !sub.OfflineEnabled {
		return nil, ErrOfflineNotEnabled
	}
	if sub.Status != shared.SubscriptionActive {
		return nil, ErrSubscriptionInactive
	}

	if _, err := e.permissions.ResolveUserAccess(ctx, userID, businessID); err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrMembershipInactive
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	d, err := e.devices.FindOwned(ctx, businessID, userID, deviceID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if !d.IsActive() {
		return nil, ErrDeviceNotActive
	}

	return d, nil
}

func (e *syncEngineImpl) replayOne(ctx context.Context, d *device.Device, in IncomingAction, policies *shared.OfflinePolicies) (*ActionResult, error) {
	act, err := action.New(
		d.BusinessID(), d.ID(), d.UserID(),
		in.ActionType, in.Payload, in.Checksum, in.LocalAuditID, in.ProvisionalAt,
		e.clock.Now(),
	)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidAction)
	}

	inserted, err := e.actions.Insert(ctx, act)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if !inserted {
		// Resubmission: return the previously recorded outcome verbatim
		// instead of reprocessing.
		prior, err := e.actions.FindByChecksum(ctx, d.BusinessID(), d.ID(), act.Checksum())
		if err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperation)
		}
		slog.Debug("duplicate action replayed from ledger",
			"device_id", d.ID(), "checksum", act.Checksum(), "status", string(prior.Status()))
		return toActionResult(prior), nil
	}

	// Trace the admission before any business effect so the action is
	// auditable even if its applier fails unexpectedly.
	e.replay.logActionEvent(ctx, "offline_action_ingested", act)

	outcome := e.replay.gateAndApply(ctx, act, applyOptions{Policies: policies})
	if err := e.replay.recordOutcome(ctx, act, outcome); err != nil {
		return nil, err
	}

	return toActionResult(act), nil
}

// orderByProvisionalAt sorts ascending by the client-recorded timestamp;
// missing values sort first, ties keep submission order.
func orderByProvisionalAt(incoming []IncomingAction) []IncomingAction {
	ordered := make([]IncomingAction, len(incoming))
	copy(ordered, incoming)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := ordered[i].ProvisionalAt, ordered[j].ProvisionalAt
		switch {
		case ti == nil:
			return tj != nil
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})
	return ordered
}

func toActionResult(act *action.Action) *ActionResult {
	return &ActionResult{
		ID:             act.ID(),
		ActionType:     act.ActionType(),
		Checksum:       act.Checksum(),
		LocalAuditID:   act.LocalAuditID(),
		Status:         act.Status(),
		Result:         act.Result(),
		ConflictReason: act.ConflictReason(),
		ConflictData:   act.ConflictData(),
		ErrorMessage:   act.ErrorMessage(),
	}
}
