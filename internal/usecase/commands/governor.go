package commands

import (
	"context"

	"possync/internal/domain/action"
	"possync/internal/domain/device"
	"possync/internal/pkg/clock"
	"possync/internal/pkg/config"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrQueueCountExceeded = errs.New("queued sale count ceiling exceeded")
	ErrQueueValueExceeded = errs.New("queued sale value ceiling exceeded")
)

// limitGovernor enforces the per-device ceilings: offline duration before
// anything else, then queued sale count/value at intake. Ceilings come
// from tenant policy merged with subscription-tier defaults.
type limitGovernor struct {
	devices  shared.DeviceRepository
	actions  shared.ActionRepository
	settings shared.SettingsLookup
	audit    shared.AuditSink
	defaults config.SyncConfig
	clock    clock.Clock
}

func newLimitGovernor(
	devices shared.DeviceRepository,
	actions shared.ActionRepository,
	settings shared.SettingsLookup,
	audit shared.AuditSink,
	defaults config.SyncConfig,
	clock clock.Clock,
) *limitGovernor {
	return &limitGovernor{
		devices:  devices,
		actions:  actions,
		settings: settings,
		audit:    audit,
		defaults: defaults,
		clock:    clock,
	}
}

// policiesFor resolves tenant overrides over the tier defaults.
func (g *limitGovernor) policiesFor(ctx context.Context, businessID uuid.UUID) (*shared.OfflinePolicies, error) {
	p, err := g.settings.Get(ctx, businessID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	merged := *p
	if merged.MaxOfflineDuration <= 0 {
		merged.MaxOfflineDuration = g.defaults.MaxOfflineDuration
	}
	if merged.MaxPendingSaleCount <= 0 {
		merged.MaxPendingSaleCount = g.defaults.MaxPendingSaleCount
	}
	if merged.MaxPendingSaleValue <= 0 {
		merged.MaxPendingSaleValue = g.defaults.MaxPendingSaleValue
	}
	if merged.VarianceThreshold <= 0 {
		merged.VarianceThreshold = g.defaults.VarianceThreshold
	}
	return &merged, nil
}

// checkDuration runs first and lazily: a breach flips the device to
// EXPIRED and rejects the call before any action is processed.
func (g *limitGovernor) checkDuration(ctx context.Context, d *device.Device, policies *shared.OfflinePolicies) error {
	if !d.ExceedsDurationCeiling(g.clock.Now(), policies.MaxOfflineDuration) {
		return nil
	}

	d.Expire()
	if err := g.devices.Save(ctx, d); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	g.audit.LogEvent(ctx, shared.AuditEvent{
		Type:       "offline_device_expired",
		BusinessID: d.BusinessID(),
		UserID:     d.UserID(),
		DeviceID:   d.ID(),
	})
	return ErrDeviceExpired
}

// checkQueue admits or rejects the ENTIRE batch: existing PENDING sales
// plus the incoming ones must stay under both ceilings. No partial
// admission.
func (g *limitGovernor) checkQueue(ctx context.Context, d *device.Device, policies *shared.OfflinePolicies, incoming []IncomingAction) error {
	incomingCount := 0
	incomingValue := 0.0
	for _, in := range incoming {
		if in.ActionType != action.TypeSaleComplete {
			continue
		}
		var payload action.SalePayload
		if err := unmarshalPayload(in.Payload, &payload); err != nil {
			continue // malformed payloads are caught per-action at replay
		}
		incomingCount++
		incomingValue += payload.Total()
	}
	// No shortcut when the batch adds no sales: a queue already over a
	// ceiling blocks the device until an operator intervenes.
	pending, err := g.actions.PendingSales(ctx, d.ID())
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	if pending.Count+incomingCount > policies.MaxPendingSaleCount {
		return ErrQueueCountExceeded
	}
	if pending.Value+incomingValue > policies.MaxPendingSaleValue {
		return ErrQueueValueExceeded
	}
	return nil
}
