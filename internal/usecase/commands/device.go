package commands

import (
	"context"
	"log/slog"
	"time"

	"possync/internal/domain/device"
	"possync/internal/infra"
	"possync/internal/pkg/clock"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrOfflineNotEnabled    = errs.New("offline capability not enabled")
	ErrSubscriptionInactive = errs.New("subscription expired or suspended")
	ErrMembershipInactive   = errs.New("membership inactive")
	ErrDeviceLimitReached   = errs.New("offline device limit reached")
	ErrDeviceNotFound       = errs.New("device not found")
	ErrDeviceNotActive      = errs.New("device not active")
	ErrDeviceExpired        = errs.New("device exceeded offline duration ceiling")
	ErrDatabaseOperation    = errs.New("database operation failed")
)

type RegisterDeviceParams struct {
	BusinessID uuid.UUID
	UserID     uuid.UUID
	Name       string
	// DeviceID reactivates an existing device owned by the same
	// (business, user) pair instead of creating a new one.
	DeviceID *uuid.UUID
}

type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "ONLINE"
	DeviceOffline DeviceStatus = "OFFLINE"
)

type DeviceCommands interface {
	RegisterDevice(ctx context.Context, params RegisterDeviceParams) (*device.Device, error)
	RevokeDevice(ctx context.Context, businessID, deviceID uuid.UUID) error
	RecordStatus(ctx context.Context, businessID, userID, deviceID uuid.UUID, status DeviceStatus, since *time.Time) error
}

type deviceCommandsImpl struct {
	devices       shared.DeviceRepository
	subscriptions shared.SubscriptionLookup
	permissions   shared.PermissionResolver
	audit         shared.AuditSink
	clock         clock.Clock
}

func NewDeviceCommands(
	devices shared.DeviceRepository,
	subscriptions shared.SubscriptionLookup,
	permissions shared.PermissionResolver,
	audit shared.AuditSink,
	clock clock.Clock,
) DeviceCommands {
	return &deviceCommandsImpl{
		devices:       devices,
		subscriptions: subscriptions,
		permissions:   permissions,
		audit:         audit,
		clock:         clock,
	}
}

func (c *deviceCommandsImpl) RegisterDevice(ctx context.Context, params RegisterDeviceParams) (*device.Device, error) {
	sub, err := c.subscriptions.Get(ctx, params.BusinessID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if !sub.OfflineEnabled {
		return nil, ErrOfflineNotEnabled
	}
	if sub.Status != shared.SubscriptionActive {
		return nil, ErrSubscriptionInactive
	}

	access, err := c.permissions.ResolveUserAccess(ctx, params.UserID, params.BusinessID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrMembershipInactive
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	snapshot := device.PermissionSnapshot{
		Permissions: access.Permissions,
		RoleIDs:     access.RoleIDs,
	}
	now := c.clock.Now()

	if params.DeviceID != nil {
		existing, err := c.devices.FindOwned(ctx, params.BusinessID, params.UserID, *params.DeviceID)
		if err == nil {
			// A revoked or expired device rejoins the active count, so
			// the ceiling applies; an already-active one is in it.
			if !existing.IsActive() {
				if err := c.checkDeviceCeiling(ctx, params.BusinessID, sub.MaxOfflineDevices); err != nil {
					return nil, err
				}
			}
			existing.Reactivate(snapshot, now)
			if err := c.devices.Save(ctx, existing); err != nil {
				return nil, errs.Mark(err, ErrDatabaseOperation)
			}
			c.logDeviceEvent(ctx, "offline_device_reactivated", existing)
			return existing, nil
		}
		if !infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrDatabaseOperation)
		}
		// Unknown id falls through to a fresh registration.
	}

	if err := c.checkDeviceCeiling(ctx, params.BusinessID, sub.MaxOfflineDevices); err != nil {
		return nil, err
	}

	d, err := device.NewDevice(params.BusinessID, params.UserID, params.Name, snapshot, now)
	if err != nil {
		return nil, err
	}
	if err := c.devices.Create(ctx, d); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	c.logDeviceEvent(ctx, "offline_device_registered", d)
	return d, nil
}

// checkDeviceCeiling enforces the tier's active-device cap. A
// non-positive cap means the tier is unlimited.
func (c *deviceCommandsImpl) checkDeviceCeiling(ctx context.Context, businessID uuid.UUID, max int) error {
	if max <= 0 {
		return nil
	}
	activeCount, err := c.devices.CountActive(ctx, businessID)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	if activeCount >= max {
		return ErrDeviceLimitReached
	}
	return nil
}

// RevokeDevice does not guard against double revocation; re-revoking
// stamps revokedAt again.
func (c *deviceCommandsImpl) RevokeDevice(ctx context.Context, businessID, deviceID uuid.UUID) error {
	d, err := c.devices.FindByID(ctx, deviceID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return ErrDeviceNotFound
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}
	if d.BusinessID() != businessID {
		return ErrDeviceNotFound
	}

	d.Revoke(c.clock.Now())
	if err := c.devices.Save(ctx, d); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	c.logDeviceEvent(ctx, "offline_device_revoked", d)
	return nil
}

func (c *deviceCommandsImpl) RecordStatus(ctx context.Context, businessID, userID, deviceID uuid.UUID, status DeviceStatus, since *time.Time) error {
	d, err := c.devices.FindOwned(ctx, businessID, userID, deviceID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return ErrDeviceNotFound
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}

	seenAt := c.clock.Now()
	if since != nil {
		seenAt = *since
	}
	d.Touch(seenAt)
	if err := c.devices.Save(ctx, d); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	slog.Debug("device status recorded",
		"device_id", deviceID, "status", string(status), "seen_at", seenAt)
	return nil
}

func (c *deviceCommandsImpl) logDeviceEvent(ctx context.Context, eventType string, d *device.Device) {
	c.audit.LogEvent(ctx, shared.AuditEvent{
		Type:       eventType,
		BusinessID: d.BusinessID(),
		UserID:     d.UserID(),
		DeviceID:   d.ID(),
	})
}
