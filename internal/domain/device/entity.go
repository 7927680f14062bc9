package device

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyName      = errors.New("device name must not be empty")
	ErrNotActive      = errors.New("device is not active")
	ErrInvalidStatus  = errors.New("invalid device status")
	ErrWrongOwnership = errors.New("device is owned by another user")
)

// Device is a registered offline POS credential. It is owned by exactly one
// (business, user) pair for its entire lifetime.
type Device struct {
	id         uuid.UUID
	businessID uuid.UUID
	userID     uuid.UUID
	name       string
	status     Status
	snapshot   PermissionSnapshot
	lastSeenAt time.Time
	createdAt  time.Time
	revokedAt  *time.Time
}

func NewDevice(businessID, userID uuid.UUID, name string, snapshot PermissionSnapshot, now time.Time) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Device{
		id:         uuid.New(),
		businessID: businessID,
		userID:     userID,
		name:       name,
		status:     StatusActive,
		snapshot:   snapshot,
		lastSeenAt: now,
		createdAt:  now,
	}, nil
}

func Reconstruct(
	id, businessID, userID uuid.UUID,
	name string,
	status Status,
	snapshot PermissionSnapshot,
	lastSeenAt, createdAt time.Time,
	revokedAt *time.Time,
) *Device {
	return &Device{
		id:         id,
		businessID: businessID,
		userID:     userID,
		name:       name,
		status:     status,
		snapshot:   snapshot,
		lastSeenAt: lastSeenAt,
		createdAt:  createdAt,
		revokedAt:  revokedAt,
	}
}

// Revoke is intentionally not guarded against double revocation: revoking
// an already-revoked device stamps revokedAt again.
func (d *Device) Revoke(now time.Time) {
	d.status = StatusRevoked
	d.revokedAt = &now
}

// Expire flips the device after a duration-ceiling breach. Detection is
// lazy: the transition happens on the next call that touches the device.
func (d *Device) Expire() {
	d.status = StatusExpired
}

// Reactivate is the only transition that returns a device to ACTIVE. The
// permission snapshot is refreshed because the cached one may be days old.
func (d *Device) Reactivate(snapshot PermissionSnapshot, now time.Time) {
	d.status = StatusActive
	d.snapshot = snapshot
	d.revokedAt = nil
	d.lastSeenAt = now
}

func (d *Device) Touch(seenAt time.Time) {
	d.lastSeenAt = seenAt
}

func (d *Device) IsActive() bool {
	return d.status == StatusActive
}

func (d *Device) IsOwnedBy(businessID, userID uuid.UUID) bool {
	return d.businessID == businessID && d.userID == userID
}

// OfflineFor reports how long the device has been offline relative to now.
func (d *Device) OfflineFor(now time.Time) time.Duration {
	return now.Sub(d.lastSeenAt)
}

// ExceedsDurationCeiling reports whether the continuous-offline ceiling is
// breached. A non-positive ceiling means the tenant has no duration limit.
func (d *Device) ExceedsDurationCeiling(now time.Time, ceiling time.Duration) bool {
	if ceiling <= 0 {
		return false
	}
	return d.OfflineFor(now) > ceiling
}

func (d *Device) ID() uuid.UUID                 { return d.id }
func (d *Device) BusinessID() uuid.UUID         { return d.businessID }
func (d *Device) UserID() uuid.UUID             { return d.userID }
func (d *Device) Name() string                  { return d.name }
func (d *Device) Status() Status                { return d.status }
func (d *Device) Snapshot() PermissionSnapshot  { return d.snapshot }
func (d *Device) LastSeenAt() time.Time         { return d.lastSeenAt }
func (d *Device) CreatedAt() time.Time          { return d.createdAt }
func (d *Device) RevokedAt() *time.Time         { return d.revokedAt }
