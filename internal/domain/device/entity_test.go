//go:build unit

package device_test

import (
	"testing"
	"time"

	"possync/internal/domain/device"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testBusinessID = uuid.New()
	testUserID     = uuid.New()
	testSnapshot   = device.PermissionSnapshot{
		Permissions: []string{"sale-write", "stock-write"},
		RoleIDs:     []string{"cashier"},
	}
)

func newTestDevice(t *testing.T, now time.Time) *device.Device {
	t.Helper()
	d, err := device.NewDevice(testBusinessID, testUserID, "Register 1", testSnapshot, now)
	require.NoError(t, err)
	return d
}

func TestNewDevice(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("basic success case", func(t *testing.T) {
		d := newTestDevice(t, now)

		assert.NotEqual(t, uuid.Nil, d.ID())
		assert.Equal(t, device.StatusActive, d.Status())
		assert.True(t, d.IsActive())
		assert.Equal(t, now, d.LastSeenAt())
		assert.Equal(t, now, d.CreatedAt())
		assert.Nil(t, d.RevokedAt())
		assert.True(t, d.Snapshot().Has("sale-write"))
		assert.False(t, d.Snapshot().Has("purchase-write"))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := device.NewDevice(testBusinessID, testUserID, "   ", testSnapshot, now)
		assert.ErrorIs(t, err, device.ErrEmptyName)
	})

	t.Run("name is trimmed", func(t *testing.T) {
		d, err := device.NewDevice(testBusinessID, testUserID, "  Register 2  ", testSnapshot, now)
		require.NoError(t, err)
		assert.Equal(t, "Register 2", d.Name())
	})
}

func TestDeviceTransitions(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("revoke stamps revokedAt", func(t *testing.T) {
		d := newTestDevice(t, now)
		revokeAt := now.Add(time.Hour)

		d.Revoke(revokeAt)

		assert.Equal(t, device.StatusRevoked, d.Status())
		assert.False(t, d.IsActive())
		require.NotNil(t, d.RevokedAt())
		assert.Equal(t, revokeAt, *d.RevokedAt())
	})

	t.Run("revoking twice stamps again", func(t *testing.T) {
		d := newTestDevice(t, now)
		d.Revoke(now.Add(time.Hour))
		second := now.Add(2 * time.Hour)

		d.Revoke(second)

		require.NotNil(t, d.RevokedAt())
		assert.Equal(t, second, *d.RevokedAt())
	})

	t.Run("reactivate refreshes snapshot and clears revocation", func(t *testing.T) {
		d := newTestDevice(t, now)
		d.Revoke(now.Add(time.Hour))

		fresh := device.PermissionSnapshot{Permissions: []string{"sale-write"}}
		seenAt := now.Add(48 * time.Hour)
		d.Reactivate(fresh, seenAt)

		assert.True(t, d.IsActive())
		assert.Nil(t, d.RevokedAt())
		assert.Equal(t, seenAt, d.LastSeenAt())
		assert.False(t, d.Snapshot().Has("stock-write"))
	})

	t.Run("expire", func(t *testing.T) {
		d := newTestDevice(t, now)
		d.Expire()
		assert.Equal(t, device.StatusExpired, d.Status())
		assert.False(t, d.IsActive())
	})
}

func TestDurationCeiling(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	d := newTestDevice(t, now)

	t.Run("within ceiling", func(t *testing.T) {
		assert.False(t, d.ExceedsDurationCeiling(now.Add(71*time.Hour), 72*time.Hour))
	})

	t.Run("beyond ceiling", func(t *testing.T) {
		assert.True(t, d.ExceedsDurationCeiling(now.Add(73*time.Hour), 72*time.Hour))
	})

	t.Run("exactly at ceiling is allowed", func(t *testing.T) {
		assert.False(t, d.ExceedsDurationCeiling(now.Add(72*time.Hour), 72*time.Hour))
	})

	t.Run("non-positive ceiling means unlimited", func(t *testing.T) {
		assert.False(t, d.ExceedsDurationCeiling(now.Add(10000*time.Hour), 0))
	})

	t.Run("offline duration anchored on lastSeenAt", func(t *testing.T) {
		d := newTestDevice(t, now)
		d.Touch(now.Add(50 * time.Hour))
		assert.Equal(t, 10*time.Hour, d.OfflineFor(now.Add(60*time.Hour)))
	})
}

func TestOwnership(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	d := newTestDevice(t, now)

	assert.True(t, d.IsOwnedBy(testBusinessID, testUserID))
	assert.False(t, d.IsOwnedBy(testBusinessID, uuid.New()))
	assert.False(t, d.IsOwnedBy(uuid.New(), testUserID))
}
