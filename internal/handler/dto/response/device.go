package response

import (
	"time"

	"possync/internal/domain/device"
	"possync/internal/usecase/queries"

	"github.com/google/uuid"
)

type DeviceResponse struct {
	ID          uuid.UUID  `json:"id"`
	BusinessID  uuid.UUID  `json:"businessId"`
	UserID      uuid.UUID  `json:"userId"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Permissions []string   `json:"permissions"`
	LastSeenAt  time.Time  `json:"lastSeenAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
}

func FromDevice(d *device.Device) *DeviceResponse {
	return &DeviceResponse{
		ID:          d.ID(),
		BusinessID:  d.BusinessID(),
		UserID:      d.UserID(),
		Name:        d.Name(),
		Status:      d.Status().String(),
		Permissions: d.Snapshot().Permissions,
		LastSeenAt:  d.LastSeenAt(),
		CreatedAt:   d.CreatedAt(),
		RevokedAt:   d.RevokedAt(),
	}
}

func FromDeviceView(v *queries.DeviceView) *DeviceResponse {
	return &DeviceResponse{
		ID:          v.ID,
		BusinessID:  v.BusinessID,
		UserID:      v.UserID,
		Name:        v.Name,
		Status:      v.Status,
		Permissions: v.Permissions,
		LastSeenAt:  v.LastSeenAt,
		CreatedAt:   v.CreatedAt,
		RevokedAt:   v.RevokedAt,
	}
}
