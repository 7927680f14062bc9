package request

import (
	"time"

	"github.com/google/uuid"
)

type RegisterDeviceRequest struct {
	// DeviceID re-registers a known device instead of minting a new one.
	DeviceID *uuid.UUID `json:"deviceId,omitempty"`
	Name     string     `json:"name" binding:"required,min=1,max=100"`
}

type RecordStatusRequest struct {
	Status string     `json:"status" binding:"required,oneof=ONLINE OFFLINE"`
	Since  *time.Time `json:"since,omitempty"`
}
