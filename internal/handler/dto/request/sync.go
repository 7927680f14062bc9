package request

import (
	"encoding/json"
	"time"

	"possync/internal/domain/action"
	"possync/internal/usecase/commands"
)

type SyncRequest struct {
	Actions []SyncActionRequest `json:"actions" binding:"required,dive"`
}

type SyncActionRequest struct {
	ActionType    string          `json:"actionType" binding:"required"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
	Checksum      string          `json:"checksum,omitempty"`
	LocalAuditID  *string         `json:"localAuditId,omitempty"`
	ProvisionalAt *time.Time      `json:"provisionalAt,omitempty"`
}

func (r SyncRequest) ToIncoming() []commands.IncomingAction {
	incoming := make([]commands.IncomingAction, len(r.Actions))
	for i, a := range r.Actions {
		incoming[i] = commands.IncomingAction{
			ActionType:    action.Type(a.ActionType),
			Payload:       a.Payload,
			Checksum:      a.Checksum,
			LocalAuditID:  a.LocalAuditID,
			ProvisionalAt: a.ProvisionalAt,
		}
	}
	return incoming
}
