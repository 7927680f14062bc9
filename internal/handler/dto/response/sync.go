package response

import (
	"encoding/json"

	"possync/internal/usecase/commands"
	"possync/internal/usecase/queries"

	"github.com/google/uuid"
)

type SyncResponse struct {
	Results []ActionResultResponse `json:"results"`
	Cache   *queries.CacheExtract  `json:"cache"`
}

type ActionResultResponse struct {
	ID             uuid.UUID       `json:"id"`
	ActionType     string          `json:"actionType"`
	Checksum       string          `json:"checksum"`
	LocalAuditID   *string         `json:"localAuditId,omitempty"`
	Status         string          `json:"status"`
	Result         json.RawMessage `json:"result,omitempty"`
	ConflictReason *string         `json:"conflictReason,omitempty"`
	ConflictData   json.RawMessage `json:"conflictData,omitempty"`
	ErrorMessage   *string         `json:"errorMessage,omitempty"`
}

func FromSyncResult(result *commands.SyncResult) *SyncResponse {
	results := make([]ActionResultResponse, len(result.Results))
	for i := range result.Results {
		results[i] = *FromActionResult(&result.Results[i])
	}
	return &SyncResponse{
		Results: results,
		Cache:   result.Cache,
	}
}

func FromActionResult(r *commands.ActionResult) *ActionResultResponse {
	var reason *string
	if r.ConflictReason != nil {
		s := string(*r.ConflictReason)
		reason = &s
	}
	return &ActionResultResponse{
		ID:             r.ID,
		ActionType:     string(r.ActionType),
		Checksum:       r.Checksum,
		LocalAuditID:   r.LocalAuditID,
		Status:         string(r.Status),
		Result:         r.Result,
		ConflictReason: reason,
		ConflictData:   r.ConflictData,
		ErrorMessage:   r.ErrorMessage,
	}
}
