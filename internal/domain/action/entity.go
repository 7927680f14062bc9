package action

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidType    = errors.New("invalid action type")
	ErrEmptyPayload   = errors.New("action payload must not be empty")
	ErrAlreadyApplied = errors.New("applied action is immutable")
	ErrNotResolvable  = errors.New("action is not in a resolvable state")
)

// Action is one entry in the idempotency ledger. (businessID, deviceID,
// checksum) is unique; the ledger row is the sole at-most-once guarantee
// for retried submissions.
type Action struct {
	id             uuid.UUID
	businessID     uuid.UUID
	deviceID       uuid.UUID
	userID         uuid.UUID
	actionType     Type
	payload        json.RawMessage
	checksum       string
	localAuditID   *string
	provisionalAt  *time.Time
	status         Status
	result         json.RawMessage
	conflictReason *ConflictReason
	conflictData   json.RawMessage
	errorMessage   *string
	createdAt      time.Time
	syncedAt       *time.Time
	appliedAt      *time.Time
}

func New(
	businessID, deviceID, userID uuid.UUID,
	actionType Type,
	payload json.RawMessage,
	checksum string,
	localAuditID *string,
	provisionalAt *time.Time,
	now time.Time,
) (*Action, error) {
	if !actionType.IsValid() {
		return nil, ErrInvalidType
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if checksum == "" {
		checksum = ComputeChecksum(actionType, payload)
	}

	return &Action{
		id:            uuid.New(),
		businessID:    businessID,
		deviceID:      deviceID,
		userID:        userID,
		actionType:    actionType,
		payload:       payload,
		checksum:      checksum,
		localAuditID:  localAuditID,
		provisionalAt: provisionalAt,
		status:        StatusPending,
		createdAt:     now,
	}, nil
}

func Reconstruct(
	id, businessID, deviceID, userID uuid.UUID,
	actionType Type,
	payload json.RawMessage,
	checksum string,
	localAuditID *string,
	provisionalAt *time.Time,
	status Status,
	result json.RawMessage,
	conflictReason *ConflictReason,
	conflictData json.RawMessage,
	errorMessage *string,
	createdAt time.Time,
	syncedAt, appliedAt *time.Time,
) *Action {
	return &Action{
		id:             id,
		businessID:     businessID,
		deviceID:       deviceID,
		userID:         userID,
		actionType:     actionType,
		payload:        payload,
		checksum:       checksum,
		localAuditID:   localAuditID,
		provisionalAt:  provisionalAt,
		status:         status,
		result:         result,
		conflictReason: conflictReason,
		conflictData:   conflictData,
		errorMessage:   errorMessage,
		createdAt:      createdAt,
		syncedAt:       syncedAt,
		appliedAt:      appliedAt,
	}
}

// MarkApplied settles the action. APPLIED is immutable: a settled action is
// never re-applied, even through the resolution workstation.
func (a *Action) MarkApplied(result json.RawMessage, now time.Time) error {
	if a.status == StatusApplied {
		return ErrAlreadyApplied
	}
	a.status = StatusApplied
	a.result = result
	a.conflictReason = nil
	a.conflictData = nil
	a.errorMessage = nil
	a.syncedAt = &now
	a.appliedAt = &now
	return nil
}

func (a *Action) MarkConflict(reason ConflictReason, data json.RawMessage, now time.Time) error {
	if a.status == StatusApplied {
		return ErrAlreadyApplied
	}
	a.status = StatusConflict
	a.conflictReason = &reason
	a.conflictData = data
	a.syncedAt = &now
	return nil
}

func (a *Action) MarkRejected(reason ConflictReason, message string, now time.Time) error {
	if a.status == StatusApplied {
		return ErrAlreadyApplied
	}
	a.status = StatusRejected
	a.conflictReason = &reason
	if message != "" {
		a.errorMessage = &message
	}
	a.syncedAt = &now
	return nil
}

// MarkFailed records an unmapped applier failure with the raw message
// preserved, never silently reclassified.
func (a *Action) MarkFailed(message string, now time.Time) error {
	if a.status == StatusApplied {
		return ErrAlreadyApplied
	}
	a.status = StatusFailed
	a.errorMessage = &message
	a.syncedAt = &now
	return nil
}

// IsResolvable reports whether the resolution workstation may act on this
// action. Only CONFLICT and REJECTED are re-enterable.
func (a *Action) IsResolvable() bool {
	return a.status == StatusConflict || a.status == StatusRejected
}

func (a *Action) IsSettled() bool {
	return a.status == StatusApplied
}

// ApprovalID extracts the referenced approval from the conflict payload of
// an APPROVAL_REQUIRED conflict.
func (a *Action) ApprovalID() (uuid.UUID, bool) {
	if a.conflictReason == nil || *a.conflictReason != ReasonApprovalRequired || len(a.conflictData) == 0 {
		return uuid.Nil, false
	}
	var data struct {
		ApprovalID uuid.UUID `json:"approvalId"`
	}
	if err := json.Unmarshal(a.conflictData, &data); err != nil || data.ApprovalID == uuid.Nil {
		return uuid.Nil, false
	}
	return data.ApprovalID, true
}

func (a *Action) ID() uuid.UUID                   { return a.id }
func (a *Action) BusinessID() uuid.UUID           { return a.businessID }
func (a *Action) DeviceID() uuid.UUID             { return a.deviceID }
func (a *Action) UserID() uuid.UUID               { return a.userID }
func (a *Action) ActionType() Type                { return a.actionType }
func (a *Action) Payload() json.RawMessage        { return a.payload }
func (a *Action) Checksum() string                { return a.checksum }
func (a *Action) LocalAuditID() *string           { return a.localAuditID }
func (a *Action) ProvisionalAt() *time.Time       { return a.provisionalAt }
func (a *Action) Status() Status                  { return a.status }
func (a *Action) Result() json.RawMessage         { return a.result }
func (a *Action) ConflictReason() *ConflictReason { return a.conflictReason }
func (a *Action) ConflictData() json.RawMessage   { return a.conflictData }
func (a *Action) ErrorMessage() *string           { return a.errorMessage }
func (a *Action) CreatedAt() time.Time            { return a.createdAt }
func (a *Action) SyncedAt() *time.Time            { return a.syncedAt }
func (a *Action) AppliedAt() *time.Time           { return a.appliedAt }
