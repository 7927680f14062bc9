package request

type ResolveConflictRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=DISMISS RETRY OVERRIDE_PRICE SYNC_APPROVAL"`
}
