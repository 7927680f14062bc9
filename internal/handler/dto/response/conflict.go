package response

import (
	"possync/internal/usecase/queries"
)

type ConflictListResponse struct {
	Items      []*queries.ActionView `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

func FromConflictPage(page *queries.ConflictPage) *ConflictListResponse {
	return &ConflictListResponse{
		Items:      page.Items,
		NextCursor: page.NextCursor,
	}
}
