package response

import (
	"possync/internal/domain/risk"
)

type RiskOverviewResponse struct {
	ExpiredDevices     int    `json:"expiredDevices"`
	StaleActiveDevices int    `json:"staleActiveDevices"`
	PendingActions     int    `json:"pendingActions"`
	ConflictActions    int    `json:"conflictActions"`
	FailedActions      int    `json:"failedActions"`
	Score              int    `json:"score"`
	Level              string `json:"level"`
}

func FromRiskOverview(o *risk.Overview) *RiskOverviewResponse {
	return &RiskOverviewResponse{
		ExpiredDevices:     o.Counts.ExpiredDevices,
		StaleActiveDevices: o.Counts.StaleActiveDevices,
		PendingActions:     o.Counts.PendingActions,
		ConflictActions:    o.Counts.ConflictActions,
		FailedActions:      o.Counts.FailedActions,
		Score:              o.Score,
		Level:              string(o.Level),
	}
}
