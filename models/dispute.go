package models

import "time"

type DisputeStatus string

const (
	DisputeStatusPending  DisputeStatus = "pending"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute is a record of a confirmation mismatch awaiting administrator
// review. It has no autonomous behavior: created by the reconciler, closed by
// ResolveDispute.
type Dispute struct {
	ID                   int           `json:"id"`
	MatchID              int           `json:"match_id"`
	Reason               string        `json:"reason"`
	Evidence             []string      `json:"evidence"`
	DisputedPlayer1Score int           `json:"disputed_player1_score"`
	DisputedPlayer2Score int           `json:"disputed_player2_score"`
	Status               DisputeStatus `json:"status"`
	ResolvedBy           *int          `json:"resolved_by,omitempty"`
	ResolvedAt           *time.Time    `json:"resolved_at,omitempty"`
	Resolution           *string       `json:"resolution,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
}
