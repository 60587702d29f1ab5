package models

import "time"

// MatchStatus is the explicit result state machine of a match:
//
//	pending -> awaiting_confirmation -> completed
//	                                 \-> disputed -> completed (admin resolution)
//
// The direct-update path settles a match straight to completed without going
// through awaiting_confirmation.
type MatchStatus string

const (
	MatchStatusPending              MatchStatus = "pending"
	MatchStatusAwaitingConfirmation MatchStatus = "awaiting_confirmation"
	MatchStatusCompleted            MatchStatus = "completed"
	MatchStatusDisputed             MatchStatus = "disputed"
)

// WinnerMethod records how a completed match's winner was decided.
type WinnerMethod string

const (
	WinnerMethodScore    WinnerMethod = "score"
	WinnerMethodKills    WinnerMethod = "kills"
	WinnerMethodPosition WinnerMethod = "position"
	WinnerMethodBye      WinnerMethod = "bye"
)

type Match struct {
	ID           int  `json:"id"`
	TournamentID int  `json:"tournament_id"`
	Round        int  `json:"round"`
	MatchNumber  int  `json:"match_number"`
	Player1ID    *int `json:"player1_id,omitempty"`
	Player2ID    *int `json:"player2_id,omitempty"`

	Player1Score *int `json:"player1_score,omitempty"`
	Player2Score *int `json:"player2_score,omitempty"`

	Player1Kills     *int `json:"player1_kills,omitempty"`
	Player2Kills     *int `json:"player2_kills,omitempty"`
	Player1Deaths    *int `json:"player1_deaths,omitempty"`
	Player2Deaths    *int `json:"player2_deaths,omitempty"`
	Player1Headshots *int `json:"player1_headshots,omitempty"`
	Player2Headshots *int `json:"player2_headshots,omitempty"`

	// Staged values waiting for the opponent's confirmation.
	ProposedPlayer1Score     *int `json:"proposed_player1_score,omitempty"`
	ProposedPlayer2Score     *int `json:"proposed_player2_score,omitempty"`
	ProposedPlayer1Kills     *int `json:"proposed_player1_kills,omitempty"`
	ProposedPlayer2Kills     *int `json:"proposed_player2_kills,omitempty"`
	ProposedPlayer1Deaths    *int `json:"proposed_player1_deaths,omitempty"`
	ProposedPlayer2Deaths    *int `json:"proposed_player2_deaths,omitempty"`
	ProposedPlayer1Headshots *int `json:"proposed_player1_headshots,omitempty"`
	ProposedPlayer2Headshots *int `json:"proposed_player2_headshots,omitempty"`
	ProposedBy               *int `json:"proposed_by,omitempty"`

	Player1Confirmed   bool       `json:"player1_confirmed"`
	Player2Confirmed   bool       `json:"player2_confirmed"`
	Player1ConfirmedAt *time.Time `json:"player1_confirmed_at,omitempty"`
	Player2ConfirmedAt *time.Time `json:"player2_confirmed_at,omitempty"`

	WinnerID      *int          `json:"winner_id,omitempty"`
	WinnerMethod  *WinnerMethod `json:"winner_method,omitempty"`
	Status        MatchStatus   `json:"status"`
	DisputeReason *string       `json:"dispute_reason,omitempty"`

	// Immutable once set at bracket generation. The winner of this match
	// advances into the linked match's first open slot.
	NextMatchID *int `json:"next_match_id,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HasParticipant reports whether userID is seated in one of the two slots.
func (m *Match) HasParticipant(userID int) bool {
	if m.Player1ID != nil && *m.Player1ID == userID {
		return true
	}
	if m.Player2ID != nil && *m.Player2ID == userID {
		return true
	}
	return false
}
