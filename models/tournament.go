package models

import "time"

// TournamentStatus mirrors the lifecycle column: a tournament starts with an
// empty status, becomes "in_progress" once its bracket is generated and
// "completed" after payout.
type TournamentStatus string

const (
	TournamentStatusCreated    TournamentStatus = ""
	TournamentStatusInProgress TournamentStatus = "in_progress"
	TournamentStatusCompleted  TournamentStatus = "completed"
)

const BracketTypeSingleElimination = "single_elimination"

type Tournament struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Game        string           `json:"game"`
	Date        time.Time        `json:"date"`
	Fee         int              `json:"fee"`
	Status      TournamentStatus `json:"status"`
	BracketType *string          `json:"bracket_type,omitempty"`
	MaxPlayers  int              `json:"max_players"`
	WinnerID    *int             `json:"winner_id,omitempty"`
	WinnerName  *string          `json:"winner_name,omitempty"`
	WinnerPrize *int             `json:"winner_prize,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`

	// Loaded on demand, not mapped directly.
	Players []Player `json:"players,omitempty"`
	Matches []Match  `json:"matches,omitempty"`
}
