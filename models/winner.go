package models

import "time"

// Winner is a denormalized leaderboard record of a completed tournament's
// outcome. Derived from the tournament and final match, never a source of
// truth.
type Winner struct {
	ID             int       `json:"id"`
	TournamentID   int       `json:"tournament_id"`
	TournamentName string    `json:"tournament_name"`
	Game           string    `json:"game"`
	WinnerID       int       `json:"winner_id"`
	WinnerName     string    `json:"winner_name"`
	Prize          int       `json:"prize"`
	MatchesPlayed  int       `json:"matches_played"`
	Kills          *int      `json:"kills,omitempty"`
	Deaths         *int      `json:"deaths,omitempty"`
	Headshots      *int      `json:"headshots,omitempty"`
	Date           time.Time `json:"date"`
}
