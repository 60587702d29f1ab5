package models

import "time"

// Player is one paid registration of a user into a tournament. The row is
// written only after the payment callback confirms a receipt and is never
// mutated afterwards, except for the aggregate stat fields bumped at
// tournament completion.
type Player struct {
	ID                int       `json:"id"`
	PublicID          string    `json:"public_id"`
	UserID            int       `json:"user_id"`
	Name              string    `json:"name"`
	TournamentID      int       `json:"tournament_id"`
	PhoneNumber       string    `json:"phone_number"`
	Amount            int       `json:"amount"`
	MpesaReceipt      string    `json:"mpesa_receipt"`
	Wins              int       `json:"wins"`
	TotalEarnings     int       `json:"total_earnings"`
	TournamentsPlayed int       `json:"tournaments_played"`
	CreatedAt         time.Time `json:"created_at"`
}
