package models

import "time"

const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

type User struct {
	ID              int       `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Username        string    `json:"username"`
	GamerTag        string    `json:"gamer_tag"`
	Role            string    `json:"role"`
	Balance         int       `json:"balance"`
	Wins            int       `json:"wins"`
	TotalEarnings   int       `json:"total_earnings"`
	TournamentsPlayed int     `json:"tournaments_played"`
	SelectedGames   []string  `json:"selected_games"`
	ProfileImageKey *string   `json:"-"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
