package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	ID            int              `json:"id"`
	UserID        int              `json:"user_id"`
	UserName      string           `json:"user_name"`
	Amount        int              `json:"amount"`
	PhoneNumber   string           `json:"phone_number"`
	PaymentMethod string           `json:"payment_method"`
	Status        WithdrawalStatus `json:"status"`
	TournamentID  *int             `json:"tournament_id,omitempty"`
	RequestedAt   time.Time        `json:"requested_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	ProcessedBy   *int             `json:"processed_by,omitempty"`
	TransactionID *string          `json:"transaction_id,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}
