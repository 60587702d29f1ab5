package services

import "errors"

// Sentinel errors shared across services and mapped to HTTP statuses in the
// handlers layer.
var (
	// Generic
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// Authentication
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email address is already in use")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Entity lookups
	ErrUserNotFound       = errors.New("user not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrPlayerNotFound     = errors.New("player registration not found")
	ErrDisputeNotFound    = errors.New("dispute not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")

	// Match reconciliation
	ErrNotAParticipant          = errors.New("user is not a participant of this match")
	ErrCannotConfirmOwnProposal = errors.New("proposer cannot confirm their own result")
	ErrNoProposalPending        = errors.New("no proposal is awaiting confirmation")
	ErrProposalAlreadyPending   = errors.New("a proposal is already awaiting confirmation")
	ErrMatchAlreadyCompleted    = errors.New("match is already completed")
	ErrMatchDisputed            = errors.New("match is under dispute")
	ErrMatchNotDisputed         = errors.New("match is not under dispute")
	ErrMatchConflict            = errors.New("match was modified concurrently, retry")
	ErrTiedScore                = errors.New("tied results cannot settle a match")
	ErrMatchMissingPlayers      = errors.New("match does not have both players seated yet")

	// Bracket and completion
	ErrInsufficientPlayers      = errors.New("at least 2 registered players are required")
	ErrBracketAlreadyGenerated  = errors.New("bracket has already been generated")
	ErrTournamentNotInProgress  = errors.New("tournament is not in progress")
	ErrTournamentCompleted      = errors.New("tournament is already completed")
	ErrWinnerNotDetermined      = errors.New("final match has no winner yet")
	ErrWinnerNotFound           = errors.New("winner record could not be loaded")
	ErrRegistrationConflict     = errors.New("user is already registered for this tournament")
	ErrTournamentFull           = errors.New("tournament has reached its player capacity")

	// Wallet
	ErrInsufficientBalance    = errors.New("balance is insufficient for this amount")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrWithdrawalNotPending   = errors.New("withdrawal has already been processed")

	// Payments
	ErrPaymentNotFound = errors.New("no pending payment for this checkout request")
	ErrPaymentFailed   = errors.New("payment was not completed")
)
