package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrUserEmailConflict       = errors.New("email is already registered")
	ErrUserInsufficientBalance = errors.New("user balance is insufficient")
)

type UserRepository interface {
	Create(ctx context.Context, exec SQLExecutor, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfileImageKey(ctx context.Context, exec SQLExecutor, id int, key *string) error
	UpdateSelectedGames(ctx context.Context, exec SQLExecutor, id int, games []string) error
	// CreditPrize atomically adds a prize to the balance and bumps the
	// win/earnings counters in a single statement.
	CreditPrize(ctx context.Context, exec SQLExecutor, id int, amount int) error
	// DebitBalance subtracts amount iff the current balance covers it;
	// returns ErrUserInsufficientBalance otherwise.
	DebitBalance(ctx context.Context, exec SQLExecutor, id int, amount int) error
	IncrementTournamentsPlayed(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, email, password_hash, username, gamer_tag, role, balance, wins,
       total_earnings, tournaments_played, selected_games, profile_image_key, created_at`

func (r *postgresUserRepository) Create(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, username, gamer_tag, role, selected_games)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, balance, wins, total_earnings, tournaments_played, created_at`

	games := user.SelectedGames
	if games == nil {
		games = []string{}
	}

	err := exec.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.Username,
		user.GamerTag,
		user.Role,
		pq.Array(games),
	).Scan(&user.ID, &user.Balance, &user.Wins, &user.TotalEarnings, &user.TournamentsPlayed, &user.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "users_email_key" {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Username,
		&user.GamerTag,
		&user.Role,
		&user.Balance,
		&user.Wins,
		&user.TotalEarnings,
		&user.TournamentsPlayed,
		pq.Array(&user.SelectedGames),
		&user.ProfileImageKey,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) UpdateProfileImageKey(ctx context.Context, exec SQLExecutor, id int, key *string) error {
	query := `UPDATE users SET profile_image_key = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, key, id)
	if err != nil {
		return fmt.Errorf("failed to update profile image for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateSelectedGames(ctx context.Context, exec SQLExecutor, id int, games []string) error {
	query := `UPDATE users SET selected_games = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, pq.Array(games), id)
	if err != nil {
		return fmt.Errorf("failed to update selected games for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) CreditPrize(ctx context.Context, exec SQLExecutor, id int, amount int) error {
	query := `
		UPDATE users
		SET balance = balance + $1,
		    wins = wins + 1,
		    total_earnings = total_earnings + $1
		WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to credit prize to user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) DebitBalance(ctx context.Context, exec SQLExecutor, id int, amount int) error {
	query := `UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1`
	result, err := exec.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to debit balance of user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserInsufficientBalance)
}

func (r *postgresUserRepository) IncrementTournamentsPlayed(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE users SET tournaments_played = tournaments_played + 1 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment tournaments played for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}
