package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kiptoo96/esports-arena/models"
)

var (
	ErrWithdrawalNotFound      = errors.New("withdrawal not found")
	ErrWithdrawalStateConflict = errors.New("withdrawal is not in an expected state")
)

type WithdrawalRepository interface {
	Create(ctx context.Context, exec SQLExecutor, withdrawal *models.Withdrawal) error
	GetByID(ctx context.Context, id int) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error)
	// MarkProcessed moves a pending withdrawal to approved or rejected,
	// guarded against double processing.
	MarkProcessed(ctx context.Context, exec SQLExecutor, id int, status models.WithdrawalStatus, processedBy int, transactionID *string, notes *string, processedAt time.Time) error
}

type postgresWithdrawalRepository struct {
	db *sql.DB
}

func NewPostgresWithdrawalRepository(db *sql.DB) WithdrawalRepository {
	return &postgresWithdrawalRepository{db: db}
}

const withdrawalColumns = `id, user_id, user_name, amount, phone_number, payment_method, status,
       tournament_id, requested_at, processed_at, processed_by, transaction_id, notes`

func (r *postgresWithdrawalRepository) Create(ctx context.Context, exec SQLExecutor, w *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (user_id, user_name, amount, phone_number, payment_method, status, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, requested_at`

	err := exec.QueryRowContext(ctx, query,
		w.UserID,
		w.UserName,
		w.Amount,
		w.PhoneNumber,
		w.PaymentMethod,
		w.Status,
		w.TournamentID,
	).Scan(&w.ID, &w.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}
	return nil
}

func scanWithdrawal(scanner interface{ Scan(dest ...interface{}) error }) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	err := scanner.Scan(
		&w.ID,
		&w.UserID,
		&w.UserName,
		&w.Amount,
		&w.PhoneNumber,
		&w.PaymentMethod,
		&w.Status,
		&w.TournamentID,
		&w.RequestedAt,
		&w.ProcessedAt,
		&w.ProcessedBy,
		&w.TransactionID,
		&w.Notes,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *postgresWithdrawalRepository) GetByID(ctx context.Context, id int) (*models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	w, err := scanWithdrawal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to scan withdrawal %d: %w", id, err)
	}
	return w, nil
}

func (r *postgresWithdrawalRepository) ListByUser(ctx context.Context, userID int) ([]*models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 ORDER BY requested_at DESC`
	return r.queryWithdrawals(ctx, query, userID)
}

func (r *postgresWithdrawalRepository) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE status = $1 ORDER BY requested_at DESC`
	return r.queryWithdrawals(ctx, query, status)
}

func (r *postgresWithdrawalRepository) queryWithdrawals(ctx context.Context, query string, args ...interface{}) ([]*models.Withdrawal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := make([]*models.Withdrawal, 0)
	for rows.Next() {
		w, scanErr := scanWithdrawal(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan withdrawal row: %w", scanErr)
		}
		withdrawals = append(withdrawals, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during withdrawal rows iteration: %w", err)
	}
	return withdrawals, nil
}

func (r *postgresWithdrawalRepository) MarkProcessed(ctx context.Context, exec SQLExecutor, id int, status models.WithdrawalStatus, processedBy int, transactionID *string, notes *string, processedAt time.Time) error {
	query := `
		UPDATE withdrawals
		SET status = $1, processed_by = $2, transaction_id = $3, notes = $4, processed_at = $5
		WHERE id = $6 AND status = $7`
	result, err := exec.ExecContext(ctx, query,
		status, processedBy, transactionID, notes, processedAt, id, models.WithdrawalStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark withdrawal %d processed: %w", id, err)
	}
	return checkAffectedRows(result, ErrWithdrawalStateConflict)
}
