package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/lib/pq"
)

var (
	ErrDisputeNotFound      = errors.New("dispute not found")
	ErrDisputeStateConflict = errors.New("dispute is not in an expected state")
)

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error
	GetByID(ctx context.Context, id int) (*models.Dispute, error)
	GetPendingByMatch(ctx context.Context, matchID int) (*models.Dispute, error)
	ListByStatus(ctx context.Context, status models.DisputeStatus) ([]*models.Dispute, error)
	// Resolve closes a pending dispute with the resolver's identity and note.
	Resolve(ctx context.Context, exec SQLExecutor, id int, resolvedBy int, resolution string, resolvedAt time.Time) error
	AppendEvidence(ctx context.Context, exec SQLExecutor, id int, objectKey string) error
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

const disputeColumns = `id, match_id, reason, evidence, disputed_player1_score, disputed_player2_score,
       status, resolved_by, resolved_at, resolution, created_at`

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (match_id, reason, evidence, disputed_player1_score, disputed_player2_score, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	evidence := d.Evidence
	if evidence == nil {
		evidence = []string{}
	}

	err := exec.QueryRowContext(ctx, query,
		d.MatchID,
		d.Reason,
		pq.Array(evidence),
		d.DisputedPlayer1Score,
		d.DisputedPlayer2Score,
		d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dispute: %w", err)
	}
	return nil
}

func (r *postgresDisputeRepository) scanDispute(row *sql.Row) (*models.Dispute, error) {
	d := &models.Dispute{}
	err := row.Scan(
		&d.ID,
		&d.MatchID,
		&d.Reason,
		pq.Array(&d.Evidence),
		&d.DisputedPlayer1Score,
		&d.DisputedPlayer2Score,
		&d.Status,
		&d.ResolvedBy,
		&d.ResolvedAt,
		&d.Resolution,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to scan dispute: %w", err)
	}
	return d, nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, id int) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	return r.scanDispute(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresDisputeRepository) GetPendingByMatch(ctx context.Context, matchID int) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes
		WHERE match_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanDispute(r.db.QueryRowContext(ctx, query, matchID, models.DisputeStatusPending))
}

func (r *postgresDisputeRepository) ListByStatus(ctx context.Context, status models.DisputeStatus) ([]*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE status = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query disputes by status %s: %w", status, err)
	}
	defer rows.Close()

	disputes := make([]*models.Dispute, 0)
	for rows.Next() {
		d := &models.Dispute{}
		if scanErr := rows.Scan(
			&d.ID,
			&d.MatchID,
			&d.Reason,
			pq.Array(&d.Evidence),
			&d.DisputedPlayer1Score,
			&d.DisputedPlayer2Score,
			&d.Status,
			&d.ResolvedBy,
			&d.ResolvedAt,
			&d.Resolution,
			&d.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan dispute row: %w", scanErr)
		}
		disputes = append(disputes, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during dispute rows iteration: %w", err)
	}
	return disputes, nil
}

func (r *postgresDisputeRepository) Resolve(ctx context.Context, exec SQLExecutor, id int, resolvedBy int, resolution string, resolvedAt time.Time) error {
	query := `
		UPDATE disputes
		SET status = $1, resolved_by = $2, resolution = $3, resolved_at = $4
		WHERE id = $5 AND status = $6`
	result, err := exec.ExecContext(ctx, query,
		models.DisputeStatusResolved, resolvedBy, resolution, resolvedAt, id, models.DisputeStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDisputeStateConflict)
}

func (r *postgresDisputeRepository) AppendEvidence(ctx context.Context, exec SQLExecutor, id int, objectKey string) error {
	query := `UPDATE disputes SET evidence = array_append(evidence, $1) WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, objectKey, id)
	if err != nil {
		return fmt.Errorf("failed to append evidence to dispute %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}
