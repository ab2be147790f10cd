package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	query := `
		INSERT INTO polls (id, created_by, option_a, option_b, option_a_image, option_b_image, description, visibility, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		poll.ID, poll.CreatedBy, poll.OptionA, poll.OptionB,
		poll.OptionAImage, poll.OptionBImage, poll.Description,
		poll.Visibility, poll.Status, poll.CreatedAt, poll.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	query := `
		SELECT id, created_by, option_a, option_b, option_a_image, option_b_image, description, visibility, status, created_at, expires_at
		FROM polls
		WHERE id = $1
	`

	var poll domain.Poll
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&poll.ID, &poll.CreatedBy, &poll.OptionA, &poll.OptionB,
		&poll.OptionAImage, &poll.OptionBImage, &poll.Description,
		&poll.Visibility, &poll.Status, &poll.CreatedAt, &poll.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	return &poll, nil
}

func (r *pollRepository) ListPublic(ctx context.Context, limit, offset int) ([]*domain.Poll, error) {
	query := `
		SELECT id, created_by, option_a, option_b, option_a_image, option_b_image, description, visibility, status, created_at, expires_at
		FROM polls
		WHERE visibility = 'public' AND status <> 'deleted'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	var polls []*domain.Poll
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(
			&poll.ID, &poll.CreatedBy, &poll.OptionA, &poll.OptionB,
			&poll.OptionAImage, &poll.OptionBImage, &poll.Description,
			&poll.Visibility, &poll.Status, &poll.CreatedAt, &poll.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	return polls, nil
}

func (r *pollRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error {
	query := `UPDATE polls SET status = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set poll status: %w", err)
	}
	return nil
}

func (r *pollRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE poll_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete votes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM poll_shares WHERE poll_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE polls SET status = 'deleted' WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark poll deleted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CloseExpired only touches rows still matching the active-and-expired
// predicate at call time, so concurrent invocations are safe.
func (r *pollRepository) CloseExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE polls
		SET status = 'closed'
		WHERE status = 'active' AND expires_at <= $1
		RETURNING id
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to close expired polls: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan swept poll id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swept polls: %w", err)
	}
	return ids, nil
}
