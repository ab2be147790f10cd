package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

// uniqueViolation is the Postgres error code raised when an insert trips
// a unique constraint.
const uniqueViolation = "23505"

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// Insert relies on the partial unique indexes over (poll_id, user_id)
// and (poll_id, anon_token): the constraint evaluated at write time is
// the single serialization point that makes double voting impossible.
func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (id, poll_id, choice, user_id, anon_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var anonToken sql.NullString
	if vote.AnonToken != "" {
		anonToken = sql.NullString{String: vote.AnonToken, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, vote.ID, vote.PollID, vote.Choice, vote.UserID, anonToken, vote.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateVote
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) CountByPoll(ctx context.Context, pollID uuid.UUID) (domain.VoteCount, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE choice = 'option_a'),
			COUNT(*) FILTER (WHERE choice = 'option_b')
		FROM votes
		WHERE poll_id = $1
	`
	counts := domain.VoteCount{PollID: pollID}
	err := r.db.QueryRowContext(ctx, query, pollID).Scan(&counts.OptionA, &counts.OptionB)
	if err != nil {
		return domain.VoteCount{}, fmt.Errorf("failed to count votes: %w", err)
	}
	return counts, nil
}

func (r *voteRepository) FindByVoter(ctx context.Context, pollID uuid.UUID, identity domain.Identity) (*domain.Vote, error) {
	var (
		query string
		arg   interface{}
	)
	if identity.IsAnonymous() {
		query = `
			SELECT id, poll_id, choice, user_id, anon_token, created_at
			FROM votes
			WHERE poll_id = $1 AND anon_token = $2
		`
		arg = identity.AnonToken
	} else {
		query = `
			SELECT id, poll_id, choice, user_id, anon_token, created_at
			FROM votes
			WHERE poll_id = $1 AND user_id = $2
		`
		arg = *identity.UserID
	}

	var (
		vote      domain.Vote
		anonToken sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, pollID, arg).Scan(
		&vote.ID, &vote.PollID, &vote.Choice, &vote.UserID, &anonToken, &vote.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}
	vote.AnonToken = anonToken.String
	return &vote, nil
}
