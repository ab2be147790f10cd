package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
)

type VoteRepository interface {
	// Insert writes the vote, relying on the (poll, voter) uniqueness
	// constraint as the only serialization point. Returns
	// domain.ErrDuplicateVote when the identity has already voted.
	Insert(ctx context.Context, vote *domain.Vote) error
	CountByPoll(ctx context.Context, pollID uuid.UUID) (domain.VoteCount, error)
	// FindByVoter returns the voter's recorded vote, or nil if none.
	FindByVoter(ctx context.Context, pollID uuid.UUID, identity domain.Identity) (*domain.Vote, error)
}

// VoteOutcome is an expected business result, not an error. AlreadyVoted
// and PollClosed are informational states surfaced to the voter.
type VoteOutcome string

const (
	OutcomeAccepted     VoteOutcome = "accepted"
	OutcomeAlreadyVoted VoteOutcome = "already_voted"
	OutcomePollClosed   VoteOutcome = "poll_closed"
)

type SubmitVoteInput struct {
	PollID   uuid.UUID
	Choice   domain.Choice
	Identity domain.Identity
}

type SubmitResult struct {
	Outcome VoteOutcome `json:"result"`
	VoteID  uuid.UUID   `json:"vote_id,omitempty"`
}

type VoteService interface {
	SubmitVote(ctx context.Context, input SubmitVoteInput) (SubmitResult, error)
	Counts(ctx context.Context, pollID uuid.UUID) (domain.VoteCount, error)
	VoterChoice(ctx context.Context, pollID uuid.UUID, identity domain.Identity) (*domain.Vote, error)
}
