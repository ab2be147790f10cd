package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

type voteService struct {
	pollRepo  ports.PollRepository
	voteRepo  ports.VoteRepository
	publisher ports.EventPublisher
	logger    *logrus.Entry
}

func NewVoteService(pollRepo ports.PollRepository, voteRepo ports.VoteRepository, publisher ports.EventPublisher, logger *logrus.Entry) ports.VoteService {
	return &voteService{
		pollRepo:  pollRepo,
		voteRepo:  voteRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// SubmitVote records at most one vote per (poll, identity). AlreadyVoted
// and PollClosed are ordinary outcomes, not errors: a retried request
// that trips the uniqueness constraint is answered the same way as a
// first-time duplicate, which is what makes double-submission safe.
func (s *voteService) SubmitVote(ctx context.Context, input ports.SubmitVoteInput) (ports.SubmitResult, error) {
	if !input.Choice.Valid() {
		return ports.SubmitResult{}, domain.ErrInvalidChoice
	}
	if !input.Identity.Valid() {
		return ports.SubmitResult{}, domain.ErrInvalidIdentity
	}

	poll, err := s.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return ports.SubmitResult{}, err
	}

	now := time.Now()
	if poll.EffectiveStatus(now) == domain.PollStatusDeleted {
		return ports.SubmitResult{}, domain.ErrPollNotFound
	}

	// Expiry is evaluated here, at write time. A vote racing the
	// boundary is rejected even if the poll looked active on the
	// client moments earlier.
	if !poll.AcceptsVotes(now) {
		return ports.SubmitResult{Outcome: ports.OutcomePollClosed}, nil
	}

	vote := &domain.Vote{
		ID:        uuid.New(),
		PollID:    input.PollID,
		Choice:    input.Choice,
		UserID:    input.Identity.UserID,
		AnonToken: input.Identity.AnonToken,
		CreatedAt: time.Now(),
	}

	if err := s.voteRepo.Insert(ctx, vote); err != nil {
		if errors.Is(err, domain.ErrDuplicateVote) {
			return ports.SubmitResult{Outcome: ports.OutcomeAlreadyVoted}, nil
		}
		return ports.SubmitResult{}, fmt.Errorf("failed to record vote: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"poll_id": vote.PollID,
		"vote_id": vote.ID,
		"choice":  vote.Choice,
		"anon":    input.Identity.IsAnonymous(),
	}).Debug("vote recorded")

	// The broadcast echoes the vote to every subscriber, the voter
	// included. It fires only after the write has durably succeeded.
	s.publisher.PublishVoteInserted(vote.PollID, vote.ID, vote.Choice)

	return ports.SubmitResult{Outcome: ports.OutcomeAccepted, VoteID: vote.ID}, nil
}

func (s *voteService) Counts(ctx context.Context, pollID uuid.UUID) (domain.VoteCount, error) {
	counts, err := s.voteRepo.CountByPoll(ctx, pollID)
	if err != nil {
		return domain.VoteCount{}, fmt.Errorf("failed to count votes: %w", err)
	}
	return counts, nil
}

func (s *voteService) VoterChoice(ctx context.Context, pollID uuid.UUID, identity domain.Identity) (*domain.Vote, error) {
	if !identity.Valid() {
		return nil, domain.ErrInvalidIdentity
	}
	return s.voteRepo.FindByVoter(ctx, pollID, identity)
}
