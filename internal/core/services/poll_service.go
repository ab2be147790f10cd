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

const pollsPerPage = 20

type pollService struct {
	repo      ports.PollRepository
	publisher ports.EventPublisher
	logger    *logrus.Entry
}

func NewPollService(repo ports.PollRepository, publisher ports.EventPublisher, logger *logrus.Entry) ports.PollService {
	return &pollService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	if input.OptionAImage == "" || input.OptionBImage == "" {
		return nil, errors.New("both option images are required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, errors.New("a creator is required")
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = domain.PollVisibilityPublic
	}
	if visibility != domain.PollVisibilityPublic && visibility != domain.PollVisibilityPrivate {
		return nil, errors.New("visibility must be public or private")
	}

	now := time.Now()
	poll := &domain.Poll{
		ID:           uuid.New(),
		CreatedBy:    input.CreatedBy,
		OptionA:      input.OptionA,
		OptionB:      input.OptionB,
		OptionAImage: input.OptionAImage,
		OptionBImage: input.OptionBImage,
		Description:  input.Description,
		Visibility:   visibility,
		Status:       domain.PollStatusActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.PollDuration),
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"poll_id":    poll.ID,
		"expires_at": poll.ExpiresAt,
	}).Debug("poll created")

	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	poll, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	// Lazy expiry: readers always see the effective status, even when
	// the sweep has not rewritten the row yet.
	poll.Status = poll.EffectiveStatus(time.Now())
	if poll.Status == domain.PollStatusDeleted {
		return nil, domain.ErrPollNotFound
	}
	return poll, nil
}

func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) ([]*domain.Poll, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}

	polls, err := s.repo.ListPublic(ctx, pollsPerPage, (page-1)*pollsPerPage)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, poll := range polls {
		poll.Status = poll.EffectiveStatus(now)
	}
	return polls, nil
}

func (s *pollService) Close(ctx context.Context, id uuid.UUID, requestedBy uuid.UUID) error {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if poll.CreatedBy != requestedBy {
		return domain.ErrNotPollCreator
	}
	if poll.Status != domain.PollStatusActive {
		return nil
	}

	if err := s.repo.SetStatus(ctx, id, domain.PollStatusClosed); err != nil {
		return fmt.Errorf("failed to close poll %s: %w", id, err)
	}

	s.publisher.PublishPollStatusChanged(id, domain.PollStatusClosed)
	return nil
}

func (s *pollService) Delete(ctx context.Context, id uuid.UUID, requestedBy uuid.UUID) error {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if poll.CreatedBy != requestedBy {
		return domain.ErrNotPollCreator
	}
	if poll.Status == domain.PollStatusDeleted {
		return nil
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return fmt.Errorf("failed to delete poll %s: %w", id, err)
	}

	s.logger.WithField("poll_id", id).Info("poll deleted, votes and shares removed")
	s.publisher.PublishPollStatusChanged(id, domain.PollStatusDeleted)
	return nil
}

// SweepExpired eagerly closes every poll past its expiry that is still
// stored active. A failed sweep only delays eventual consistency (the
// lazy effective-status check is the safety net), so errors propagate
// to the caller instead of being swallowed.
func (s *pollService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	swept, err := s.repo.CloseExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired polls: %w", err)
	}

	for _, pollID := range swept {
		s.publisher.PublishPollStatusChanged(pollID, domain.PollStatusClosed)
	}

	s.logger.WithField("count", len(swept)).Info("expired polls closed")
	return int64(len(swept)), nil
}
