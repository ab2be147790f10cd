package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*domain.Poll, error)
	// SetStatus rewrites the stored status. Idempotent: writing the
	// status a poll already has is a no-op.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error
	// DeleteCascade marks the poll deleted and removes its votes and
	// shares in one transaction.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
	// CloseExpired rewrites status to closed for every poll still
	// stored active whose expiry has passed, returning the ids touched.
	CloseExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type CreatePollInput struct {
	CreatedBy    uuid.UUID
	OptionA      string
	OptionB      string
	OptionAImage string
	OptionBImage string
	Description  string
	Visibility   domain.PollVisibility
}

type ListPollsInput struct {
	Page int
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	ListPolls(ctx context.Context, input ListPollsInput) ([]*domain.Poll, error)
	Close(ctx context.Context, id uuid.UUID, requestedBy uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID, requestedBy uuid.UUID) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
