package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thisorthat/api/internal/core/domain"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

type fakePollRepo struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*domain.Poll

	saveErr  error
	sweepErr error
}

func newFakePollRepo() *fakePollRepo {
	return &fakePollRepo{polls: make(map[uuid.UUID]*domain.Poll)}
}

func (r *fakePollRepo) Save(_ context.Context, poll *domain.Poll) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *poll
	r.polls[poll.ID] = &copied
	return nil
}

func (r *fakePollRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	poll, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	copied := *poll
	return &copied, nil
}

func (r *fakePollRepo) ListPublic(_ context.Context, limit, offset int) ([]*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var polls []*domain.Poll
	for _, poll := range r.polls {
		if poll.Visibility == domain.PollVisibilityPublic && poll.Status != domain.PollStatusDeleted {
			copied := *poll
			polls = append(polls, &copied)
		}
	}
	return polls, nil
}

func (r *fakePollRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.PollStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if poll, ok := r.polls[id]; ok {
		poll.Status = status
	}
	return nil
}

func (r *fakePollRepo) DeleteCascade(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if poll, ok := r.polls[id]; ok {
		poll.Status = domain.PollStatusDeleted
	}
	return nil
}

func (r *fakePollRepo) CloseExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	if r.sweepErr != nil {
		return nil, r.sweepErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var swept []uuid.UUID
	for id, poll := range r.polls {
		if poll.Status == domain.PollStatusActive && !poll.ExpiresAt.After(now) {
			poll.Status = domain.PollStatusClosed
			swept = append(swept, id)
		}
	}
	return swept, nil
}

type fakeVoteRepo struct {
	mu    sync.Mutex
	votes map[string]*domain.Vote

	insertErr error
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{votes: make(map[string]*domain.Vote)}
}

func voterKey(pollID uuid.UUID, identity domain.Identity) string {
	return pollID.String() + "/" + identity.Key()
}

func (r *fakeVoteRepo) identityOf(vote *domain.Vote) domain.Identity {
	if vote.UserID != nil {
		return domain.NewUserIdentity(*vote.UserID)
	}
	return domain.NewAnonymousIdentity(vote.AnonToken)
}

func (r *fakeVoteRepo) Insert(_ context.Context, vote *domain.Vote) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := voterKey(vote.PollID, r.identityOf(vote))
	if _, exists := r.votes[key]; exists {
		return domain.ErrDuplicateVote
	}
	copied := *vote
	r.votes[key] = &copied
	return nil
}

func (r *fakeVoteRepo) CountByPoll(_ context.Context, pollID uuid.UUID) (domain.VoteCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := domain.VoteCount{PollID: pollID}
	for _, vote := range r.votes {
		if vote.PollID == pollID {
			counts.Increment(vote.Choice)
		}
	}
	return counts, nil
}

func (r *fakeVoteRepo) FindByVoter(_ context.Context, pollID uuid.UUID, identity domain.Identity) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vote, ok := r.votes[voterKey(pollID, identity)]; ok {
		copied := *vote
		return &copied, nil
	}
	return nil, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *fakePublisher) PublishVoteInserted(pollID, voteID uuid.UUID, choice domain.Choice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, domain.NewVoteInsertedEvent(pollID, voteID, choice))
}

func (p *fakePublisher) PublishPollStatusChanged(pollID uuid.UUID, status domain.PollStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, domain.NewPollStatusChangedEvent(pollID, status))
}

func (p *fakePublisher) published() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}
