package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

func activePoll(repo *fakePollRepo) *domain.Poll {
	now := time.Now()
	poll := &domain.Poll{
		ID:           uuid.New(),
		CreatedBy:    uuid.New(),
		OptionAImage: "a.jpg",
		OptionBImage: "b.jpg",
		Visibility:   domain.PollVisibilityPublic,
		Status:       domain.PollStatusActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.PollDuration),
	}
	repo.Save(context.Background(), poll)
	return poll
}

func TestSubmitVote_UniquenessPerIdentity(t *testing.T) {
	pollRepo := newFakePollRepo()
	voteRepo := newFakeVoteRepo()
	pub := &fakePublisher{}
	svc := NewVoteService(pollRepo, voteRepo, pub, testLogger())

	poll := activePoll(pollRepo)
	voter := domain.NewAnonymousIdentity("anon_1718000000000_aabbccdd")

	first, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionA, Identity: voter,
	})
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeAccepted, first.Outcome)
	assert.NotEqual(t, uuid.Nil, first.VoteID)

	// Retrying with a different choice must not produce a second vote,
	// and the stored choice must stay what the first attempt wrote.
	second, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionB, Identity: voter,
	})
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeAlreadyVoted, second.Outcome)

	counts, err := svc.Counts(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.OptionA)
	assert.Equal(t, int64(0), counts.OptionB)

	stored, err := svc.VoterChoice(context.Background(), poll.ID, voter)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ChoiceOptionA, stored.Choice)
}

func TestSubmitVote_DistinctIdentities(t *testing.T) {
	pollRepo := newFakePollRepo()
	voteRepo := newFakeVoteRepo()
	pub := &fakePublisher{}
	svc := NewVoteService(pollRepo, voteRepo, pub, testLogger())

	poll := activePoll(pollRepo)

	_, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionA,
		Identity: domain.NewAnonymousIdentity("anon_1_first"),
	})
	require.NoError(t, err)

	result, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionB,
		Identity: domain.NewAnonymousIdentity("anon_2_second"),
	})
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeAccepted, result.Outcome)

	counts, err := svc.Counts(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.OptionA)
	assert.Equal(t, int64(1), counts.OptionB)
}

func TestSubmitVote_RejectsExpiredPoll(t *testing.T) {
	pollRepo := newFakePollRepo()
	voteRepo := newFakeVoteRepo()
	pub := &fakePublisher{}
	svc := NewVoteService(pollRepo, voteRepo, pub, testLogger())

	poll := activePoll(pollRepo)
	// Stored status stays active; only the expiry has passed. The
	// write-time check must still reject the vote.
	poll.ExpiresAt = time.Now().Add(-time.Minute)
	pollRepo.Save(context.Background(), poll)

	result, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionA,
		Identity: domain.NewAnonymousIdentity("anon_3_late"),
	})
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomePollClosed, result.Outcome)

	counts, err := svc.Counts(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Zero(t, counts.Total(), "rejected vote must not be recorded")
	assert.Empty(t, pub.published(), "rejected vote must not be broadcast")
}

func TestSubmitVote_DeletedPollIsNotFound(t *testing.T) {
	pollRepo := newFakePollRepo()
	svc := NewVoteService(pollRepo, newFakeVoteRepo(), &fakePublisher{}, testLogger())

	poll := activePoll(pollRepo)
	poll.Status = domain.PollStatusDeleted
	pollRepo.Save(context.Background(), poll)

	_, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionA,
		Identity: domain.NewAnonymousIdentity("anon_6_gone"),
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestSubmitVote_PublishesAfterWrite(t *testing.T) {
	pollRepo := newFakePollRepo()
	voteRepo := newFakeVoteRepo()
	pub := &fakePublisher{}
	svc := NewVoteService(pollRepo, voteRepo, pub, testLogger())

	poll := activePoll(pollRepo)
	voter := domain.NewUserIdentity(uuid.New())

	result, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionB, Identity: voter,
	})
	require.NoError(t, err)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventVoteInserted, events[0].Type)
	assert.Equal(t, poll.ID, events[0].PollID)
	require.NotNil(t, events[0].VoteID)
	assert.Equal(t, result.VoteID, *events[0].VoteID)
	assert.Equal(t, domain.ChoiceOptionB, events[0].Choice)

	// The duplicate is not broadcast: it wrote nothing.
	_, err = svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionB, Identity: voter,
	})
	require.NoError(t, err)
	assert.Len(t, pub.published(), 1)
}

func TestSubmitVote_Validation(t *testing.T) {
	pollRepo := newFakePollRepo()
	svc := NewVoteService(pollRepo, newFakeVoteRepo(), &fakePublisher{}, testLogger())
	poll := activePoll(pollRepo)

	_, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: "option_c",
		Identity: domain.NewAnonymousIdentity("anon_4_x"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	_, err = svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, Choice: domain.ChoiceOptionA,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)

	_, err = svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: uuid.New(), Choice: domain.ChoiceOptionA,
		Identity: domain.NewAnonymousIdentity("anon_5_x"),
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}
