package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

type VoteStatus string

const (
	StatusIdle       VoteStatus = "idle"
	StatusSubmitting VoteStatus = "submitting"
	StatusVoted      VoteStatus = "voted"
	StatusError      VoteStatus = "error"
)

// echoWindow bounds how long a just-submitted vote may wait for its
// broadcast echo before an incoming matching event is counted as
// somebody else's vote again.
const echoWindow = 15 * time.Second

// defaultSubmitTimeout caps a submission so the state machine can never
// be stuck in submitting indefinitely.
const defaultSubmitTimeout = 10 * time.Second

// Gateway is the server surface the state machine submits through.
type Gateway interface {
	SubmitVote(ctx context.Context, pollID uuid.UUID, choice domain.Choice, identity domain.Identity) (ports.SubmitResult, error)
	Counts(ctx context.Context, pollID uuid.UUID) (domain.VoteCount, error)
}

type pendingEcho struct {
	choice    domain.Choice
	expiresAt time.Time
	consumed  bool
}

// VoteState reconciles three independent, possibly out-of-order sources
// into one displayed count: the local optimistic increment, the
// gateway's acknowledgment, and the broadcast echo of the same vote.
// One instance covers one poll+identity pair, so suppression state on
// concurrent polls is independent.
type VoteState struct {
	mu sync.Mutex

	pollID   uuid.UUID
	identity domain.Identity
	gateway  Gateway

	status     VoteStatus
	counts     domain.VoteCount
	pollStatus domain.PollStatus

	// seen holds vote ids already merged or acknowledged; redelivered
	// events for them are no-ops.
	seen    map[uuid.UUID]struct{}
	pending *pendingEcho

	lastOutcome ports.VoteOutcome
	lastErr     error

	submitTimeout time.Duration
	now           func() time.Time
}

func NewVoteState(pollID uuid.UUID, identity domain.Identity, gateway Gateway) *VoteState {
	return &VoteState{
		pollID:        pollID,
		identity:      identity,
		gateway:       gateway,
		status:        StatusIdle,
		pollStatus:    domain.PollStatusActive,
		counts:        domain.VoteCount{PollID: pollID},
		seen:          make(map[uuid.UUID]struct{}),
		submitTimeout: defaultSubmitTimeout,
		now:           time.Now,
	}
}

func (v *VoteState) Status() VoteStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

func (v *VoteState) Counts() domain.VoteCount {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counts
}

func (v *VoteState) PollStatus() domain.PollStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pollStatus
}

func (v *VoteState) LastOutcome() ports.VoteOutcome {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastOutcome
}

func (v *VoteState) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// SetCounts installs the authoritative baseline, typically from the
// initial counts query on page load.
func (v *VoteState) SetCounts(counts domain.VoteCount) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.counts = counts
}

// Submit casts the vote. The displayed count is bumped optimistically
// before the network result is known; the matching broadcast echo is
// absorbed so the vote lands as exactly +1 whichever of the ack and the
// echo arrives first. Voted is terminal: a second Submit on the same
// poll is a local no-op.
func (v *VoteState) Submit(ctx context.Context, choice domain.Choice) (VoteStatus, error) {
	v.mu.Lock()
	switch v.status {
	case StatusVoted:
		v.mu.Unlock()
		return StatusVoted, nil
	case StatusSubmitting:
		v.mu.Unlock()
		return StatusSubmitting, nil
	}
	if !choice.Valid() {
		v.mu.Unlock()
		return v.Status(), domain.ErrInvalidChoice
	}

	v.status = StatusSubmitting
	v.lastErr = nil
	v.counts.Increment(choice)
	v.pending = &pendingEcho{choice: choice, expiresAt: v.now().Add(echoWindow)}
	v.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, v.submitTimeout)
	defer cancel()

	result, err := v.gateway.SubmitVote(ctx, v.pollID, choice, v.identity)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil {
		if v.pending != nil && v.pending.consumed {
			// The echo already arrived, so the write durably
			// succeeded even though the ack was lost.
			v.status = StatusVoted
			v.lastOutcome = ports.OutcomeAccepted
			v.pending = nil
			return v.status, nil
		}
		v.counts.Decrement(choice)
		v.pending = nil
		v.status = StatusError
		v.lastErr = err
		return v.status, err
	}

	v.lastOutcome = result.Outcome
	switch result.Outcome {
	case ports.OutcomeAccepted:
		v.status = StatusVoted
		if result.VoteID != uuid.Nil {
			v.seen[result.VoteID] = struct{}{}
		}
		v.pending = nil
	case ports.OutcomeAlreadyVoted:
		// A vote recorded earlier (another tab, a pre-reload session)
		// was rediscovered. This attempt added nothing server-side, so
		// its optimistic increment is rolled back; the authoritative
		// baseline is re-fetched by the caller via Resync.
		v.status = StatusVoted
		if v.pending != nil && !v.pending.consumed {
			v.counts.Decrement(choice)
		}
		v.pending = nil
	case ports.OutcomePollClosed:
		v.status = StatusError
		if v.pending != nil && !v.pending.consumed {
			v.counts.Decrement(choice)
		}
		v.pending = nil
		v.pollStatus = domain.PollStatusClosed
	}
	return v.status, nil
}

// ApplyEvent merges one broadcast event into the displayed state. Safe
// under at-least-once delivery: a redelivered VoteInserted is a no-op,
// and the echo of this client's own vote is never counted on top of the
// optimistic increment.
func (v *VoteState) ApplyEvent(ev domain.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Type {
	case domain.EventPollStatusChanged:
		v.pollStatus = ev.Status

	case domain.EventVoteInserted:
		if ev.VoteID != nil {
			if _, dup := v.seen[*ev.VoteID]; dup {
				return
			}
			v.seen[*ev.VoteID] = struct{}{}
		}

		if v.pending != nil && !v.pending.consumed &&
			v.pending.choice == ev.Choice && v.now().Before(v.pending.expiresAt) {
			// Echo of our own just-submitted vote: the optimistic
			// increment already covers it.
			v.pending.consumed = true
			return
		}

		v.counts.Increment(ev.Choice)
	}
}

// Resync replaces the displayed counts with a fresh authoritative
// query. Used after a channel gap, where catching up by replaying
// missed events is not an option.
func (v *VoteState) Resync(ctx context.Context) error {
	counts, err := v.gateway.Counts(ctx, v.pollID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.counts = counts
	return nil
}

// Reset returns an errored state machine to idle so the caller can
// retry. Retrying is an explicit user action, never automatic.
func (v *VoteState) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status == StatusError {
		v.status = StatusIdle
		v.lastErr = nil
	}
}
