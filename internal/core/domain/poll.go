package domain

import (
	"time"

	"github.com/google/uuid"
)

// PollDuration is the fixed voting window: every poll expires 24 hours
// after creation.
const PollDuration = 24 * time.Hour

type PollStatus string

const (
	PollStatusActive  PollStatus = "active"
	PollStatusClosed  PollStatus = "closed"
	PollStatusDeleted PollStatus = "deleted"
)

type PollVisibility string

const (
	PollVisibilityPublic  PollVisibility = "public"
	PollVisibilityPrivate PollVisibility = "private"
)

type Poll struct {
	ID           uuid.UUID      `json:"id"`
	CreatedBy    uuid.UUID      `json:"created_by"`
	OptionA      string         `json:"option_a,omitempty"`
	OptionB      string         `json:"option_b,omitempty"`
	OptionAImage string         `json:"option_a_image"`
	OptionBImage string         `json:"option_b_image"`
	Description  string         `json:"description,omitempty"`
	Visibility   PollVisibility `json:"visibility"`
	Status       PollStatus     `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

// EffectiveStatus computes the status a poll actually has at a given
// instant, regardless of what is stored. A stale stored "active" never
// outlives the expiry boundary; deleted always wins.
func EffectiveStatus(stored PollStatus, expiresAt time.Time, now time.Time) PollStatus {
	if stored == PollStatusDeleted {
		return PollStatusDeleted
	}
	if !now.Before(expiresAt) {
		return PollStatusClosed
	}
	return stored
}

// EffectiveStatus applies the stored-status/expiry rule to this poll.
func (p *Poll) EffectiveStatus(now time.Time) PollStatus {
	return EffectiveStatus(p.Status, p.ExpiresAt, now)
}

// AcceptsVotes reports whether a vote submitted at the given instant is
// eligible. Re-evaluated server-side at write time, so a client holding
// a stale "active" status cannot vote past expiry.
func (p *Poll) AcceptsVotes(now time.Time) bool {
	return p.EffectiveStatus(now) == PollStatusActive
}
