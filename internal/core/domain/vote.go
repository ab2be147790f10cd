package domain

import (
	"time"

	"github.com/google/uuid"
)

type Choice string

const (
	ChoiceOptionA Choice = "option_a"
	ChoiceOptionB Choice = "option_b"
)

// Valid reports whether the choice names one of the two poll options.
func (c Choice) Valid() bool {
	return c == ChoiceOptionA || c == ChoiceOptionB
}

// Vote is immutable once written. Exactly one of UserID and AnonToken
// identifies the voter; the (poll, voter) pair is unique.
type Vote struct {
	ID        uuid.UUID  `json:"id"`
	PollID    uuid.UUID  `json:"poll_id"`
	Choice    Choice     `json:"choice"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	AnonToken string     `json:"anon_token,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// VoteCount is derived state: always recomputable by counting votes per
// choice. Cached copies must converge to that definition.
type VoteCount struct {
	PollID  uuid.UUID `json:"poll_id"`
	OptionA int64     `json:"option_a"`
	OptionB int64     `json:"option_b"`
}

// Total is the number of votes cast on the poll.
func (c VoteCount) Total() int64 {
	return c.OptionA + c.OptionB
}

// Increment bumps the counter for the given choice.
func (c *VoteCount) Increment(choice Choice) {
	switch choice {
	case ChoiceOptionA:
		c.OptionA++
	case ChoiceOptionB:
		c.OptionB++
	}
}

// Decrement undoes a previous Increment, never going below zero.
func (c *VoteCount) Decrement(choice Choice) {
	switch choice {
	case ChoiceOptionA:
		if c.OptionA > 0 {
			c.OptionA--
		}
	case ChoiceOptionB:
		if c.OptionB > 0 {
			c.OptionB--
		}
	}
}
