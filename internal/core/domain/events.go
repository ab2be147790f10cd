package domain

import (
	"github.com/google/uuid"
)

type EventType string

const (
	EventVoteInserted      EventType = "vote_inserted"
	EventPollStatusChanged EventType = "poll_status_changed"
)

// Event is the wire envelope broadcast to poll subscribers. Delivery is
// at-least-once; VoteID lets receivers deduplicate redelivered inserts.
// It is a pointer so status-change events omit the field entirely.
type Event struct {
	Type   EventType  `json:"type"`
	PollID uuid.UUID  `json:"poll_id"`
	VoteID *uuid.UUID `json:"vote_id,omitempty"`
	Choice Choice     `json:"choice,omitempty"`
	Status PollStatus `json:"status,omitempty"`
}

func NewVoteInsertedEvent(pollID, voteID uuid.UUID, choice Choice) Event {
	return Event{
		Type:   EventVoteInserted,
		PollID: pollID,
		VoteID: &voteID,
		Choice: choice,
	}
}

func NewPollStatusChangedEvent(pollID uuid.UUID, status PollStatus) Event {
	return Event{
		Type:   EventPollStatusChanged,
		PollID: pollID,
		Status: status,
	}
}
