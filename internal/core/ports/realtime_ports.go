package ports

import (
	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
)

// EventPublisher fans vote and lifecycle events out to poll subscribers.
// Publishing must never block the write path.
type EventPublisher interface {
	PublishVoteInserted(pollID, voteID uuid.UUID, choice domain.Choice)
	PublishPollStatusChanged(pollID uuid.UUID, status domain.PollStatus)
}
