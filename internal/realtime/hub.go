package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thisorthat/api/internal/core/domain"
)

// subscriptionBuffer bounds how far a subscriber may lag before it is
// disconnected. Its stream then terminates and the client reconnects
// into a full counts resync, so a gap never leaves stale counts on
// screen.
const subscriptionBuffer = 32

// Subscription is one observer's view of a poll's event stream. Close
// is idempotent and must be called when the observer goes away.
type Subscription struct {
	C <-chan domain.Event

	pollID uuid.UUID
	ch     chan domain.Event
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is the in-process broadcast channel: every successfully written
// vote and every lifecycle transition fans out to all subscribers of
// the affected poll, including the subscriber that caused it.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	logger *logrus.Entry
}

func NewHub(logger *logrus.Entry) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(pollID uuid.UUID) *Subscription {
	ch := make(chan domain.Event, subscriptionBuffer)
	sub := &Subscription{
		C:      ch,
		pollID: pollID,
		ch:     ch,
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[pollID] == nil {
		h.subs[pollID] = make(map[*Subscription]struct{})
	}
	h.subs[pollID][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.pollID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.pollID)
	}
	close(sub.ch)
}

// SubscriberCount reports how many observers a poll currently has.
func (h *Hub) SubscriberCount(pollID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[pollID])
}

func (h *Hub) PublishVoteInserted(pollID, voteID uuid.UUID, choice domain.Choice) {
	h.publish(domain.NewVoteInsertedEvent(pollID, voteID, choice))
}

func (h *Hub) PublishPollStatusChanged(pollID uuid.UUID, status domain.PollStatus) {
	h.publish(domain.NewPollStatusChangedEvent(pollID, status))
}

func (h *Hub) publish(ev domain.Event) {
	h.mu.RLock()
	var lagging []*Subscription
	for sub := range h.subs[ev.PollID] {
		select {
		case sub.ch <- ev:
		default:
			// Never block the write path on a slow subscriber.
			lagging = append(lagging, sub)
		}
	}
	h.mu.RUnlock()

	// A subscriber that overran its buffer has a gap it can never see;
	// disconnect it so the client reconnects and resyncs instead of
	// rendering stale counts behind a live stream.
	for _, sub := range lagging {
		h.logger.WithFields(logrus.Fields{
			"poll_id": ev.PollID,
			"type":    ev.Type,
		}).Warn("subscriber lagging, disconnecting for resync")
		sub.Close()
	}
}
