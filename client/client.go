// Package client is the Go SDK for the polling API: it resolves the
// voter identity, submits votes, and keeps a poll's displayed counts
// converged with the server over the live event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

// sessionCookie is the cookie the server's auth middleware reads the
// registered-user session token from.
const sessionCookie = "access_token"

type Client struct {
	baseURL  string
	httpc    *http.Client
	session  string
	resolver *IdentityResolver
	logger   *logrus.Entry
}

// New builds a client. session is the access token issued by the auth
// provider and is empty for unauthenticated sessions, in which case
// userID is nil and tokens supplies the per-poll anonymous identity.
func New(baseURL string, session string, userID *uuid.UUID, tokens TokenStore) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    &http.Client{Timeout: 15 * time.Second},
		session:  session,
		resolver: NewIdentityResolver(userID, tokens),
		logger:   logrus.NewEntry(logrus.StandardLogger()),
	}
}

// SetLogger replaces the default logger.
func (c *Client) SetLogger(logger *logrus.Entry) {
	c.logger = logger
}

// authorize attaches the credential matching the identity: the anonymous
// token travels in a header, the registered session in the cookie the
// server middleware expects.
func (c *Client) authorize(req *http.Request, identity domain.Identity) {
	if identity.IsAnonymous() {
		req.Header.Set("X-Anonymous-Token", identity.AnonToken)
		return
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.session})
	}
}

// SubmitVote sends the vote under the given identity. AlreadyVoted and
// PollClosed come back as outcomes, not errors.
func (c *Client) SubmitVote(ctx context.Context, pollID uuid.UUID, choice domain.Choice, identity domain.Identity) (ports.SubmitResult, error) {
	body, err := json.Marshal(map[string]domain.Choice{"choice": choice})
	if err != nil {
		return ports.SubmitResult{}, err
	}

	url := fmt.Sprintf("%s/api/polls/%s/votes", c.baseURL, pollID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ports.SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, identity)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return ports.SubmitResult{}, fmt.Errorf("vote submission failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK, http.StatusConflict:
		var result ports.SubmitResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return ports.SubmitResult{}, fmt.Errorf("failed to decode vote result: %w", err)
		}
		return result, nil
	default:
		return ports.SubmitResult{}, fmt.Errorf("vote submission failed: status %d", resp.StatusCode)
	}
}

// Counts queries the authoritative per-option tallies, computed fresh.
func (c *Client) Counts(ctx context.Context, pollID uuid.UUID) (domain.VoteCount, error) {
	url := fmt.Sprintf("%s/api/polls/%s/votes/counts", c.baseURL, pollID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.VoteCount{}, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return domain.VoteCount{}, fmt.Errorf("count query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.VoteCount{}, fmt.Errorf("count query failed: status %d", resp.StatusCode)
	}

	var counts domain.VoteCount
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return domain.VoteCount{}, fmt.Errorf("failed to decode counts: %w", err)
	}
	return counts, nil
}

// MyVote rediscovers the choice recorded for the identity on the poll.
// Returns nil without error when no vote exists.
func (c *Client) MyVote(ctx context.Context, pollID uuid.UUID, identity domain.Identity) (*domain.Choice, error) {
	url := fmt.Sprintf("%s/api/polls/%s/my-vote", c.baseURL, pollID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req, identity)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vote lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
		var body struct {
			Choice domain.Choice `json:"choice"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode vote: %w", err)
		}
		return &body.Choice, nil
	default:
		return nil, fmt.Errorf("vote lookup failed: status %d", resp.StatusCode)
	}
}

// PollWatcher bundles the per-poll state machine with its live channel.
type PollWatcher struct {
	State   *VoteState
	channel *Channel
}

// Close unsubscribes from the event stream. Must be called when the
// poll view goes away so subscriptions do not leak across navigations.
func (w *PollWatcher) Close() {
	w.channel.Close()
}

// Watch resolves the voter identity, loads the count baseline, and
// subscribes to the poll's event stream. onState receives connection
// transitions for the reconnecting indicator.
func (c *Client) Watch(ctx context.Context, pollID uuid.UUID, onState func(ConnState)) (*PollWatcher, error) {
	identity, err := c.resolver.Resolve(pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	state := NewVoteState(pollID, identity, c)

	counts, err := c.Counts(ctx, pollID)
	if err != nil {
		return nil, err
	}
	state.SetCounts(counts)

	channel := SubscribeChannel(c.streamURL(pollID), ChannelHandlers{
		OnEvent:  state.ApplyEvent,
		OnState:  onState,
		OnResync: func() { c.resyncAfterGap(state, pollID) },
	})

	return &PollWatcher{State: state, channel: channel}, nil
}

// resyncAfterGap reloads the authoritative counts after a reconnect. A
// failure here means the display may be stale, which must not pass
// silently.
func (c *Client) resyncAfterGap(state *VoteState, pollID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := state.Resync(ctx); err != nil {
		c.logger.WithError(err).WithField("poll_id", pollID).Warn("resync after reconnect failed, counts may be stale")
	}
}

func (c *Client) streamURL(pollID uuid.UUID) string {
	url := fmt.Sprintf("%s/api/polls/%s/stream", c.baseURL, pollID)
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}
