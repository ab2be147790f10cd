package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisorthat/api/internal/core/domain"
)

func getPoll(t *testing.T, app *TestApp, pollID uuid.UUID) (int, domain.Poll) {
	t.Helper()

	resp, err := app.Client.Get(fmt.Sprintf("%s/api/polls/%s", app.Server.URL, pollID))
	require.NoError(t, err)
	defer resp.Body.Close()

	var poll domain.Poll
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&poll))
	}
	return resp.StatusCode, poll
}

func transitionPoll(t *testing.T, app *TestApp, method, path string, actor uuid.UUID) int {
	t.Helper()

	req, err := http.NewRequest(method, app.Server.URL+path, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: createAccessToken(t, actor)})

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestLazyExpiryOnRead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := createPoll(t, app, uuid.New())

	status, fetched := getPoll(t, app, poll.ID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.PollStatusActive, fetched.Status)

	// The expiry passes but nothing rewrites the row. Readers must see
	// the poll closed anyway.
	_, err := app.DB.Exec("UPDATE polls SET expires_at = NOW() - INTERVAL '1 minute' WHERE id = $1", poll.ID)
	require.NoError(t, err)

	status, fetched = getPoll(t, app, poll.ID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.PollStatusClosed, fetched.Status)

	var stored string
	require.NoError(t, app.DB.QueryRow("SELECT status FROM polls WHERE id = $1", poll.ID).Scan(&stored))
	assert.Equal(t, "active", stored, "lazy expiry must not write")
}

func TestSweepClosesExpiredPolls(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	expired1 := createPoll(t, app, uuid.New())
	expired2 := createPoll(t, app, uuid.New())
	fresh := createPoll(t, app, uuid.New())

	for _, id := range []uuid.UUID{expired1.ID, expired2.ID} {
		_, err := app.DB.Exec("UPDATE polls SET expires_at = NOW() - INTERVAL '1 hour' WHERE id = $1", id)
		require.NoError(t, err)
	}

	count, err := app.PollSvc.SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	for _, id := range []uuid.UUID{expired1.ID, expired2.ID} {
		var stored string
		require.NoError(t, app.DB.QueryRow("SELECT status FROM polls WHERE id = $1", id).Scan(&stored))
		assert.Equal(t, "closed", stored)
	}

	var stored string
	require.NoError(t, app.DB.QueryRow("SELECT status FROM polls WHERE id = $1", fresh.ID).Scan(&stored))
	assert.Equal(t, "active", stored)

	// A second pass has nothing left to close.
	count, err = app.PollSvc.SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClosePollEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	creator := uuid.New()
	poll := createPoll(t, app, creator)
	path := fmt.Sprintf("/api/polls/%s/close", poll.ID)

	// Only the creator may close.
	require.Equal(t, http.StatusForbidden, transitionPoll(t, app, "POST", path, uuid.New()))

	require.Equal(t, http.StatusNoContent, transitionPoll(t, app, "POST", path, creator))

	status, fetched := getPoll(t, app, poll.ID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.PollStatusClosed, fetched.Status)

	// Closed polls reject votes.
	token := fmt.Sprintf("anon_%d_dddddddddddddddd", time.Now().UnixMilli())
	voteStatus, _ := submitVote(t, app, poll.ID, domain.ChoiceOptionA, token)
	assert.Equal(t, http.StatusConflict, voteStatus)

	// Closing again is idempotent.
	require.Equal(t, http.StatusNoContent, transitionPoll(t, app, "POST", path, creator))
}

func TestDeletePollEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	creator := uuid.New()
	poll := createPoll(t, app, creator)
	path := fmt.Sprintf("/api/polls/%s", poll.ID)

	token := fmt.Sprintf("anon_%d_eeeeeeeeeeeeeeee", time.Now().UnixMilli())
	voteStatus, _ := submitVote(t, app, poll.ID, domain.ChoiceOptionA, token)
	require.Equal(t, http.StatusCreated, voteStatus)

	require.Equal(t, http.StatusForbidden, transitionPoll(t, app, "DELETE", path, uuid.New()))
	require.Equal(t, http.StatusNoContent, transitionPoll(t, app, "DELETE", path, creator))

	// The poll disappears from reads and its votes are gone.
	status, _ := getPoll(t, app, poll.ID)
	assert.Equal(t, http.StatusNotFound, status)

	var votes int
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM votes WHERE poll_id = $1", poll.ID).Scan(&votes))
	assert.Zero(t, votes, "delete must cascade to votes")

	// Repeat delete stays a no-op.
	require.Equal(t, http.StatusNoContent, transitionPoll(t, app, "DELETE", path, creator))
}
