package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

// AnonTokenHeader carries the client-held anonymous voter token. The
// server never invents or rewrites it.
const AnonTokenHeader = "X-Anonymous-Token"

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	Choice domain.Choice `json:"choice"`
}

func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	identity, ok := resolveIdentity(r)
	if !ok {
		http.Error(w, "missing voter identity", http.StatusBadRequest)
		return
	}

	result, err := h.service.SubmitVote(r.Context(), ports.SubmitVoteInput{
		PollID:   pollID,
		Choice:   req.Choice,
		Identity: identity,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidChoice) || errors.Is(err, domain.ErrInvalidIdentity) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch result.Outcome {
	case ports.OutcomeAccepted:
		w.WriteHeader(http.StatusCreated)
	case ports.OutcomeAlreadyVoted:
		w.WriteHeader(http.StatusOK)
	case ports.OutcomePollClosed:
		w.WriteHeader(http.StatusConflict)
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *VoteHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	counts, err := h.service.Counts(r.Context(), pollID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(counts); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// GetMyVote lets a reloading client rediscover its recorded vote.
func (h *VoteHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	identity, ok := resolveIdentity(r)
	if !ok {
		http.Error(w, "missing voter identity", http.StatusBadRequest)
		return
	}

	vote, err := h.service.VoterChoice(r.Context(), pollID, identity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if vote == nil {
		http.Error(w, "no vote recorded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]domain.Choice{"choice": vote.Choice}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// resolveIdentity picks the canonical voter identity for the request:
// the authenticated user when a session exists, the anonymous token
// header otherwise.
func resolveIdentity(r *http.Request) (domain.Identity, bool) {
	if userID, ok := r.Context().Value(UserIDKey).(uuid.UUID); ok {
		return domain.NewUserIdentity(userID), true
	}
	if token := r.Header.Get(AnonTokenHeader); token != "" {
		return domain.NewAnonymousIdentity(token), true
	}
	return domain.Identity{}, false
}
