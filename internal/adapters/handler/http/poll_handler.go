package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
	"github.com/thisorthat/api/internal/core/ports"
)

type PollHandler struct {
	service     ports.PollService
	voteService ports.VoteService
}

func NewPollHandler(service ports.PollService, voteService ports.VoteService) *PollHandler {
	return &PollHandler{
		service:     service,
		voteService: voteService,
	}
}

type createPollRequest struct {
	OptionA      string `json:"option_a"`
	OptionB      string `json:"option_b"`
	OptionAImage string `json:"option_a_image"`
	OptionBImage string `json:"option_b_image"`
	Description  string `json:"description"`
	Visibility   string `json:"visibility"`
}

type pollDetailResponse struct {
	*domain.Poll
	Counts domain.VoteCount `json:"counts"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := ports.CreatePollInput{
		CreatedBy:    userID,
		OptionA:      req.OptionA,
		OptionB:      req.OptionB,
		OptionAImage: req.OptionAImage,
		OptionBImage: req.OptionBImage,
		Description:  req.Description,
		Visibility:   domain.PollVisibility(req.Visibility),
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(poll); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	poll, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPollID) {
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

	counts, err := h.voteService.Counts(r.Context(), poll.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pollDetailResponse{Poll: poll, Counts: counts}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	polls, err := h.service.ListPolls(r.Context(), ports.ListPollsInput{Page: page})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if polls == nil {
		polls = []*domain.Poll{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(polls); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Delete)
}

func (h *PollHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID, requestedBy uuid.UUID) error) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	if err := op(r.Context(), pollID, userID); err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrNotPollCreator) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
