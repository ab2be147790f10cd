package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(pollHandler *PollHandler, voteHandler *VoteHandler, streamHandler *StreamHandler, auth *AuthMiddleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/polls", func(r chi.Router) {
			r.Get("/", pollHandler.ListPolls)
			r.With(auth.Required).Post("/", pollHandler.CreatePoll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pollHandler.GetPoll)
				r.With(auth.Required).Post("/close", pollHandler.ClosePoll)
				r.With(auth.Required).Delete("/", pollHandler.DeletePoll)

				r.With(auth.Optional).Post("/votes", voteHandler.SubmitVote)
				r.Get("/votes/counts", voteHandler.GetCounts)
				r.With(auth.Optional).Get("/my-vote", voteHandler.GetMyVote)

				r.Get("/stream", streamHandler.Stream)
			})
		})
	})

	return r
}
