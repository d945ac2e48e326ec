package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mount registers the bank and attempt routes on r, and the outbox feed
// when the host has an event reader.
func Mount(r chi.Router, h *Host) {
	r.Post("/banks", UploadBankHandler(h))
	r.Route("/attempts", func(ar chi.Router) {
		ar.Post("/", CreateAttemptHandler(h))
		ar.Route("/{attemptID}", func(sr chi.Router) {
			sr.Get("/", GetAttemptHandler(h))
			sr.Delete("/", DiscardAttemptHandler(h))
			sr.Post("/begin", BeginAttemptHandler(h))
			sr.Put("/answer", SaveAnswerHandler(h))
			sr.Post("/next", NextQuestionHandler(h))
			sr.Post("/skip", SkipQuestionHandler(h))
			sr.Post("/select/{index}", SelectQuestionHandler(h))
			sr.Post("/submit", RequestSubmitHandler(h))
			sr.Post("/confirm", ConfirmSubmitHandler(h))
			sr.Post("/decline", DeclineSubmitHandler(h))
		})
	})
	if h.events != nil {
		r.Get("/outbox", OutboxHandler(h))
	}
}

// Routes returns a router with only the assessment routes mounted.
func Routes(h *Host) http.Handler {
	r := chi.NewRouter()
	Mount(r, h)
	return r
}
