package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/assessment-engine/internal/attempt"
	"github.com/mind-engage/assessment-engine/internal/exam"
)

// questionView hides the answer key from learners.
type questionView struct {
	ID           string            `json:"id"`
	Type         exam.QuestionType `json:"type"`
	PromptHTML   string            `json:"prompt_html,omitempty"`
	Options      []string          `json:"options,omitempty"`
	Points       int               `json:"points"`
	TimeLimitSec int               `json:"time_limit_sec"`
}

type attemptView struct {
	attempt.Snapshot
	Question *questionView `json:"question,omitempty"`
}

func view(s *attempt.Session) attemptView {
	v := attemptView{Snapshot: s.Snapshot()}
	if q, ok := s.Question(); ok {
		v.Question = &questionView{
			ID: q.ID, Type: q.Type, PromptHTML: q.PromptHTML, Options: q.Options,
			Points: q.Points, TimeLimitSec: q.TimeLimitSec,
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errUnknownAttempt), errors.Is(err, errUnknownSubject):
		status = http.StatusNotFound
	case errors.Is(err, attempt.ErrInvalidTransition),
		errors.Is(err, attempt.ErrQuestionCompleted),
		errors.Is(err, attempt.ErrOutOfOrder),
		errors.Is(err, attempt.ErrEmptyAnswer):
		status = http.StatusConflict
	case errors.Is(err, attempt.ErrAttemptsExhausted):
		status = http.StatusForbidden
	case errors.Is(err, attempt.ErrOutOfRange),
		errors.Is(err, exam.ErrEmptyBank),
		errors.Is(err, exam.ErrDuplicateQuestion),
		errors.Is(err, exam.ErrInvalidQuestion),
		errors.Is(err, exam.ErrInvalidSubject),
		errors.Is(err, exam.ErrInvalidLearner):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

// POST /attempts
func CreateAttemptHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SubjectID string       `json:"subject_id"`
			Learner   exam.Learner `json:"learner"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s, err := h.open(r.Context(), req.SubjectID, req.Learner)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view(s))
	}
}

// POST /attempts/{attemptID}/begin
func BeginAttemptHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.begin(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view(s))
	}
}

// PUT /attempts/{attemptID}/answer
func SaveAnswerHandler(h *Host) http.HandlerFunc {
	return withSession(h, func(w http.ResponseWriter, r *http.Request, s *attempt.Session) error {
		var req struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return nil
		}
		return s.SetAnswer(req.Value)
	})
}

// POST /attempts/{attemptID}/next
func NextQuestionHandler(h *Host) http.HandlerFunc {
	return withSession(h, func(_ http.ResponseWriter, _ *http.Request, s *attempt.Session) error { return s.Next() })
}

// POST /attempts/{attemptID}/skip
func SkipQuestionHandler(h *Host) http.HandlerFunc {
	return withSession(h, func(_ http.ResponseWriter, _ *http.Request, s *attempt.Session) error { return s.Skip() })
}

// POST /attempts/{attemptID}/decline
func DeclineSubmitHandler(h *Host) http.HandlerFunc {
	return withSession(h, func(_ http.ResponseWriter, _ *http.Request, s *attempt.Session) error { return s.Decline() })
}

// POST /attempts/{attemptID}/select/{index}
func SelectQuestionHandler(h *Host) http.HandlerFunc {
	return withSession(h, func(w http.ResponseWriter, r *http.Request, s *attempt.Session) error {
		i, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			return attempt.ErrOutOfRange
		}
		return s.Select(i)
	})
}

// POST /attempts/{attemptID}/submit
func RequestSubmitHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, err)
			return
		}
		n, err := s.RequestSubmit()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"unanswered": n, "attempt": view(s)})
	}
}

// POST /attempts/{attemptID}/confirm
func ConfirmSubmitHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, err)
			return
		}
		sub, err := s.Confirm(r.Context())
		if err != nil {
			if sub.ID == "" {
				writeError(w, err)
				return
			}
			// graded but not stored; the sealed result stays readable
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "submission": sub})
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// DELETE /attempts/{attemptID}
func DiscardAttemptHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.discard(chi.URLParam(r, "attemptID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(h *Host) http.HandlerFunc {
	return withSession(h, func(http.ResponseWriter, *http.Request, *attempt.Session) error { return nil })
}

// withSession resolves the attempt, applies fn and answers with the attempt view.
func withSession(h *Host, fn func(http.ResponseWriter, *http.Request, *attempt.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, err)
			return
		}
		rec := &statusRecorder{ResponseWriter: w}
		if err := fn(rec, r, s); err != nil {
			writeError(w, err)
			return
		}
		if rec.wrote {
			return
		}
		writeJSON(w, http.StatusOK, view(s))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	wrote bool
}

func (s *statusRecorder) WriteHeader(code int) {
	s.wrote = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}
