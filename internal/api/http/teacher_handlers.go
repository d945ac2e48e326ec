package http

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/assessment-engine/internal/exam"
)

type uploadBankReq struct {
	Subject   exam.Subject    `json:"subject"`
	Questions []exam.Question `json:"questions"`
}

// POST /banks
func UploadBankHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadBankReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := h.putBank(assessment{Subject: req.Subject, Bank: req.Questions}); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"subject_id": req.Subject.ID,
			"questions":  len(req.Questions),
			"max_score":  exam.MaxScore(req.Questions),
		})
	}
}
