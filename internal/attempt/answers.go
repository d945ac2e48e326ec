package attempt

import (
	"strings"

	"github.com/mind-engage/assessment-engine/internal/exam"
)

// answerStore holds one entry per question in bank order. An entry is writable
// until it is finalized and frozen afterwards.
type answerStore struct {
	entries []exam.AnswerEntry
	final   []bool
}

func newAnswerStore(bank []exam.Question) *answerStore {
	s := &answerStore{
		entries: make([]exam.AnswerEntry, len(bank)),
		final:   make([]bool, len(bank)),
	}
	for i, q := range bank {
		s.entries[i] = exam.AnswerEntry{QuestionID: q.ID, Status: exam.QuestionUpcoming}
	}
	return s
}

func (s *answerStore) value(i int) string { return s.entries[i].Value }

func (s *answerStore) hasValue(i int) bool { return strings.TrimSpace(s.entries[i].Value) != "" }

func (s *answerStore) set(i int, v string) bool {
	if s.final[i] {
		return false
	}
	s.entries[i].Value = v
	return true
}

func (s *answerStore) finalize(i int, status exam.QuestionStatus, elapsed int, autoSkipped bool) bool {
	if s.final[i] {
		return false
	}
	e := &s.entries[i]
	e.Status = status
	e.ElapsedSec = elapsed
	e.AutoSkipped = autoSkipped
	if autoSkipped {
		e.Value = ""
	}
	s.final[i] = true
	return true
}

func (s *answerStore) snapshot() []exam.AnswerEntry {
	return append([]exam.AnswerEntry(nil), s.entries...)
}

func (s *answerStore) unanswered() int {
	n := 0
	for i := range s.entries {
		if !s.hasValue(i) {
			n++
		}
	}
	return n
}
