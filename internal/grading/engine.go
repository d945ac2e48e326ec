package grading

import (
	"strconv"
	"strings"

	"github.com/mind-engage/assessment-engine/internal/exam"
)

// Strategy scores one answer against one question. Implementations must be pure.
type Strategy interface {
	Grade(q exam.Question, a exam.AnswerEntry) exam.ItemResult
}

// Report is the graded outcome of a whole attempt.
type Report struct {
	Items                 []exam.ItemResult `json:"items"`
	TotalScore            int               `json:"total_score"`
	MaxScore              int               `json:"max_score"`
	Percentage            float64           `json:"percentage"`
	RequiresManualGrading bool              `json:"requires_manual_grading"`
}

// Grader routes each question to the Strategy registered for its type.
type Grader struct {
	strategies map[exam.QuestionType]Strategy
}

type Option func(*config)

type config struct {
	MaxEditDistance int // near-miss hint threshold for text answers
	overrides       map[exam.QuestionType]Strategy
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(t exam.QuestionType, s Strategy) Option {
	return func(c *config) { c.overrides[t] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) *Grader {
	cfg := &config{MaxEditDistance: 1, overrides: map[exam.QuestionType]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	g := &Grader{
		strategies: map[exam.QuestionType]Strategy{
			exam.TypeMultipleChoice: choiceStrategy{},
			exam.TypeTrueFalse:      trueFalseStrategy{},
			exam.TypeShortAnswer:    textStrategy{maxEdit: cfg.MaxEditDistance},
			exam.TypeFillBlank:      textStrategy{maxEdit: cfg.MaxEditDistance},
		},
	}
	for t, s := range cfg.overrides {
		g.strategies[t] = s
	}
	return g
}

var defaultGrader = NewDefaultGrader()

// Grade scores answers with the default strategies.
func Grade(bank []exam.Question, answers []exam.AnswerEntry) Report {
	return defaultGrader.Grade(bank, answers)
}

// Grade scores every question in bank order. Questions without an entry count
// as unanswered. The percentage is taken against the full point pool.
func (g *Grader) Grade(bank []exam.Question, answers []exam.AnswerEntry) Report {
	byID := make(map[string]exam.AnswerEntry, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}
	rep := Report{Items: make([]exam.ItemResult, 0, len(bank))}
	for _, q := range bank {
		a, ok := byID[q.ID]
		if !ok {
			a = exam.AnswerEntry{QuestionID: q.ID}
		}
		res := g.gradeOne(q, a)
		rep.Items = append(rep.Items, res)
		rep.MaxScore += q.Points
		rep.TotalScore += res.Awarded
		if !res.Graded {
			rep.RequiresManualGrading = true
		}
	}
	if rep.MaxScore > 0 {
		rep.Percentage = float64(rep.TotalScore) / float64(rep.MaxScore) * 100
	}
	return rep
}

func (g *Grader) gradeOne(q exam.Question, a exam.AnswerEntry) exam.ItemResult {
	base := exam.ItemResult{QuestionID: q.ID, Type: q.Type, MaxPoints: q.Points, AutoSkipped: a.AutoSkipped}
	if strings.TrimSpace(a.Value) == "" {
		base.Graded = true
		if a.AutoSkipped {
			base.Feedback = []string{"time expired without an answer"}
		} else {
			base.Feedback = []string{"no answer"}
		}
		return base
	}
	s, ok := g.strategies[q.Type]
	if !ok {
		base.Feedback = []string{"no strategy available"}
		return base
	}
	res := s.Grade(q, a)
	res.QuestionID, res.Type, res.MaxPoints, res.AutoSkipped = q.ID, q.Type, q.Points, a.AutoSkipped
	if res.Awarded > q.Points {
		res.Awarded = q.Points
	}
	if res.Awarded < 0 || !res.Graded {
		res.Awarded = 0
	}
	return res
}

// --- Strategies ---

type choiceStrategy struct{}

func (choiceStrategy) Grade(q exam.Question, a exam.AnswerEntry) exam.ItemResult {
	res := exam.ItemResult{Graded: true}
	idx, err := strconv.Atoi(strings.TrimSpace(a.Value))
	if err == nil && idx == q.CorrectOption {
		res.Correct = true
		res.Awarded = q.Points
	}
	return res
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(q exam.Question, a exam.AnswerEntry) exam.ItemResult {
	res := exam.ItemResult{Graded: true}
	got, err1 := strconv.ParseBool(strings.TrimSpace(a.Value))
	want, err2 := strconv.ParseBool(strings.TrimSpace(q.CorrectText))
	if err1 == nil && err2 == nil && got == want {
		res.Correct = true
		res.Awarded = q.Points
	}
	return res
}

type textStrategy struct{ maxEdit int }

func (s textStrategy) Grade(q exam.Question, a exam.AnswerEntry) exam.ItemResult {
	res := exam.ItemResult{}
	got := normalize(a.Value)
	want := normalize(q.CorrectText)
	if want != "" && got == want {
		res.Graded = true
		res.Correct = true
		res.Awarded = q.Points
		return res
	}
	if want != "" && s.maxEdit > 0 && withinDistance(got, want, s.maxEdit) {
		res.Feedback = append(res.Feedback, "close match to expected answer")
	}
	if q.RequiresJudgment || want == "" {
		res.Feedback = append(res.Feedback, "manual grading required")
		return res
	}
	res.Graded = true
	return res
}
