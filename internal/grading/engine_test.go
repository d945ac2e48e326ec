package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/assessment-engine/internal/exam"
)

func mcq(id string, points int) exam.Question {
	return exam.Question{
		ID: id, Type: exam.TypeMultipleChoice, Options: []string{"a", "b"},
		CorrectOption: 0, Points: points, TimeLimitSec: 60,
	}
}

func answered(id, v string) exam.AnswerEntry {
	return exam.AnswerEntry{QuestionID: id, Value: v, Status: exam.QuestionAnswered}
}

func TestGradeAllCorrectObjective(t *testing.T) {
	bank := []exam.Question{
		mcq("q1", 10),
		{ID: "q2", Type: exam.TypeTrueFalse, CorrectText: "true", Points: 5, TimeLimitSec: 30},
		{ID: "q3", Type: exam.TypeFillBlank, CorrectText: "Photosynthesis", Points: 5, TimeLimitSec: 30},
	}
	rep := Grade(bank, []exam.AnswerEntry{
		answered("q1", exam.ChoiceValue(0)),
		answered("q2", "TRUE"),
		answered("q3", "  photosynthesis "),
	})
	assert.Equal(t, 20, rep.TotalScore)
	assert.Equal(t, 20, rep.MaxScore)
	assert.Equal(t, 100.0, rep.Percentage)
	assert.False(t, rep.RequiresManualGrading)
	for _, it := range rep.Items {
		assert.True(t, it.Correct, it.QuestionID)
		assert.True(t, it.Graded, it.QuestionID)
	}
}

func TestGradeEmptyAnswersScoreZero(t *testing.T) {
	bank := []exam.Question{
		mcq("q1", 10),
		{ID: "q2", Type: exam.TypeShortAnswer, RequiresJudgment: true, Points: 10, TimeLimitSec: 30},
	}
	rep := Grade(bank, []exam.AnswerEntry{
		{QuestionID: "q1", AutoSkipped: true, Status: exam.QuestionTimedOut},
		{QuestionID: "q2", Status: exam.QuestionSkipped},
	})
	assert.Zero(t, rep.TotalScore)
	assert.Zero(t, rep.Percentage)
	assert.False(t, rep.RequiresManualGrading, "empty judgment answers are not sent to a grader")
	assert.True(t, rep.Items[0].AutoSkipped)
	assert.True(t, rep.Items[1].Graded)
}

func TestGradeMissingEntryCountsAsUnanswered(t *testing.T) {
	rep := Grade([]exam.Question{mcq("q1", 10), mcq("q2", 10)}, []exam.AnswerEntry{answered("q1", "0")})
	assert.Equal(t, 10, rep.TotalScore)
	assert.Equal(t, 50.0, rep.Percentage)
	require.Len(t, rep.Items, 2)
	assert.Equal(t, "q2", rep.Items[1].QuestionID)
}

func TestGradeJudgmentQuestion(t *testing.T) {
	bank := []exam.Question{
		{ID: "essay", Type: exam.TypeShortAnswer, RequiresJudgment: true, CorrectText: "mitochondria", Points: 10, TimeLimitSec: 120},
		{ID: "tf", Type: exam.TypeTrueFalse, CorrectText: "false", Points: 5, TimeLimitSec: 20},
	}

	rep := Grade(bank, []exam.AnswerEntry{answered("essay", "the powerhouse of the cell"), answered("tf", "false")})
	assert.True(t, rep.RequiresManualGrading)
	assert.Equal(t, 5, rep.TotalScore)
	assert.Equal(t, 15, rep.MaxScore)
	assert.False(t, rep.Items[0].Graded)
	assert.Zero(t, rep.Items[0].Awarded)
	assert.Contains(t, rep.Items[0].Feedback, "manual grading required")

	rep = Grade(bank, []exam.AnswerEntry{answered("essay", "Mitochondria"), answered("tf", "false")})
	assert.False(t, rep.RequiresManualGrading)
	assert.Equal(t, 15, rep.TotalScore)
}

func TestGradeTextWithoutCanonicalNeedsManual(t *testing.T) {
	bank := []exam.Question{{ID: "free", Type: exam.TypeShortAnswer, Points: 4, TimeLimitSec: 60}}
	rep := Grade(bank, []exam.AnswerEntry{answered("free", "anything")})
	assert.True(t, rep.RequiresManualGrading)
}

func TestGradeTextMismatchWithoutJudgment(t *testing.T) {
	bank := []exam.Question{{ID: "cap", Type: exam.TypeFillBlank, CorrectText: "Paris", Points: 4, TimeLimitSec: 60}}
	rep := Grade(bank, []exam.AnswerEntry{answered("cap", "Pari")})
	assert.False(t, rep.RequiresManualGrading)
	assert.Zero(t, rep.TotalScore)
	assert.True(t, rep.Items[0].Graded)
	assert.Contains(t, rep.Items[0].Feedback, "close match to expected answer")
}

func TestGradeIsIdempotent(t *testing.T) {
	bank := []exam.Question{
		mcq("q1", 3),
		{ID: "q2", Type: exam.TypeShortAnswer, RequiresJudgment: true, CorrectText: "x", Points: 7, TimeLimitSec: 60},
	}
	answers := []exam.AnswerEntry{answered("q1", "1"), answered("q2", "y")}
	a := Grade(bank, answers)
	b := Grade(bank, answers)
	assert.Equal(t, a.TotalScore, b.TotalScore)
	assert.Equal(t, a.Percentage, b.Percentage)
	assert.Equal(t, a.RequiresManualGrading, b.RequiresManualGrading)
	assert.Equal(t, a, b)
}

type alwaysHalf struct{}

func (alwaysHalf) Grade(q exam.Question, _ exam.AnswerEntry) exam.ItemResult {
	return exam.ItemResult{Graded: true, Awarded: q.Points / 2}
}

func TestCustomStrategyAndUnknownType(t *testing.T) {
	g := NewDefaultGrader(WithStrategy(exam.TypeMultipleChoice, alwaysHalf{}))
	bank := []exam.Question{mcq("q1", 10), {ID: "odd", Type: "matching", Points: 2, TimeLimitSec: 5}}
	rep := g.Grade(bank, []exam.AnswerEntry{answered("q1", "1"), answered("odd", "x")})
	assert.Equal(t, 5, rep.TotalScore)
	assert.True(t, rep.RequiresManualGrading)
	assert.Contains(t, rep.Items[1].Feedback, "no strategy available")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "new york city", normalize("  New   York\tCITY "))
}

func TestWithinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		k    int
		want bool
	}{
		{"abc", "abc", 0, true},
		{"paris", "pari", 1, true},
		{"pari", "paris", 1, true},
		{"paris", "pairs", 1, false},
		{"paris", "pairs", 2, true},
		{"", "abc", 3, true},
		{"", "abc", 2, false},
		{"kitten", "sitting", 3, true},
		{"kitten", "sitting", 2, false},
		{"café", "cafe", 1, true},
		{"mitochondria", "mitochondrion", 1, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, withinDistance(c.a, c.b, c.k), "%q vs %q within %d", c.a, c.b, c.k)
	}
}
