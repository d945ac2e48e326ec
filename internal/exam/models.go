package exam

import (
	"strconv"
	"time"
)

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeFillBlank      QuestionType = "fill_blank"
)

// Objective reports whether answers of this type can always be scored mechanically.
func (t QuestionType) Objective() bool {
	return t == TypeMultipleChoice || t == TypeTrueFalse
}

type Question struct {
	ID         string       `json:"id" validate:"required"`
	Position   int          `json:"position" validate:"gte=0"`
	Type       QuestionType `json:"type" validate:"required,oneof=multiple_choice true_false short_answer fill_blank"`
	PromptHTML string       `json:"prompt_html,omitempty"`
	Options    []string     `json:"options,omitempty"`

	// CorrectOption is the index into Options for multiple_choice.
	CorrectOption int `json:"correct_option,omitempty" validate:"gte=0"`
	// CorrectText is "true"/"false" for true_false and the canonical string for text types.
	CorrectText string `json:"correct_text,omitempty"`
	// RequiresJudgment marks text questions whose answers a human must score
	// unless they match CorrectText exactly.
	RequiresJudgment bool `json:"requires_judgment,omitempty"`

	Points       int `json:"points" validate:"gt=0"`
	TimeLimitSec int `json:"time_limit_sec" validate:"gt=0"`
}

// ChoiceValue encodes an option index as an answer value.
func ChoiceValue(i int) string { return strconv.Itoa(i) }

type QuestionStatus string

const (
	QuestionUpcoming QuestionStatus = "upcoming"
	QuestionCurrent  QuestionStatus = "current"
	QuestionAnswered QuestionStatus = "answered"
	QuestionTimedOut QuestionStatus = "timed_out"
	QuestionSkipped  QuestionStatus = "skipped"
)

// Terminal reports whether the question can no longer be visited.
func (s QuestionStatus) Terminal() bool {
	return s == QuestionAnswered || s == QuestionTimedOut || s == QuestionSkipped
}

type AnswerEntry struct {
	QuestionID  string         `json:"question_id"`
	Value       string         `json:"value,omitempty"`
	ElapsedSec  int            `json:"elapsed_sec"`
	AutoSkipped bool           `json:"auto_skipped"`
	Status      QuestionStatus `json:"status"`
}

type SubjectKind string

const (
	KindQuiz       SubjectKind = "quiz"
	KindAssignment SubjectKind = "assignment"
)

type Subject struct {
	ID              string      `json:"id" validate:"required"`
	CourseID        string      `json:"course_id" validate:"required"`
	Kind            SubjectKind `json:"kind" validate:"required,oneof=quiz assignment"`
	Title           string      `json:"title" validate:"required"`
	PassPercent     float64     `json:"pass_percent" validate:"gte=0,lte=100"`
	AllowedAttempts int         `json:"allowed_attempts" validate:"gte=0"` // 0 = unlimited
	GraderID        string      `json:"grader_id" validate:"required"`
	GraderRole      string      `json:"grader_role"`
}

type Learner struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type SubmissionStatus string

const (
	StatusPending SubmissionStatus = "pending"
	StatusGraded  SubmissionStatus = "graded"
)

// ItemResult is the scoring outcome of one question.
type ItemResult struct {
	QuestionID  string       `json:"question_id"`
	Type        QuestionType `json:"type"`
	Awarded     int          `json:"awarded"`
	MaxPoints   int          `json:"max_points"`
	Correct     bool         `json:"correct"`
	Graded      bool         `json:"graded"` // false: awaiting a human score
	AutoSkipped bool         `json:"auto_skipped,omitempty"`
	Feedback    []string     `json:"feedback,omitempty"`
}

type Submission struct {
	ID          string      `json:"id"`
	SubjectID   string      `json:"subject_id"`
	SubjectKind SubjectKind `json:"subject_kind"`
	CourseID    string      `json:"course_id"`
	LearnerID   string      `json:"learner_id"`
	LearnerName string      `json:"learner_name"`
	AttemptNo   int         `json:"attempt_no"`

	StartedAt       time.Time `json:"started_at"`
	SubmittedAt     time.Time `json:"submitted_at"`
	TotalElapsedSec int       `json:"total_elapsed_sec"`

	Answers []AnswerEntry `json:"answers"`
	Items   []ItemResult  `json:"items"`

	Status     SubmissionStatus `json:"status"`
	Score      int              `json:"score"`
	MaxScore   int              `json:"max_score"`
	Percentage float64          `json:"percentage"`
	Passed     bool             `json:"passed"`
}

// PendingItems counts questions still waiting for a human score.
func (s Submission) PendingItems() int {
	n := 0
	for _, it := range s.Items {
		if !it.Graded {
			n++
		}
	}
	return n
}
