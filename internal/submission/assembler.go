// Package submission turns a finished attempt into a sealed record, persists it
// and tells the responsible grader when human review is needed.
package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/assessment-engine/internal/exam"
	"github.com/mind-engage/assessment-engine/internal/grading"
)

// EventNeedsGrading is the notification type sent for pending submissions.
const EventNeedsGrading = "submission_needs_grading"

// RecordStore is the append-only persistence collaborator.
type RecordStore interface {
	AppendSubmission(ctx context.Context, collection string, rec exam.Submission) error
}

type Notification struct {
	RecipientID   string            `json:"recipient_id"`
	RecipientRole string            `json:"recipient_role"`
	EventType     string            `json:"event_type"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	DeepLink      string            `json:"deep_link"`
	Metadata      map[string]string `json:"metadata"`
}

// Notifier is the fire-and-forget notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Input is everything the navigator knows about a finished attempt.
type Input struct {
	AttemptID string
	Subject   exam.Subject
	Learner   exam.Learner
	AttemptNo int
	StartedAt time.Time
	Answers   []exam.AnswerEntry
}

type Assembler struct {
	store      RecordStore
	notifier   Notifier
	gradingURL string
	log        *zap.Logger
	now        func() time.Time
}

type Option func(*Assembler)

func WithLogger(l *zap.Logger) Option { return func(a *Assembler) { a.log = l } }

// WithGradingURL sets the base of deep links into the grading surface.
func WithGradingURL(u string) Option {
	return func(a *Assembler) { a.gradingURL = strings.TrimSuffix(u, "/") }
}

func WithClock(now func() time.Time) Option { return func(a *Assembler) { a.now = now } }

func NewAssembler(store RecordStore, notifier Notifier, opts ...Option) *Assembler {
	a := &Assembler{
		store:    store,
		notifier: notifier,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Build assembles the sealed record. It performs no I/O.
func (a *Assembler) Build(in Input, rep grading.Report) exam.Submission {
	answers := append([]exam.AnswerEntry(nil), in.Answers...)
	total := 0
	for _, e := range answers {
		total += e.ElapsedSec
	}
	status := exam.StatusGraded
	if rep.RequiresManualGrading {
		status = exam.StatusPending
	}
	return exam.Submission{
		ID:              in.AttemptID,
		SubjectID:       in.Subject.ID,
		SubjectKind:     in.Subject.Kind,
		CourseID:        in.Subject.CourseID,
		LearnerID:       in.Learner.ID,
		LearnerName:     in.Learner.Name,
		AttemptNo:       in.AttemptNo,
		StartedAt:       in.StartedAt,
		SubmittedAt:     a.now(),
		TotalElapsedSec: total,
		Answers:         answers,
		Items:           append([]exam.ItemResult(nil), rep.Items...),
		Status:          status,
		Score:           rep.TotalScore,
		MaxScore:        rep.MaxScore,
		Percentage:      rep.Percentage,
		Passed:          status == exam.StatusGraded && rep.Percentage >= in.Subject.PassPercent,
	}
}

// Deliver persists the record and, when it is pending, sends exactly one
// notification to the subject's grader. A persistence failure is returned and
// no notification is sent; a notification failure is only logged.
func (a *Assembler) Deliver(ctx context.Context, sub exam.Submission, subject exam.Subject) error {
	key := CollectionKey(sub.CourseID, sub.SubjectKind)
	if err := a.store.AppendSubmission(ctx, key, sub); err != nil {
		return fmt.Errorf("append submission %s: %w", sub.ID, err)
	}
	a.log.Info("submission stored",
		zap.String("submission_id", sub.ID),
		zap.String("collection", key),
		zap.String("status", string(sub.Status)),
		zap.Int("score", sub.Score),
		zap.Float64("percentage", sub.Percentage))

	if sub.Status != exam.StatusPending || a.notifier == nil {
		return nil
	}
	n := a.gradingNotification(sub, subject)
	if err := a.notifier.Notify(ctx, n); err != nil {
		a.log.Warn("grading notification failed",
			zap.String("submission_id", sub.ID),
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err))
	}
	return nil
}

func (a *Assembler) gradingNotification(sub exam.Submission, subject exam.Subject) Notification {
	role := subject.GraderRole
	if role == "" {
		role = "officer"
	}
	learner := sub.LearnerName
	if learner == "" {
		learner = sub.LearnerID
	}
	pending := sub.PendingItems()
	return Notification{
		RecipientID:   subject.GraderID,
		RecipientRole: role,
		EventType:     EventNeedsGrading,
		Title:         fmt.Sprintf("%s submission needs grading", titleCase(string(sub.SubjectKind))),
		Message:       fmt.Sprintf("%s submitted %q; %d question(s) need manual grading.", learner, subject.Title, pending),
		DeepLink:      fmt.Sprintf("%s/grading/%s/%s/submissions/%s", a.gradingURL, sub.SubjectKind, sub.SubjectID, sub.ID),
		Metadata: map[string]string{
			"subject_id":    sub.SubjectID,
			"learner_id":    sub.LearnerID,
			"submission_id": sub.ID,
		},
	}
}

// CollectionKey names the course-scoped collection a submission is appended to.
func CollectionKey(courseID string, kind exam.SubjectKind) string {
	return fmt.Sprintf("%s/%s_submissions", courseID, kind)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
