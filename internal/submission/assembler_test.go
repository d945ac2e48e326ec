package submission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/assessment-engine/internal/exam"
	"github.com/mind-engage/assessment-engine/internal/grading"
	"github.com/mind-engage/assessment-engine/internal/submission"
)

type recordingStore struct {
	keys []string
	err  error
}

func (r *recordingStore) AppendSubmission(_ context.Context, key string, _ exam.Submission) error {
	if r.err != nil {
		return r.err
	}
	r.keys = append(r.keys, key)
	return nil
}

type recordingNotifier struct {
	sent []submission.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n submission.Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

var fixed = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func subject() exam.Subject {
	return exam.Subject{
		ID: "asg-1", CourseID: "bio-101", Kind: exam.KindAssignment, Title: "Lab report",
		PassPercent: 70, GraderID: "teacher-4", GraderRole: "teacher",
	}
}

func input() submission.Input {
	return submission.Input{
		AttemptID: "sub-1",
		Subject:   subject(),
		Learner:   exam.Learner{ID: "stu-3", Name: "Grace"},
		AttemptNo: 1,
		StartedAt: fixed.Add(-3 * time.Minute),
		Answers: []exam.AnswerEntry{
			{QuestionID: "a", Value: "x", ElapsedSec: 40, Status: exam.QuestionAnswered},
			{QuestionID: "b", ElapsedSec: 30, AutoSkipped: true, Status: exam.QuestionTimedOut},
		},
	}
}

func pendingReport() grading.Report {
	return grading.Report{
		Items: []exam.ItemResult{
			{QuestionID: "a", MaxPoints: 10},
			{QuestionID: "b", MaxPoints: 5, Graded: true, AutoSkipped: true},
		},
		MaxScore:              15,
		RequiresManualGrading: true,
	}
}

func TestBuild(t *testing.T) {
	a := submission.NewAssembler(nil, nil, submission.WithClock(func() time.Time { return fixed }))

	sub := a.Build(input(), pendingReport())
	assert.Equal(t, exam.StatusPending, sub.Status)
	assert.Equal(t, 70, sub.TotalElapsedSec)
	assert.Equal(t, fixed, sub.SubmittedAt)
	assert.Equal(t, "bio-101", sub.CourseID)
	assert.False(t, sub.Passed)
	assert.Equal(t, 1, sub.PendingItems())

	sub = a.Build(input(), grading.Report{TotalScore: 12, MaxScore: 15, Percentage: 80})
	assert.Equal(t, exam.StatusGraded, sub.Status)
	assert.True(t, sub.Passed)
}

func TestDeliverPendingNotifiesOnce(t *testing.T) {
	store := &recordingStore{}
	notifier := &recordingNotifier{}
	a := submission.NewAssembler(store, notifier, submission.WithGradingURL("https://lms.test/"))
	sub := a.Build(input(), pendingReport())

	require.NoError(t, a.Deliver(context.Background(), sub, subject()))
	assert.Equal(t, []string{"bio-101/assignment_submissions"}, store.keys)
	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, "teacher-4", n.RecipientID)
	assert.Equal(t, "teacher", n.RecipientRole)
	assert.Equal(t, "Assignment submission needs grading", n.Title)
	assert.Contains(t, n.Message, "Grace")
	assert.Contains(t, n.Message, "1 question(s)")
	assert.Equal(t, "https://lms.test/grading/assignment/asg-1/submissions/sub-1", n.DeepLink)
	assert.Equal(t, map[string]string{"subject_id": "asg-1", "learner_id": "stu-3", "submission_id": "sub-1"}, n.Metadata)
}

func TestDeliverGradedDoesNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	a := submission.NewAssembler(&recordingStore{}, notifier)
	sub := a.Build(input(), grading.Report{MaxScore: 15})
	require.NoError(t, a.Deliver(context.Background(), sub, subject()))
	assert.Empty(t, notifier.sent)
}

func TestDeliverStoreFailure(t *testing.T) {
	boom := errors.New("boom")
	notifier := &recordingNotifier{}
	a := submission.NewAssembler(&recordingStore{err: boom}, notifier)
	err := a.Deliver(context.Background(), a.Build(input(), pendingReport()), subject())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, notifier.sent)
}

func TestDeliverNotifierFailureIsSwallowed(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	a := submission.NewAssembler(&recordingStore{}, notifier)
	require.NoError(t, a.Deliver(context.Background(), a.Build(input(), pendingReport()), subject()))
	assert.Len(t, notifier.sent, 1)
}

func TestCollectionKey(t *testing.T) {
	assert.Equal(t, "c1/quiz_submissions", submission.CollectionKey("c1", exam.KindQuiz))
}
