package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/assessment-engine/internal/db"
	"github.com/mind-engage/assessment-engine/internal/notify"
	"github.com/mind-engage/assessment-engine/internal/submission"
)

func notification() submission.Notification {
	return submission.Notification{
		RecipientID:   "officer-1",
		RecipientRole: "officer",
		EventType:     submission.EventNeedsGrading,
		Title:         "Quiz submission needs grading",
		Message:       "Ada submitted \"Cells\"; 1 question(s) need manual grading.",
		DeepLink:      "/grading/quiz/quiz-1/submissions/sub-9",
		Metadata:      map[string]string{"subject_id": "quiz-1", "learner_id": "stu-1", "submission_id": "sub-9"},
	}
}

func TestOutbox(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "outbox.db")
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	o := notify.NewOutbox(h, "")
	require.NoError(t, o.Notify(context.Background(), notification()))

	events, err := o.Since(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, "local", e.SiteID)
	assert.Equal(t, submission.EventNeedsGrading, e.Type)
	assert.Equal(t, "sub-9", e.Key)

	var got submission.Notification
	require.NoError(t, json.Unmarshal([]byte(e.DataJSON), &got))
	assert.Equal(t, notification(), got)

	events, err = o.Since(context.Background(), e.Seq, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, notify.NewLog(zap.New(core)).Notify(context.Background(), notification()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Quiz submission needs grading", entry.Message)
	assert.Equal(t, "officer-1", entry.ContextMap()["recipient_id"])
}

type failing struct{ err error }

func (f failing) Notify(context.Context, submission.Notification) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := notify.Multi{notify.NewLog(nil), failing{boom}}
	assert.ErrorIs(t, m.Notify(context.Background(), notification()), boom)
	assert.NoError(t, notify.Multi{notify.NewLog(nil)}.Notify(context.Background(), notification()))
}
