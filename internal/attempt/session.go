// Package attempt runs one learner's timed pass through a question bank.
//
// A Session is a forward-only state machine: each question gets its own
// countdown, a question that stops being current is frozen for good, and the
// attempt is graded and submitted exactly once.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/assessment-engine/internal/exam"
	"github.com/mind-engage/assessment-engine/internal/grading"
	"github.com/mind-engage/assessment-engine/internal/submission"
	"github.com/mind-engage/assessment-engine/internal/timer"
)

type State string

const (
	StateInstructions State = "instructions"
	StateInProgress   State = "in_progress"
	StateConfirming   State = "confirming_submit"
	StateCompleted    State = "completed"
	StateClosed       State = "closed"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrEmptyAnswer       = errors.New("answer is empty")
	ErrQuestionCompleted = errors.New("question already completed")
	ErrOutOfOrder        = errors.New("questions are taken in order")
	ErrOutOfRange        = errors.New("question index out of range")
	ErrAttemptsExhausted = errors.New("no attempts left")
)

type Grader interface {
	Grade(bank []exam.Question, answers []exam.AnswerEntry) grading.Report
}

// Finalizer builds and delivers the sealed record. *submission.Assembler implements it.
type Finalizer interface {
	Build(in submission.Input, rep grading.Report) exam.Submission
	Deliver(ctx context.Context, sub exam.Submission, subject exam.Subject) error
}

// Observer receives attempt lifecycle events, e.g. for metrics.
type Observer interface {
	QuestionFinalized(kind exam.SubjectKind, status exam.QuestionStatus)
	AttemptFinished(sub exam.Submission)
	AttemptClosed(kind exam.SubjectKind)
}

type nopObserver struct{}

func (nopObserver) QuestionFinalized(exam.SubjectKind, exam.QuestionStatus) {}
func (nopObserver) AttemptFinished(exam.Submission)                         {}
func (nopObserver) AttemptClosed(exam.SubjectKind)                          {}

type Config struct {
	ID        string // generated when empty
	Subject   exam.Subject
	Learner   exam.Learner
	Bank      []exam.Question
	AttemptNo int // 1-based; 0 means 1

	Grader    Grader // grading.NewDefaultGrader() when nil
	Finalizer Finalizer
	// OnSubmit is called once with the delivered record.
	OnSubmit func(exam.Submission)

	Observer Observer
	Logger   *zap.Logger
	Now      func() time.Time
}

type Session struct {
	mu sync.Mutex

	id        string
	subject   exam.Subject
	learner   exam.Learner
	attemptNo int
	bank      []exam.Question

	grader   Grader
	fin      Finalizer
	onSubmit func(exam.Submission)
	obs      Observer
	log      *zap.Logger
	now      func() time.Time

	state     State
	current   int
	statuses  []exam.QuestionStatus
	completed map[int]struct{}
	answers   *answerStore
	timer     *timer.Controller
	active    timer.Handle
	fired     timer.Handle
	startedAt time.Time
	// skipping marks a confirmation gate opened by Skip on the last question.
	skipping bool
	sealed   *exam.Submission
	done     chan struct{}
}

// New validates the inputs and returns a session showing its instructions.
func New(cfg Config) (*Session, error) {
	if err := cfg.Subject.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Learner.Validate(); err != nil {
		return nil, err
	}
	bank, err := exam.PrepareBank(cfg.Bank)
	if err != nil {
		return nil, err
	}
	if cfg.Finalizer == nil {
		return nil, errors.New("attempt: finalizer is required")
	}
	no := cfg.AttemptNo
	if no <= 0 {
		no = 1
	}
	if allowed := cfg.Subject.AllowedAttempts; allowed > 0 && no > allowed {
		return nil, fmt.Errorf("%w: attempt %d of %d", ErrAttemptsExhausted, no, allowed)
	}

	s := &Session{
		id:        cfg.ID,
		subject:   cfg.Subject,
		learner:   cfg.Learner,
		attemptNo: no,
		bank:      bank,
		grader:    cfg.Grader,
		fin:       cfg.Finalizer,
		onSubmit:  cfg.OnSubmit,
		obs:       cfg.Observer,
		log:       cfg.Logger,
		now:       cfg.Now,
		state:     StateInstructions,
		completed: map[int]struct{}{},
		done:      make(chan struct{}),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.grader == nil {
		s.grader = grading.NewDefaultGrader()
	}
	if s.obs == nil {
		s.obs = nopObserver{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = s.log.With(zap.String("attempt_id", s.id), zap.String("subject_id", s.subject.ID))
	s.reset()
	return s, nil
}

func (s *Session) reset() {
	s.statuses = make([]exam.QuestionStatus, len(s.bank))
	for i := range s.statuses {
		s.statuses[i] = exam.QuestionUpcoming
	}
	s.answers = newAnswerStore(s.bank)
	s.timer = timer.New(func(h timer.Handle) { s.fired = h })
	s.active = timer.NoHandle
	s.current = 0
}

func (s *Session) ID() string { return s.id }

// Done is closed once the attempt is completed or closed.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin dismisses the instructions and starts the first question's timer.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInstructions {
		return s.illegal("begin")
	}
	s.state = StateInProgress
	s.startedAt = s.now()
	s.current = 0
	s.statuses[0] = exam.QuestionCurrent
	s.active = s.timer.Start(s.bank[0].TimeLimitSec)
	s.log.Debug("attempt started", zap.Int("questions", len(s.bank)))
	return nil
}

// SetAnswer records the learner's answer for the current question.
func (s *Session) SetAnswer(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return s.illegal("answer")
	}
	s.answers.set(s.current, value)
	return nil
}

// Next advances past an answered question. On the last question it opens the
// submit confirmation instead.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return s.illegal("next")
	}
	if !s.answers.hasValue(s.current) {
		return ErrEmptyAnswer
	}
	if s.isLast() {
		s.skipping = false
		s.state = StateConfirming
		return nil
	}
	s.leaveCurrent(exam.QuestionAnswered, false)
	s.advance()
	return nil
}

// Skip advances without an answer. On the last question it opens the submit
// confirmation instead and the typed value is kept until Confirm.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return s.illegal("skip")
	}
	if s.isLast() {
		s.skipping = true
		s.state = StateConfirming
		return nil
	}
	s.answers.set(s.current, "")
	s.leaveCurrent(exam.QuestionSkipped, false)
	s.advance()
	return nil
}

// RequestSubmit opens the confirmation gate from any question and reports how
// many questions are still unanswered.
func (s *Session) RequestSubmit() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return 0, s.illegal("submit")
	}
	s.skipping = false
	s.state = StateConfirming
	return s.answers.unanswered(), nil
}

// Decline closes the confirmation gate. The current question's timer keeps
// its remaining time.
func (s *Session) Decline() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfirming {
		return s.illegal("decline")
	}
	s.skipping = false
	s.state = StateInProgress
	return nil
}

// Confirm finalizes the attempt: the current question is closed, any
// remaining questions are recorded as skipped, and the result is graded and
// delivered. The sealed record is returned even when delivery fails.
func (s *Session) Confirm(ctx context.Context) (exam.Submission, error) {
	s.mu.Lock()
	if s.state != StateConfirming {
		err := s.illegal("confirm")
		s.mu.Unlock()
		return exam.Submission{}, err
	}
	if s.skipping {
		s.answers.set(s.current, "")
	}
	status := exam.QuestionSkipped
	if s.answers.hasValue(s.current) {
		status = exam.QuestionAnswered
	}
	s.leaveCurrent(status, false)
	sub := s.finish()
	s.mu.Unlock()
	return sub, s.deliver(ctx, sub)
}

// Select asks to display question i. Only the current question is accepted.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress && s.state != StateConfirming {
		return s.illegal("select")
	}
	if i < 0 || i >= len(s.bank) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	if i == s.current {
		return nil
	}
	if _, ok := s.completed[i]; ok {
		return fmt.Errorf("%w: %s", ErrQuestionCompleted, s.bank[i].ID)
	}
	return fmt.Errorf("%w: %s", ErrOutOfOrder, s.bank[i].ID)
}

// Tick advances the active countdown by one second and applies an expiry.
// It reports whether the attempt has finished.
func (s *Session) Tick(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if !s.running() {
		finished := s.state == StateCompleted || s.state == StateClosed
		s.mu.Unlock()
		return finished, nil
	}
	s.fired = timer.NoHandle
	s.timer.Tick()
	var sub *exam.Submission
	if s.fired != timer.NoHandle {
		sub = s.expire(s.fired)
	}
	finished := s.state == StateCompleted
	s.mu.Unlock()
	if sub != nil {
		return true, s.deliver(ctx, *sub)
	}
	return finished, nil
}

// HandleExpiry applies a timeout reported for handle h. Handles that are no
// longer active are ignored.
func (s *Session) HandleExpiry(ctx context.Context, h timer.Handle) error {
	s.mu.Lock()
	sub := s.expire(h)
	s.mu.Unlock()
	if sub != nil {
		return s.deliver(ctx, *sub)
	}
	return nil
}

// Close abandons the attempt. Nothing is persisted.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCompleted || s.state == StateClosed {
		return
	}
	s.timer.Cancel(s.active)
	s.reset()
	s.state = StateClosed
	close(s.done)
	s.obs.AttemptClosed(s.subject.Kind)
	s.log.Debug("attempt closed without submission")
}

// Submission returns the sealed record once the attempt is completed.
func (s *Session) Submission() (exam.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed == nil {
		return exam.Submission{}, false
	}
	return *s.sealed, true
}

type Snapshot struct {
	ID           string                `json:"id"`
	State        State                 `json:"state"`
	CurrentIndex int                   `json:"current_index"`
	Statuses     []exam.QuestionStatus `json:"statuses"`
	Remaining    int                   `json:"remaining_sec"`
	Limit        int                   `json:"limit_sec"`
	Urgency      timer.Urgency         `json:"urgency"`
	Unanswered   int                   `json:"unanswered"`
	ActiveTimer  timer.Handle          `json:"-"`
	Submission   *exam.Submission      `json:"submission,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:           s.id,
		State:        s.state,
		CurrentIndex: s.current,
		Statuses:     append([]exam.QuestionStatus(nil), s.statuses...),
		Unanswered:   s.answers.unanswered(),
		ActiveTimer:  s.active,
	}
	if s.running() {
		snap.Remaining = s.timer.Remaining()
		snap.Limit = s.timer.Limit()
		snap.Urgency = s.timer.Urgency()
	}
	if s.sealed != nil {
		sub := *s.sealed
		snap.Submission = &sub
	}
	return snap
}

// Question returns the current question, or false when none is being timed.
func (s *Session) Question() (exam.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running() {
		return exam.Question{}, false
	}
	return s.bank[s.current], true
}

// --- internals; callers hold s.mu ---

func (s *Session) running() bool {
	return s.state == StateInProgress || s.state == StateConfirming
}

func (s *Session) isLast() bool { return s.current == len(s.bank)-1 }

func (s *Session) illegal(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, s.state)
}

// leaveCurrent stops the current question's timer and freezes its entry.
func (s *Session) leaveCurrent(status exam.QuestionStatus, autoSkipped bool) {
	elapsed := s.timer.Elapsed()
	s.timer.Cancel(s.active)
	s.active = timer.NoHandle
	s.freeze(s.current, status, elapsed, autoSkipped)
}

func (s *Session) freeze(i int, status exam.QuestionStatus, elapsed int, autoSkipped bool) {
	if !s.answers.finalize(i, status, elapsed, autoSkipped) {
		return
	}
	s.statuses[i] = status
	s.completed[i] = struct{}{}
	s.obs.QuestionFinalized(s.subject.Kind, status)
	s.log.Debug("question finalized",
		zap.String("question_id", s.bank[i].ID),
		zap.String("status", string(status)),
		zap.Int("elapsed_sec", elapsed))
}

// advance moves to the next question, or finishes after the last one.
func (s *Session) advance() *exam.Submission {
	if s.isLast() {
		sub := s.finish()
		return &sub
	}
	s.current++
	s.statuses[s.current] = exam.QuestionCurrent
	s.active = s.timer.Start(s.bank[s.current].TimeLimitSec)
	return nil
}

func (s *Session) expire(h timer.Handle) *exam.Submission {
	if !s.running() || h == timer.NoHandle || h != s.active {
		s.log.Debug("stale timer expiry ignored", zap.Uint64("handle", uint64(h)))
		return nil
	}
	q := s.bank[s.current]
	if s.skipping {
		s.answers.set(s.current, "")
		s.skipping = false
	}
	if s.answers.hasValue(s.current) {
		s.leaveCurrent(exam.QuestionAnswered, false)
	} else {
		s.timer.Cancel(s.active)
		s.active = timer.NoHandle
		s.freeze(s.current, exam.QuestionTimedOut, q.TimeLimitSec, true)
	}
	s.state = StateInProgress
	return s.advance()
}

// finish grades and seals the attempt. It runs at most once per session.
func (s *Session) finish() exam.Submission {
	s.timer.Cancel(s.active)
	s.active = timer.NoHandle
	for i := s.current + 1; i < len(s.bank); i++ {
		s.answers.set(i, "")
		s.freeze(i, exam.QuestionSkipped, 0, false)
	}
	answers := s.answers.snapshot()
	rep := s.grader.Grade(s.bank, answers)
	sub := s.fin.Build(submission.Input{
		AttemptID: s.id,
		Subject:   s.subject,
		Learner:   s.learner,
		AttemptNo: s.attemptNo,
		StartedAt: s.startedAt,
		Answers:   answers,
	}, rep)
	s.sealed = &sub
	s.state = StateCompleted
	close(s.done)
	s.obs.AttemptFinished(sub)
	s.log.Info("attempt completed",
		zap.String("status", string(sub.Status)),
		zap.Int("score", sub.Score),
		zap.Int("max_score", sub.MaxScore),
		zap.Int("elapsed_sec", sub.TotalElapsedSec))
	return sub
}

func (s *Session) deliver(ctx context.Context, sub exam.Submission) error {
	if err := s.fin.Deliver(ctx, sub, s.subject); err != nil {
		s.log.Error("submission delivery failed", zap.Error(err))
		return err
	}
	if s.onSubmit != nil {
		s.onSubmit(sub)
	}
	return nil
}
