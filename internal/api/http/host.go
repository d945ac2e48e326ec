package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/assessment-engine/internal/attempt"
	"github.com/mind-engage/assessment-engine/internal/exam"
	"github.com/mind-engage/assessment-engine/internal/notify"
	"github.com/mind-engage/assessment-engine/internal/submission"
)

var (
	errUnknownAttempt = errors.New("attempt not found")
	errUnknownSubject = errors.New("subject not found")
)

// AttemptLedger lists the attempt IDs a learner has already submitted.
type AttemptLedger interface {
	SubmittedAttempts(ctx context.Context, collection, subjectID, learnerID string) ([]string, error)
}

// EventReader pages through the notification outbox.
type EventReader interface {
	Since(ctx context.Context, seq int64, limit int) ([]notify.Event, error)
}

type assessment struct {
	Subject exam.Subject
	Bank    []exam.Question
}

type hosted struct {
	s         *attempt.Session
	subjectID string
	learnerID string
	cancel    context.CancelFunc
	created   time.Time
	doneAt    time.Time
}

// Host keeps question banks and live sessions in process and runs one ticker
// goroutine per started session. Finished sessions stay readable for the
// retention period and are then dropped.
type Host struct {
	mu       sync.Mutex
	banks    map[string]assessment
	sessions map[string]*hosted

	fin       attempt.Finalizer
	ledger    AttemptLedger
	events    EventReader
	obs       attempt.Observer
	log       *zap.Logger
	tick      time.Duration
	retention time.Duration
	now       func() time.Time
	base      context.Context
}

type HostOptions struct {
	Finalizer attempt.Finalizer
	Ledger    AttemptLedger
	// Events enables GET /outbox when set.
	Events       EventReader
	Observer     attempt.Observer
	Logger       *zap.Logger
	TickInterval time.Duration
	// Retention is how long finished or never-begun sessions are kept. Defaults to 15m.
	Retention time.Duration
}

// NewHost returns a Host whose ticker and sweeper goroutines stop when ctx is done.
func NewHost(ctx context.Context, o HostOptions) *Host {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 15 * time.Minute
	}
	h := &Host{
		banks:     map[string]assessment{},
		sessions:  map[string]*hosted{},
		fin:       o.Finalizer,
		ledger:    o.Ledger,
		events:    o.Events,
		obs:       o.Observer,
		log:       o.Logger,
		tick:      o.TickInterval,
		retention: o.Retention,
		now:       time.Now,
		base:      ctx,
	}
	go h.sweepLoop(ctx)
	return h
}

func (h *Host) putBank(a assessment) error {
	if err := a.Subject.Validate(); err != nil {
		return err
	}
	bank, err := exam.PrepareBank(a.Bank)
	if err != nil {
		return err
	}
	a.Bank = bank
	h.mu.Lock()
	h.banks[a.Subject.ID] = a
	h.mu.Unlock()
	return nil
}

// open creates a session in its instructions state. The attempt ordinal
// counts stored submissions and live sessions of the same learner, so h.mu is
// held across the ledger lookup and the insert.
func (h *Host) open(ctx context.Context, subjectID string, learner exam.Learner) (*attempt.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.banks[subjectID]
	if !ok {
		return nil, errUnknownSubject
	}

	used := map[string]struct{}{}
	for id, hs := range h.sessions {
		if hs.subjectID == subjectID && hs.learnerID == learner.ID && hs.s.State() != attempt.StateClosed {
			used[id] = struct{}{}
		}
	}
	if h.ledger != nil {
		ids, err := h.ledger.SubmittedAttempts(ctx, submission.CollectionKey(a.Subject.CourseID, a.Subject.Kind), a.Subject.ID, learner.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			used[id] = struct{}{}
		}
	}

	log := h.log.With(zap.String("learner_id", learner.ID))
	s, err := attempt.New(attempt.Config{
		ID:        uuid.NewString(),
		Subject:   a.Subject,
		Learner:   learner,
		Bank:      a.Bank,
		AttemptNo: len(used) + 1,
		Finalizer: h.fin,
		Observer:  h.obs,
		Logger:    log,
		OnSubmit: func(sub exam.Submission) {
			log.Info("result ready", zap.String("submission_id", sub.ID), zap.String("status", string(sub.Status)))
		},
	})
	if err != nil {
		return nil, err
	}
	h.sessions[s.ID()] = &hosted{s: s, subjectID: subjectID, learnerID: learner.ID, created: h.now()}
	return s, nil
}

func (h *Host) session(id string) (*attempt.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hs, ok := h.sessions[id]
	if !ok {
		return nil, errUnknownAttempt
	}
	return hs.s, nil
}

// begin starts the attempt and its ticker.
func (h *Host) begin(id string) (*attempt.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hs, ok := h.sessions[id]
	if !ok {
		return nil, errUnknownAttempt
	}
	if err := hs.s.Begin(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(h.base)
	hs.cancel = cancel
	go func() {
		defer cancel()
		if err := attempt.Run(ctx, hs.s, h.tick); err != nil && !errors.Is(err, context.Canceled) {
			h.log.Error("attempt ticker stopped", zap.String("attempt_id", id), zap.Error(err))
		}
		select {
		case <-hs.s.Done():
			h.mu.Lock()
			hs.doneAt = h.now()
			h.mu.Unlock()
		default:
		}
	}()
	return hs.s, nil
}

// discard closes the attempt without persisting anything.
func (h *Host) discard(id string) error {
	h.mu.Lock()
	hs, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return errUnknownAttempt
	}
	hs.s.Close()
	if hs.cancel != nil {
		hs.cancel()
	}
	return nil
}

// Sweep drops sessions that finished, or were opened and never begun, at
// least one retention period before now. It returns how many were dropped.
func (h *Host) Sweep(now time.Time) int {
	h.mu.Lock()
	var stale []*hosted
	for id, hs := range h.sessions {
		switch {
		case !hs.doneAt.IsZero() && now.Sub(hs.doneAt) >= h.retention:
		case hs.cancel == nil && now.Sub(hs.created) >= h.retention:
		default:
			continue
		}
		delete(h.sessions, id)
		stale = append(stale, hs)
	}
	h.mu.Unlock()
	for _, hs := range stale {
		hs.s.Close()
	}
	if len(stale) > 0 {
		h.log.Debug("swept attempts", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func (h *Host) sweepLoop(ctx context.Context) {
	t := time.NewTicker(h.retention / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			h.Sweep(now)
		}
	}
}
