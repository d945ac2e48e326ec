// Package notify delivers grading notifications.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mind-engage/assessment-engine/internal/submission"
)

// Log writes notifications to a zap logger. Useful offline and in development.
type Log struct{ log *zap.Logger }

func NewLog(l *zap.Logger) *Log {
	if l == nil {
		l = zap.NewNop()
	}
	return &Log{log: l.Named("notify")}
}

func (l *Log) Notify(_ context.Context, n submission.Notification) error {
	l.log.Info(n.Title,
		zap.String("recipient_id", n.RecipientID),
		zap.String("recipient_role", n.RecipientRole),
		zap.String("event_type", n.EventType),
		zap.String("message", n.Message),
		zap.String("deep_link", n.DeepLink),
		zap.Any("metadata", n.Metadata))
	return nil
}

// Multi fans a notification out to every sink and joins their errors.
type Multi []submission.Notifier

func (m Multi) Notify(ctx context.Context, n submission.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
