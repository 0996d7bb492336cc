// Package notify delivers assignment events to the outside world.
package notify

import (
	"context"

	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/logger"
)

// LogNotifier writes each event as a structured log record. It is the
// default when no broker is configured.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier returns a notifier that logs through l.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.Nop()
	}
	return &LogNotifier{log: l}
}

// Notify implements worker.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, e model.AssignmentEvent) error { //nolint:gocritic // hugeParam
	n.log.Info(ctx, "assignment event",
		logger.String("event_id", e.EventID),
		logger.String("type", e.Type),
		logger.String("booking_id", e.BookingID),
		logger.String("talent_id", e.TalentID),
		logger.String("previous_talent_id", e.PreviousTalent),
		logger.String("from", string(e.From)),
		logger.String("to", string(e.To)),
		logger.String("actor_id", e.ActorID),
		logger.Int64("version", e.Version),
	)
	return nil
}

// Close is a no-op.
func (n *LogNotifier) Close() error { return nil }
