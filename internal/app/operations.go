package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/carematch/internal/domain/calendar"
	"github.com/okian/carematch/internal/domain/directory"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/internal/domain/workflow"
	"github.com/okian/carematch/pkg/metrics"
	"github.com/okian/carematch/pkg/tracing"
)

func (s *Service) ready(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.WrapKind(op, model.ErrUnavailable, ErrNotStarted)
	}
	return nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracing.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, workflow.Outcome(err))
	}
	span.End()
}

// Assign binds a talent to an open booking.
func (s *Service) Assign(ctx context.Context, actor model.Actor, bookingID, talentID string, expectedVersion int64) (model.Booking, error) {
	return s.mutate(ctx, workflow.OpAssign, actor, bookingID, func(ctx context.Context) (model.Booking, error) {
		return s.flow.Assign(ctx, actor, bookingID, talentID, expectedVersion)
	}, attribute.String("talent.id", talentID))
}

// Reassign replaces the talent on an open booking.
func (s *Service) Reassign(ctx context.Context, actor model.Actor, bookingID, talentID string, expectedVersion int64) (model.Booking, error) {
	return s.mutate(ctx, workflow.OpReassign, actor, bookingID, func(ctx context.Context) (model.Booking, error) {
		return s.flow.Reassign(ctx, actor, bookingID, talentID, expectedVersion)
	}, attribute.String("talent.id", talentID))
}

// Unassign returns an open booking to pending.
func (s *Service) Unassign(ctx context.Context, actor model.Actor, bookingID string, expectedVersion int64) (model.Booking, error) {
	return s.mutate(ctx, workflow.OpUnassign, actor, bookingID, func(ctx context.Context) (model.Booking, error) {
		return s.flow.Unassign(ctx, actor, bookingID, expectedVersion)
	})
}

// SetStatus moves a booking to status.
func (s *Service) SetStatus(ctx context.Context, actor model.Actor, bookingID string, status model.Status, expectedVersion int64) (model.Booking, error) {
	return s.mutate(ctx, workflow.OpSetStatus, actor, bookingID, func(ctx context.Context) (model.Booking, error) {
		return s.flow.SetStatus(ctx, actor, bookingID, status, expectedVersion)
	}, attribute.String("booking.target_status", string(status)))
}

// MarkCompleted completes an assigned booking.
func (s *Service) MarkCompleted(ctx context.Context, actor model.Actor, bookingID string, expectedVersion int64) (model.Booking, error) {
	return s.mutate(ctx, workflow.OpMarkCompleted, actor, bookingID, func(ctx context.Context) (model.Booking, error) {
		return s.flow.MarkCompleted(ctx, actor, bookingID, expectedVersion)
	})
}

func (s *Service) mutate(
	ctx context.Context,
	op string,
	actor model.Actor,
	bookingID string,
	apply func(context.Context) (model.Booking, error),
	attrs ...attribute.KeyValue,
) (b model.Booking, err error) {
	ctx, span := startSpan(ctx, "workflow."+op, append(attrs,
		attribute.String("booking.id", bookingID),
		attribute.String("actor.id", actor.ID),
	)...)
	start := time.Now()
	defer func() {
		outcome := workflow.Outcome(err)
		metrics.RecordWorkflowOperation(op, outcome)
		metrics.RecordWorkflowLatency(op, float64(time.Since(start).Milliseconds()))
		span.SetAttributes(attribute.String("workflow.outcome", outcome))
		endSpan(span, err)
	}()

	if err = s.ready("app." + op); err != nil {
		return model.Booking{}, err
	}
	return apply(ctx)
}

// ListBookings returns the matching bookings and their status counts.
func (s *Service) ListBookings(ctx context.Context, f model.BookingFilter) (_ []model.BookingView, _ model.StatusCounts, err error) {
	ctx, span := startSpan(ctx, "directory.list",
		attribute.String("filter.service_type", f.ServiceType),
		attribute.String("filter.status", string(f.Status)),
	)
	defer func() { endSpan(span, err) }()

	if err = s.ready("app.list_bookings"); err != nil {
		return nil, model.StatusCounts{}, err
	}
	views, err := s.dir.List(ctx, f)
	if err != nil {
		return nil, model.StatusCounts{}, err
	}
	counts := directory.Summarize(views)
	span.SetAttributes(attribute.Int("result.count", counts.Total))
	return views, counts, nil
}

// GetBooking returns one enriched booking.
func (s *Service) GetBooking(ctx context.Context, id string) (_ model.BookingView, err error) {
	ctx, span := startSpan(ctx, "directory.get", attribute.String("booking.id", id))
	defer func() { endSpan(span, err) }()

	if err = s.ready("app.get_booking"); err != nil {
		return model.BookingView{}, err
	}
	return s.dir.Get(ctx, id)
}

// Suggest ranks talents for a city and service.
func (s *Service) Suggest(ctx context.Context, city, serviceType string) (_ []model.SuggestedTalent, err error) {
	ctx, span := startSpan(ctx, "scoring.suggest", attribute.String("service_type", serviceType))
	defer func() { endSpan(span, err) }()

	if err = s.ready("app.suggest"); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.engine.Suggest(ctx, city, serviceType)
	if err != nil {
		return nil, err
	}
	metrics.RecordSuggestion(float64(time.Since(start).Milliseconds()), len(out))
	return out, nil
}

// SuggestForBooking ranks talents for a booking's customer city and service.
func (s *Service) SuggestForBooking(ctx context.Context, bookingID string) (_ []model.SuggestedTalent, err error) {
	ctx, span := startSpan(ctx, "scoring.suggest_for_booking", attribute.String("booking.id", bookingID))
	defer func() { endSpan(span, err) }()

	if err = s.ready("app.suggest_for_booking"); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.engine.SuggestForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	metrics.RecordSuggestion(float64(time.Since(start).Milliseconds()), len(out))
	return out, nil
}

// Calendar builds the weekly grid for serviceID. A zero weekStart means the
// week containing now.
func (s *Service) Calendar(ctx context.Context, serviceID string, weekStart time.Time) (_ calendar.Grid, err error) {
	const op = "app.calendar"
	ctx, span := startSpan(ctx, "calendar.week", attribute.String("service.id", serviceID))
	defer func() { endSpan(span, err) }()

	if err = s.ready(op); err != nil {
		return calendar.Grid{}, err
	}
	title, ok := s.catalog.Title(serviceID)
	if !ok {
		return calendar.Grid{}, model.Invalidf(op, "unknown service %q", serviceID)
	}
	if weekStart.IsZero() {
		weekStart = s.currentWeek(s.now())
	}

	bookings, err := s.store.ListBookings(ctx, model.BookingFilter{ServiceType: title})
	if err != nil {
		return calendar.Grid{}, model.WrapKind(op, model.ErrUnavailable, err)
	}
	grid := s.matcher.Week(weekStart, s.slotLabels(), serviceID, bookings)
	metrics.RecordCalendarCollisions(len(grid.Collisions))
	span.SetAttributes(attribute.Int("calendar.collisions", len(grid.Collisions)))
	return grid, nil
}
