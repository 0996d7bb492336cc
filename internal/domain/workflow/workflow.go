// Package workflow implements the booking lifecycle and talent assignment.
//
// Lifecycle:
//
//	pending -> assigned -> completed
//	pending | assigned -> cancelled
//
// Completed and cancelled are terminal. Every operation takes the acting
// administrator explicitly, validates before touching the store, writes with a
// compare-and-set on the booking version and returns the stored booking.
package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/logger"
)

// Store is the persistence the workflow reads and writes.
type Store interface {
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	GetTalent(ctx context.Context, id string) (model.Talent, error)
	// UpdateBooking persists b if the stored version equals expectedVersion and
	// returns the stored booking with its new version.
	UpdateBooking(ctx context.Context, b model.Booking, expectedVersion int64) (model.Booking, error)
}

// EventSink receives events for applied mutations. Publish must not block and
// reports whether the event was accepted.
type EventSink interface {
	Publish(ctx context.Context, e model.AssignmentEvent) bool
}

type discardSink struct{}

func (discardSink) Publish(context.Context, model.AssignmentEvent) bool { return true }

// Workflow applies assignment mutations.
type Workflow struct {
	store  Store
	sink   EventSink
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// New creates a Workflow over store.
func New(store Store, opts ...Option) *Workflow {
	w := &Workflow{
		store:  store,
		sink:   discardSink{},
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Assign binds talentID to the booking and moves it to assigned.
func (w *Workflow) Assign(ctx context.Context, actor model.Actor, bookingID, talentID string, expectedVersion int64) (model.Booking, error) {
	return w.bind(ctx, OpAssign, model.EventAssigned, actor, bookingID, talentID, expectedVersion)
}

// Reassign replaces the bound talent. A pending booking is simply assigned.
func (w *Workflow) Reassign(ctx context.Context, actor model.Actor, bookingID, talentID string, expectedVersion int64) (model.Booking, error) {
	return w.bind(ctx, OpReassign, model.EventReassigned, actor, bookingID, talentID, expectedVersion)
}

func (w *Workflow) bind(ctx context.Context, op, eventType string, actor model.Actor, bookingID, talentID string, expectedVersion int64) (model.Booking, error) {
	if err := validate(op, actor, bookingID); err != nil {
		return model.Booking{}, err
	}
	if strings.TrimSpace(talentID) == "" {
		return model.Booking{}, model.Invalidf(opName(op), "talent id is required")
	}

	b, err := w.load(ctx, op, bookingID, expectedVersion)
	if err != nil {
		return model.Booking{}, err
	}
	if IsTerminal(b.Status) {
		return model.Booking{}, model.NewKind(opName(op), model.ErrBookingClosed)
	}

	t, err := w.store.GetTalent(ctx, talentID)
	if err != nil {
		return model.Booking{}, classify(op, err, model.ErrTalentNotFound)
	}
	if t.Approval == model.ApprovalRejected {
		return model.Booking{}, model.Invalidf(opName(op), "talent %s is rejected", talentID)
	}

	next := b
	at := w.now()
	next.Status = model.StatusAssigned
	next.AssignedTalentID = t.ID
	next.AssignedAt = &at
	next.AssignedBy = actor.ID

	return w.commit(ctx, op, eventType, actor, b, next)
}

// Unassign clears the bound talent and returns the booking to pending.
func (w *Workflow) Unassign(ctx context.Context, actor model.Actor, bookingID string, expectedVersion int64) (model.Booking, error) {
	const op = OpUnassign
	if err := validate(op, actor, bookingID); err != nil {
		return model.Booking{}, err
	}
	b, err := w.load(ctx, op, bookingID, expectedVersion)
	if err != nil {
		return model.Booking{}, err
	}
	if IsTerminal(b.Status) {
		return model.Booking{}, model.NewKind(opName(op), model.ErrBookingClosed)
	}

	next := b
	next.Status = model.StatusPending
	next.ClearAssignment()
	return w.commit(ctx, op, model.EventUnassigned, actor, b, next)
}

// SetStatus moves the booking directly to status. Assigned and completed
// require a bound talent; pending clears the binding.
func (w *Workflow) SetStatus(ctx context.Context, actor model.Actor, bookingID string, status model.Status, expectedVersion int64) (model.Booking, error) {
	const op = OpSetStatus
	if err := validate(op, actor, bookingID); err != nil {
		return model.Booking{}, err
	}
	if !status.Valid() {
		return model.Booking{}, model.Invalidf(opName(op), "unknown status %q", status)
	}
	b, err := w.load(ctx, op, bookingID, expectedVersion)
	if err != nil {
		return model.Booking{}, err
	}
	if IsTerminal(b.Status) {
		return model.Booking{}, model.NewKind(opName(op), model.ErrBookingClosed)
	}
	if !CanTransition(b.Status, status) {
		return model.Booking{}, model.NewKind(opName(op), model.ErrInvalidTransition)
	}

	next := b
	next.Status = status
	switch status {
	case model.StatusAssigned, model.StatusCompleted:
		if !b.HasTalent() {
			return model.Booking{}, model.NewKind(opName(op), model.ErrInvalidTransition)
		}
	case model.StatusPending:
		next.ClearAssignment()
	}

	eventType := model.EventStatusChanged
	if status == model.StatusCompleted {
		eventType = model.EventCompleted
	}
	return w.commit(ctx, op, eventType, actor, b, next)
}

// MarkCompleted completes an assigned booking.
func (w *Workflow) MarkCompleted(ctx context.Context, actor model.Actor, bookingID string, expectedVersion int64) (model.Booking, error) {
	const op = OpMarkCompleted
	if err := validate(op, actor, bookingID); err != nil {
		return model.Booking{}, err
	}
	b, err := w.load(ctx, op, bookingID, expectedVersion)
	if err != nil {
		return model.Booking{}, err
	}
	if IsTerminal(b.Status) {
		return model.Booking{}, model.NewKind(opName(op), model.ErrBookingClosed)
	}
	if b.Status != model.StatusAssigned || !b.HasTalent() {
		return model.Booking{}, model.NewKind(opName(op), model.ErrInvalidTransition)
	}

	next := b
	next.Status = model.StatusCompleted
	return w.commit(ctx, op, model.EventCompleted, actor, b, next)
}

func validate(op string, actor model.Actor, bookingID string) error {
	if strings.TrimSpace(actor.ID) == "" {
		return model.Invalidf(opName(op), "actor id is required")
	}
	if strings.TrimSpace(bookingID) == "" {
		return model.Invalidf(opName(op), "booking id is required")
	}
	return nil
}

// load reads the booking and checks the caller's version, if any.
func (w *Workflow) load(ctx context.Context, op, bookingID string, expectedVersion int64) (model.Booking, error) {
	b, err := w.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, classify(op, err, model.ErrNotFound)
	}
	if expectedVersion > 0 && b.Version != expectedVersion {
		return model.Booking{}, model.NewKind(opName(op), model.ErrConflict)
	}
	return b, nil
}

func (w *Workflow) commit(ctx context.Context, op, eventType string, actor model.Actor, prev, next model.Booking) (model.Booking, error) {
	stored, err := w.store.UpdateBooking(ctx, next, prev.Version)
	if err != nil {
		err = classify(op, err, model.ErrNotFound)
		w.logger.Warn(ctx, "booking mutation failed",
			logger.String("op", op),
			logger.String("booking_id", prev.ID),
			logger.String("actor_id", actor.ID),
			logger.String("outcome", Outcome(err)),
			logger.Error(err),
		)
		return model.Booking{}, err
	}

	e := model.AssignmentEvent{
		EventID:   w.newID(),
		Type:      eventType,
		BookingID: stored.ID,
		TalentID:  stored.AssignedTalentID,
		From:      prev.Status,
		To:        stored.Status,
		ActorID:   actor.ID,
		Version:   stored.Version,
		TS:        w.now(),
	}
	if prev.AssignedTalentID != stored.AssignedTalentID {
		e.PreviousTalent = prev.AssignedTalentID
	}
	if !w.sink.Publish(ctx, e) {
		w.logger.Warn(ctx, "assignment event dropped",
			logger.String("event_id", e.EventID),
			logger.String("type", e.Type),
			logger.String("booking_id", e.BookingID),
		)
	}

	w.logger.Info(ctx, "booking updated",
		logger.String("op", op),
		logger.String("booking_id", stored.ID),
		logger.String("actor_id", actor.ID),
		logger.String("from", string(prev.Status)),
		logger.String("to", string(stored.Status)),
		logger.String("talent_id", stored.AssignedTalentID),
		logger.Int64("version", stored.Version),
	)
	return stored, nil
}
