package workflow

import (
	"errors"

	"github.com/okian/carematch/internal/domain/model"
)

// Operation names used in errors, logs and metrics.
const (
	OpAssign        = "assign"
	OpReassign      = "reassign"
	OpUnassign      = "unassign"
	OpSetStatus     = "set_status"
	OpMarkCompleted = "complete"
)

func opName(op string) string { return "workflow." + op }

// classify maps a store failure onto the domain error kinds.
func classify(op string, err error, notFound error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return model.WrapKind(opName(op), notFound, err)
	case errors.Is(err, model.ErrConflict):
		return model.WrapKind(opName(op), model.ErrConflict, err)
	default:
		return model.WrapKind(opName(op), model.ErrUnavailable, err)
	}
}

// Outcome names an error for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrBookingClosed):
		return "closed"
	case errors.Is(err, model.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
