package workflow

import "github.com/okian/carematch/internal/domain/model"

// transitions lists the statuses reachable from each non-terminal status.
var transitions = map[model.Status][]model.Status{
	model.StatusPending:  {model.StatusPending, model.StatusAssigned, model.StatusCancelled},
	model.StatusAssigned: {model.StatusAssigned, model.StatusPending, model.StatusCompleted, model.StatusCancelled},
}

// IsTerminal reports whether no operation may change a booking in status s.
func IsTerminal(s model.Status) bool {
	return s == model.StatusCompleted || s == model.StatusCancelled
}

// CanTransition reports whether the lifecycle allows moving from one status to
// another. Terminal statuses allow nothing.
func CanTransition(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Allowed returns the statuses reachable from s.
func Allowed(s model.Status) []model.Status {
	return append([]model.Status(nil), transitions[s]...)
}
