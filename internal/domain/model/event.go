package model

import "time"

// Event types published after successful assignment mutations.
const (
	EventAssigned      = "booking.assigned"
	EventReassigned    = "booking.reassigned"
	EventUnassigned    = "booking.unassigned"
	EventStatusChanged = "booking.status_changed"
	EventCompleted     = "booking.completed"
)

// AssignmentEvent records one applied workflow mutation.
type AssignmentEvent struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	BookingID      string    `json:"booking_id"`
	TalentID       string    `json:"talent_id,omitempty"`
	PreviousTalent string    `json:"previous_talent_id,omitempty"`
	From           Status    `json:"from"`
	To             Status    `json:"to"`
	ActorID        string    `json:"actor_id"`
	Version        int64     `json:"version"`
	TS             time.Time `json:"ts"`
}
