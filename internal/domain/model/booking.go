// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Status is a booking lifecycle state.
type Status string

// Booking states. Completed and cancelled are terminal.
const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusPending, StatusAssigned, StatusCompleted, StatusCancelled}

// ParseStatus returns the status named by s (case-insensitive).
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Booking is a customer's request for a service at a date, time and address.
type Booking struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	ServiceType  string    `json:"service_type"`
	Address      string    `json:"address"`
	Date         time.Time `json:"date"`
	Time         string    `json:"time"` // free text, e.g. "8:00 am"
	Duration     string    `json:"duration,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	Status       Status    `json:"status"`

	AssignedTalentID string     `json:"assigned_talent_id,omitempty"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`
	AssignedBy       string     `json:"assigned_by,omitempty"`

	// Version increases by one on every persisted write.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTalent reports whether a talent is bound to the booking.
func (b Booking) HasTalent() bool { return b.AssignedTalentID != "" }

// ClearAssignment drops the talent binding and its audit stamps.
func (b *Booking) ClearAssignment() {
	b.AssignedTalentID = ""
	b.AssignedAt = nil
	b.AssignedBy = ""
}

// SameDay reports whether the booking falls on the calendar day of d.
func (b Booking) SameDay(d time.Time) bool {
	y1, m1, d1 := b.Date.Date()
	y2, m2, d2 := d.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Actor identifies the administrator performing a mutation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// BookingFilter narrows a booking listing. Zero values match everything.
type BookingFilter struct {
	// Query is a case-insensitive substring over customer name, service type and address.
	Query       string
	ServiceType string
	Status      Status
}

// MatchExact applies the exact service type and status filters.
func (f BookingFilter) MatchExact(b Booking) bool {
	if f.ServiceType != "" && !strings.EqualFold(b.ServiceType, f.ServiceType) {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

// BookingView is a booking enriched with denormalized customer and talent data.
type BookingView struct {
	Booking

	CustomerName string `json:"customer_name"`
	CustomerCity string `json:"customer_city"`

	TalentName  string `json:"talent_name,omitempty"`
	TalentPhoto string `json:"talent_photo,omitempty"`
	TalentRate  string `json:"talent_rate,omitempty"`
}

// StatusCounts summarizes a listing by status.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Assigned  int `json:"assigned"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}
