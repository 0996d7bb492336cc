package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/carematch/internal/domain/dedupe"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/metrics"
)

type listBookingsQuery struct {
	Query       string `validate:"max=200"`
	ServiceType string `validate:"max=100"`
	Status      string `validate:"omitempty,oneof=pending assigned completed cancelled"`
}

type listBookingsResponse struct {
	Items  []model.BookingView `json:"items"`
	Counts model.StatusCounts  `json:"counts"`
}

type assignRequest struct {
	TalentID        string `json:"talent_id" validate:"required,max=128"`
	ExpectedVersion int64  `json:"expected_version" validate:"gte=0"`
}

type versionRequest struct {
	ExpectedVersion int64 `json:"expected_version" validate:"gte=0"`
}

type statusRequest struct {
	Status          string `json:"status" validate:"required,oneof=pending assigned completed cancelled"`
	ExpectedVersion int64  `json:"expected_version" validate:"gte=0"`
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_bookings"
	q := r.URL.Query()
	in := listBookingsQuery{
		Query:       q.Get("q"),
		ServiceType: q.Get("service_type"),
		Status:      strings.ToLower(strings.TrimSpace(q.Get("status"))),
	}
	if err := s.validate.Struct(in); err != nil {
		s.fail(w, r, model.WrapKind(op, model.ErrValidation, err))
		return
	}

	items, counts, err := s.deps.ListBookings(r.Context(), model.BookingFilter{
		Query:       in.Query,
		ServiceType: in.ServiceType,
		Status:      model.Status(in.Status),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []model.BookingView{}
	}
	writeJSON(w, http.StatusOK, listBookingsResponse{Items: items, Counts: counts})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !s.decode(w, r, "api.assign", &req, true) {
		return
	}
	s.mutate(w, r, "assign", func(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
		return s.deps.Assign(ctx, actor, id, req.TalentID, req.ExpectedVersion)
	})
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !s.decode(w, r, "api.reassign", &req, true) {
		return
	}
	s.mutate(w, r, "reassign", func(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
		return s.deps.Reassign(ctx, actor, id, req.TalentID, req.ExpectedVersion)
	})
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if !s.decode(w, r, "api.unassign", &req, false) {
		return
	}
	s.mutate(w, r, "unassign", func(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
		return s.deps.Unassign(ctx, actor, id, req.ExpectedVersion)
	})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, "api.set_status", &req, true) {
		return
	}
	s.mutate(w, r, "set_status", func(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
		return s.deps.SetStatus(ctx, actor, id, model.Status(req.Status), req.ExpectedVersion)
	})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if !s.decode(w, r, "api.complete", &req, false) {
		return
	}
	s.mutate(w, r, "complete", func(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
		return s.deps.MarkCompleted(ctx, actor, id, req.ExpectedVersion)
	})
}

// decode reads and validates a JSON body into dst. When required is false an
// empty body is accepted.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, dst any, required bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case errors.Is(err, io.EOF) && !required:
	case errors.Is(err, io.EOF):
		s.fail(w, r, model.WrapKind(op, model.ErrValidation, fmt.Errorf("%w: empty body", ErrBadRequest)))
		return false
	case err != nil:
		s.fail(w, r, model.WrapKind(op, model.ErrValidation, fmt.Errorf("%w: %w", ErrBadRequest, err)))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.fail(w, r, model.WrapKind(op, model.ErrValidation, err))
		return false
	}
	return true
}

// mutate runs a workflow mutation for the booking in the path, honouring an
// optional Idempotency-Key. A key whose first request succeeded replays that
// response. A key whose first request is still running is answered with 409
// and Retry-After. The key is released when the mutation fails.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context, model.Actor, string) (model.Booking, error)) {
	ctx := r.Context()
	bookingID := mux.Vars(r)["id"]
	actor := model.Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Name: strings.TrimSpace(r.Header.Get(HeaderActorName)),
	}

	var key string
	if clientKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)); clientKey != "" && actor.ID != "" {
		key = dedupe.Key(actor.ID, bookingID, op, clientKey)
		if entry, seen := s.deps.SeenAndRecord(ctx, key); seen {
			if !entry.Done {
				w.Header().Set("Retry-After", "1")
				s.fail(w, r, model.WrapKind("api."+op, model.ErrConflict, ErrInFlight))
				return
			}
			metrics.RecordIdempotentReplay()
			w.Header().Set(HeaderIdempotentReply, "true")
			writeRaw(w, http.StatusOK, entry.Result)
			return
		}
	}

	b, err := apply(ctx, actor, bookingID)
	if err != nil {
		if key != "" {
			s.deps.Unrecord(ctx, key)
		}
		s.fail(w, r, err)
		return
	}
	body, err := json.Marshal(b)
	if err != nil {
		if key != "" {
			s.deps.Unrecord(ctx, key)
		}
		s.fail(w, r, err)
		return
	}
	body = append(body, '\n')
	if key != "" {
		s.deps.Complete(ctx, key, body)
	}
	writeRaw(w, http.StatusOK, body)
}
