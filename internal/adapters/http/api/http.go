// Package api exposes the booking assignment operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/okian/carematch/internal/domain/calendar"
	"github.com/okian/carematch/internal/domain/dedupe"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/logger"
)

// Headers understood or produced by the API.
const (
	HeaderActorID         = "X-Actor-ID"
	HeaderActorName       = "X-Actor-Name"
	HeaderIdempotencyKey  = "Idempotency-Key"
	HeaderIdempotentReply = "Idempotent-Replay"
)

const maxBodyBytes = 1 << 20

// BookingService lists bookings and applies assignment mutations.
type BookingService interface {
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingView, model.StatusCounts, error)
	GetBooking(ctx context.Context, id string) (model.BookingView, error)

	Assign(ctx context.Context, actor model.Actor, bookingID, talentID string, expectedVersion int64) (model.Booking, error)
	Reassign(ctx context.Context, actor model.Actor, bookingID, talentID string, expectedVersion int64) (model.Booking, error)
	Unassign(ctx context.Context, actor model.Actor, bookingID string, expectedVersion int64) (model.Booking, error)
	SetStatus(ctx context.Context, actor model.Actor, bookingID string, status model.Status, expectedVersion int64) (model.Booking, error)
	MarkCompleted(ctx context.Context, actor model.Actor, bookingID string, expectedVersion int64) (model.Booking, error)
}

// SuggestionService ranks talents for a booking or a city and service.
type SuggestionService interface {
	Suggest(ctx context.Context, city, serviceType string) ([]model.SuggestedTalent, error)
	SuggestForBooking(ctx context.Context, bookingID string) ([]model.SuggestedTalent, error)
}

// CalendarService builds weekly grids. A zero weekStart means the current week.
type CalendarService interface {
	Calendar(ctx context.Context, serviceID string, weekStart time.Time) (calendar.Grid, error)
	Services() []model.Service
}

// Dependencies bundles everything the handlers call.
type Dependencies interface {
	dedupe.Deduper
	BookingService
	SuggestionService
	CalendarService
}

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	validate       *validator.Validate
	log            logger.Logger
	requestTimeout time.Duration
	corsOrigins    []string
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		stats:          stats,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		log:            logger.Nop(),
		requestTimeout: defaultRequestTimeout,
		corsOrigins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all API routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.Use(tracingMiddleware, MetricsMiddleware, s.timeoutMiddleware)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/services", s.handleServices).Methods(http.MethodGet)
	r.HandleFunc("/calendar", s.handleCalendar).Methods(http.MethodGet)
	r.HandleFunc("/suggestions", s.handleSuggest).Methods(http.MethodGet)

	b := r.PathPrefix("/bookings").Subrouter()
	b.HandleFunc("", s.handleListBookings).Methods(http.MethodGet)
	b.HandleFunc("/{id}", s.handleGetBooking).Methods(http.MethodGet)
	b.HandleFunc("/{id}/suggestions", s.handleSuggestForBooking).Methods(http.MethodGet)
	b.HandleFunc("/{id}/assign", s.handleAssign).Methods(http.MethodPost)
	b.HandleFunc("/{id}/reassign", s.handleReassign).Methods(http.MethodPost)
	b.HandleFunc("/{id}/unassign", s.handleUnassign).Methods(http.MethodPost)
	b.HandleFunc("/{id}/status", s.handleSetStatus).Methods(http.MethodPost)
	b.HandleFunc("/{id}/complete", s.handleComplete).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", errors.New("no such route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

// Wrap applies CORS around h.
func (s *Server) Wrap(h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderActorID, HeaderActorName, HeaderIdempotencyKey},
		ExposedHeaders: []string{HeaderIdempotentReply},
		MaxAge:         600,
	}).Handler(h)
}

// Handler builds a router with the API routes, plus any extra registrations,
// wrapped in CORS.
func (s *Server) Handler(ctx context.Context, extra ...func(context.Context, *mux.Router)) http.Handler {
	r := mux.NewRouter()
	s.Register(ctx, r)
	for _, reg := range extra {
		reg(ctx, r)
	}
	return s.Wrap(r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an already encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps domain error kinds to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrBookingClosed), errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, model.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err using the domain mapping. Internal errors are logged and
// replaced with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		s.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, code, err)
}
