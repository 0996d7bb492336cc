package api

import (
	"net/http"
	"time"

	"github.com/okian/carematch/internal/domain/calendar"
	"github.com/okian/carematch/internal/domain/model"
)

type calendarQuery struct {
	ServiceID string `validate:"required,max=100"`
	WeekStart string `validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
	in := calendarQuery{
		ServiceID: r.URL.Query().Get("service_id"),
		WeekStart: r.URL.Query().Get("week_start"),
	}
	if err := s.validate.Struct(in); err != nil {
		s.fail(w, r, model.WrapKind(op, model.ErrValidation, err))
		return
	}

	var start time.Time
	if in.WeekStart != "" {
		// Already checked by the datetime tag.
		start, _ = time.Parse(calendar.DateLayout, in.WeekStart)
	}

	grid, err := s.deps.Calendar(r.Context(), in.ServiceID, start)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (s *Server) handleServices(w http.ResponseWriter, _ *http.Request) {
	services := s.deps.Services()
	if services == nil {
		services = []model.Service{}
	}
	writeJSON(w, http.StatusOK, services)
}
