package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/carematch/internal/domain/model"
)

type suggestQuery struct {
	City        string `validate:"max=200"`
	ServiceType string `validate:"required,max=100"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggest"
	in := suggestQuery{
		City:        r.URL.Query().Get("city"),
		ServiceType: r.URL.Query().Get("service_type"),
	}
	if err := s.validate.Struct(in); err != nil {
		s.fail(w, r, model.WrapKind(op, model.ErrValidation, err))
		return
	}

	out, err := s.deps.Suggest(r.Context(), in.City, in.ServiceType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuggestions(w, out)
}

func (s *Server) handleSuggestForBooking(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.SuggestForBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuggestions(w, out)
}

func writeSuggestions(w http.ResponseWriter, out []model.SuggestedTalent) {
	if out == nil {
		out = []model.SuggestedTalent{}
	}
	writeJSON(w, http.StatusOK, out)
}
