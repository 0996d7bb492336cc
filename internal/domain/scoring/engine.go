package scoring

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/carematch/internal/domain/model"
)

// TalentSource reads talents from persistence.
type TalentSource interface {
	ListTalents(ctx context.Context, f model.TalentFilter) ([]model.Talent, error)
}

// BookingSource resolves the booking and customer behind a suggestion request.
type BookingSource interface {
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
}

// Source is everything the Engine reads.
type Source interface {
	TalentSource
	BookingSource
}

// Engine produces ranked talent suggestions.
type Engine struct {
	src    Source
	scorer Scorer
	limit  int
}

// NewEngine creates an Engine reading from src.
func NewEngine(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, scorer: LocalityScorer{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest ranks approved and pending talents offering serviceType for a
// customer in customerCity. No candidates yields an empty slice, not an error.
func (e *Engine) Suggest(ctx context.Context, customerCity, serviceType string) ([]model.SuggestedTalent, error) {
	if strings.TrimSpace(serviceType) == "" {
		return nil, model.Invalidf(opSuggest, "service type is required")
	}
	talents, err := e.src.ListTalents(ctx, model.TalentFilter{
		Capability: serviceType,
		Approvals:  []model.Approval{model.ApprovalApproved, model.ApprovalPending},
	})
	if err != nil {
		return nil, model.WrapKind(opSuggest, model.ErrUnavailable, err)
	}

	out := make([]model.SuggestedTalent, 0, len(talents))
	for _, t := range talents {
		// the source filter is trusted only as a hint
		if !t.Eligible() || !t.Offers(serviceType) {
			continue
		}
		score := e.scorer.Score(customerCity, t)
		bucket := Bucket(score)
		out = append(out, model.SuggestedTalent{
			TalentID:     t.ID,
			Name:         t.Name,
			Address:      t.Address,
			City:         t.City,
			Capabilities: append([]string(nil), t.Capabilities...),
			Rate:         t.RateString(),
			Experience:   t.Experience,
			Approval:     t.Approval,
			MatchScore:   score,
			Bucket:       bucket,
			Label:        Label(bucket),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if e.limit > 0 && len(out) > e.limit {
		out = out[:e.limit]
	}
	return out, nil
}

// SuggestForBooking suggests talents for the booking's service type near its
// customer's city.
func (e *Engine) SuggestForBooking(ctx context.Context, bookingID string) ([]model.SuggestedTalent, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, model.Invalidf(opSuggestForBooking, "booking id is required")
	}
	b, err := e.src.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, classify(opSuggestForBooking, err, model.ErrNotFound)
	}
	city := ""
	if b.CustomerID != "" {
		c, err := e.src.GetCustomer(ctx, b.CustomerID)
		switch {
		case err == nil:
			city = c.City
		case !model.IsNotFound(err):
			return nil, classify(opSuggestForBooking, err, model.ErrNotFound)
		}
	}
	return e.Suggest(ctx, city, b.ServiceType)
}

// score desc, approved before pending, name, id.
func less(a, b model.SuggestedTalent) bool {
	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}
	if a.Approval != b.Approval {
		return a.Approval == model.ApprovalApproved
	}
	if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
		return an < bn
	}
	return a.TalentID < b.TalentID
}
