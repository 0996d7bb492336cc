package scoring

import "github.com/okian/carematch/internal/domain/model"

const (
	opSuggest           = "scoring.suggest"
	opSuggestForBooking = "scoring.suggest_for_booking"
)

// classify maps a source failure onto the domain error kinds.
func classify(op string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case model.IsNotFound(err):
		return model.WrapKind(op, notFound, err)
	default:
		return model.WrapKind(op, model.ErrUnavailable, err)
	}
}
