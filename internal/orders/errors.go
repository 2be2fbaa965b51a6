package orders

import (
	"context"
	"errors"
	"net/http"

	"tanbroker/internal/broker"
	"tanbroker/internal/model"
)

var ErrWrongFamily = errors.New("action does not support this step")

func Kind(err error) string {
	var apiErr *broker.APIError
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrActionNotFound):
		return "not_found"

	case errors.Is(err, broker.ErrInvalidPayload),
		errors.Is(err, broker.ErrTANRequired),
		isOrderRule(err):
		return "invalid"

	case errors.Is(err, ErrWrongFamily),
		errors.Is(err, broker.ErrChallengeMismatch),
		errors.Is(err, broker.ErrChallengeSpent):
		return "conflict"

	case errors.Is(err, broker.ErrMalformedChallengeHeader),
		errors.Is(err, broker.ErrUnsupportedChallengeType):
		return "bad_challenge"

	case errors.As(err, &apiErr):
		return "rejected"

	case errors.As(err, new(*broker.ParseError)):
		return "bad_response"

	case errors.Is(err, broker.ErrTransportDisabled):
		return "unavailable"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// HTTPStatus maps an error from this package or the broker to the status
// the local API answers with. Brokerage rejections keep their class: a 4xx
// from upstream is the caller's problem, anything else is a gateway failure.
func HTTPStatus(err error) int {
	var apiErr *broker.APIError
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrActionNotFound):
		return http.StatusNotFound

	case errors.Is(err, broker.ErrInvalidPayload),
		errors.Is(err, broker.ErrTANRequired),
		isOrderRule(err):
		return http.StatusBadRequest

	case errors.Is(err, ErrWrongFamily),
		errors.Is(err, broker.ErrChallengeMismatch),
		errors.Is(err, broker.ErrChallengeSpent):
		return http.StatusConflict

	case errors.Is(err, broker.ErrMalformedChallengeHeader),
		errors.Is(err, broker.ErrUnsupportedChallengeType):
		return http.StatusBadGateway

	case errors.As(err, &apiErr):
		if apiErr.HTTPStatus >= 400 && apiErr.HTTPStatus < 500 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway

	case errors.As(err, new(*broker.ParseError)):
		return http.StatusBadGateway

	case errors.Is(err, broker.ErrTransportDisabled):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func isOrderRule(err error) bool {
	return errors.Is(err, model.ErrQuantityNotPositive) ||
		errors.Is(err, model.ErrLimitRequired) ||
		errors.Is(err, model.ErrLimitNotPositive) ||
		errors.Is(err, model.ErrValidityDate) ||
		errors.Is(err, model.ErrQuoteIDRequired)
}
