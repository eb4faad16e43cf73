package links

import (
	"errors"
	"net/http"

	"github.com/storacha/grantlink/pkg/grant"
)

// ErrUnauthorized is returned when no unexpired grant matches the request.
var ErrUnauthorized = errors.New("unauthorized")

// Outcome is the terminal state of a link request.
type Outcome int

const (
	Success Outcome = iota
	BadRequest
	Unauthorized
	InternalError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "Success"
	case BadRequest:
		return "BadRequest"
	case Unauthorized:
		return "Unauthorized"
	default:
		return "InternalError"
	}
}

// StatusCode is the HTTP status reported for the outcome.
func (o Outcome) StatusCode() int {
	switch o {
	case Success:
		return http.StatusOK
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Body is the fixed response body for failed outcomes.
func (o Outcome) Body() string {
	switch o {
	case BadRequest:
		return "BAD_REQUEST_PARAMETERS"
	case Unauthorized:
		return "UNAUTHORIZED"
	case InternalError:
		return "INTERNAL_ERROR"
	}
	return ""
}

// OutcomeOf classifies an error returned by Service.GetLink. Anything that is
// not a validation failure or a denial is an internal error.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Success
	}
	var ve *grant.ValidationError
	if errors.As(err, &ve) {
		return BadRequest
	}
	if errors.Is(err, ErrUnauthorized) {
		return Unauthorized
	}
	return InternalError
}
