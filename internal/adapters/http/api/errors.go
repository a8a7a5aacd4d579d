package api

import (
	"errors"
	"net/http"

	"github.com/okian/critic/internal/adapters/repository"
	service "github.com/okian/critic/internal/app"
	"github.com/okian/critic/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrUnavailable = errors.New("store unavailable")
)

// statusFor maps domain and store errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidScore),
		errors.Is(err, model.ErrInvalidContest),
		errors.Is(err, repository.ErrInvalidName):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrAlreadyJudged):
		return http.StatusConflict, "already_judged"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, repository.ErrHasHistory):
		return http.StatusConflict, "has_history"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
