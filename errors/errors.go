package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrBadRequest         = fmt.Errorf("bad request")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrStaleConnection    = fmt.Errorf("stale connection")
	ErrTransportFailure   = fmt.Errorf("transport failure")
	ErrInvalidState       = fmt.Errorf("invalid connection state")
	ErrPartialWrite       = fmt.Errorf("partial write")
	ErrMessageNotRecorded = fmt.Errorf("message delivered but not recorded")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// HTTPStatus maps a domain error to the status code the REST surface should
// answer with. NotFound and BadRequest are terminal for the caller; store and
// transport failures are retryable and map to 5xx.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPartialWrite):
		return http.StatusMultiStatus
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrTransportFailure),
		errors.Is(err, ErrMessageNotRecorded):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
