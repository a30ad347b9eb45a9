package repositories

import (
	"errors"
	"fmt"

	apperrors "chatx/errors"
)

// wrapStoreErr keeps the domain sentinels intact and folds every other
// storage failure into ErrStoreUnavailable, so callers can tell a 4xx-class
// miss from a 5xx-class store outage without knowing the engine.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrRoomNotFound),
		errors.Is(err, apperrors.ErrMessageNotFound),
		errors.Is(err, apperrors.ErrUserAlreadyExists),
		errors.Is(err, apperrors.ErrBadRequest):
		return err
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
}
