package api

import (
	"direct-chat/errors"
	stderrors "errors"
	"net/http"
)

// MapToHTTPStatus translates domain errors into HTTP status codes.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, errors.ErrValidation),
		stderrors.Is(err, errors.ErrInvalidPassword):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrAuthentication),
		stderrors.Is(err, errors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
