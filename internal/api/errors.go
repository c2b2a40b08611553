package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/media"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewBadRequestErrorWithMessage(msg string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    msg,
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewForbiddenError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    lower(http.StatusText(http.StatusForbidden)),
	}
}

// NewNotChatMemberError denies access to a chat the caller is not a
// member of.
func NewNotChatMemberError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    "not a member of this chat",
	}
}

// NewPermissionDeniedError names the permission the caller's role lacks.
func NewPermissionDeniedError(perm string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    fmt.Sprintf("missing permission %q", perm),
	}
}

func NewConflictError(field string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusConflict,
		Message:    fmt.Sprintf("%s already exists", field),
	}
}

func NewMethodNotAllowedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    lower(http.StatusText(http.StatusMethodNotAllowed)),
	}
}

// dbError translates repository errors into API responses.
func dbError(err error) *ApiError {
	var dup *database.DuplicateError
	switch {
	case errors.Is(err, database.ErrNotFound):
		return NewNotFoundError()
	case errors.As(err, &dup):
		return NewConflictError(dup.Field)
	default:
		return NewInternalServerError(err)
	}
}

// mediaError translates pipeline errors: rejected content is the
// caller's fault, everything else is ours.
func mediaError(err error) *ApiError {
	if media.IsBadMedia(err) {
		return NewBadRequestErrorWithMessage(err.Error())
	}
	return NewInternalServerError(err)
}
