package errutil

import (
	"errors"
	"fmt"
	"net/http"
)

type HttpError struct {
	code int
	err  error
}

func (e *HttpError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *HttpError) Unwrap() error {
	return e.err
}

func (e *HttpError) Code() int {
	return e.code
}

func newHttpError(code int, err error) error {
	return &HttpError{
		code: code,
		err:  err,
	}
}

func ValidationError(err error) error {
	return newHttpError(http.StatusBadRequest, err)
}

func BadRequestError(err error) error {
	return newHttpError(http.StatusBadRequest, err)
}

func UnauthorizedError(err error) error {
	return newHttpError(http.StatusUnauthorized, err)
}

func ForbiddenError(err error) error {
	return newHttpError(http.StatusForbidden, err)
}

func NotFoundError(err error) error {
	return newHttpError(http.StatusNotFound, err)
}

func ConflictError(err error) error {
	return newHttpError(http.StatusConflict, err)
}

func PreconditionFailedError(err error) error {
	return newHttpError(http.StatusPreconditionFailed, err)
}

func InternalError(err error) error {
	return newHttpError(http.StatusInternalServerError, err)
}

// QuotaExceeded is returned when a plan limit blocks an operation.
type QuotaExceeded struct {
	Resource string
	Current  uint64
	Limit    uint64
}

func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("%s quota exceeded, current: %d, limit: %d", e.Resource, e.Current, e.Limit)
}

func QuotaExceededError(resource string, current, limit uint64) error {
	return ForbiddenError(&QuotaExceeded{
		Resource: resource,
		Current:  current,
		Limit:    limit,
	})
}

func ParseHttpError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	httpErr := new(HttpError)
	if errors.As(err, &httpErr) {
		return httpErr.Code(), httpErr.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
