package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// StatusTokenExpired is the non-standard status clients use to trigger a re-login.
const StatusTokenExpired = 498

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrForbidden          = errors.New("forbidden access")
	ErrAccountBlocked     = errors.New("Account blocked")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable") // judge down or still running
	ErrTokenExpired       = errors.New("Token expired")
	ErrLockNotAcquired    = errors.New("operation already in progress")
	ErrPayloadTooLarge    = errors.New("Request body too large")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTokenExpired):
		return StatusTokenExpired
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAccountBlocked):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, ErrLockNotAcquired):
		return http.StatusConflict
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return http.StatusConflict
		case pgForeignKeyViolation, pgInvalidText:
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err references a missing row.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// Validationf wraps ErrValidation with a client facing message.
func Validationf(format string, args ...interface{}) error {
	return &clientError{msg: fmt.Sprintf(format, args...), kind: ErrValidation}
}

// NotFoundf wraps ErrNotFound with a client facing message.
func NotFoundf(format string, args ...interface{}) error {
	return &clientError{msg: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

// Forbiddenf wraps ErrForbidden with a client facing message.
func Forbiddenf(format string, args ...interface{}) error {
	return &clientError{msg: fmt.Sprintf(format, args...), kind: ErrForbidden}
}

// Conflictf wraps ErrConflict with a client facing message.
func Conflictf(format string, args ...interface{}) error {
	return &clientError{msg: fmt.Sprintf(format, args...), kind: ErrConflict}
}

// clientError carries a message that is safe to return to the caller verbatim.
type clientError struct {
	msg  string
	kind error
}

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return e.kind }

// PublicMessage returns the text a handler may expose for err.
// Server side failures collapse to a generic message.
func PublicMessage(err error) string {
	var ce *clientError
	if errors.As(err, &ce) {
		return ce.msg
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return "Resource already exists"
		case pgForeignKeyViolation:
			return "Referenced resource does not exist"
		case pgInvalidText:
			return "Malformed identifier"
		}
	}
	if HTTPStatusFromError(err) >= http.StatusInternalServerError && !errors.Is(err, ErrServiceUnavailable) {
		return "Internal Server Error"
	}
	for _, known := range []error{
		ErrInvalidCredentials, ErrAccountBlocked, ErrTokenExpired, ErrNotFound, ErrUnauthorized,
		ErrForbidden, ErrBadRequest, ErrConflict, ErrValidation, ErrServiceUnavailable, ErrLockNotAcquired, ErrPayloadTooLarge,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
