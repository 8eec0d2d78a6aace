package services

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// ErrorKind lets callers branch on the class of a failure without parsing messages.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUnsupportedType ErrorKind = "unsupported_type"
	KindQuotaExceeded   ErrorKind = "quota_exceeded"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindBrokenChain     ErrorKind = "broken_chain"
	KindCycleDetected   ErrorKind = "cycle_detected"
	KindStorageIO       ErrorKind = "storage_io"
	KindInternal        ErrorKind = "internal"
)

var (
	ErrValidation      = &AppError{Kind: KindValidation}
	ErrUnsupportedType = &AppError{Kind: KindUnsupportedType}
	ErrQuotaExceeded   = &AppError{Kind: KindQuotaExceeded}
	ErrNotFound        = &AppError{Kind: KindNotFound}
	ErrConflict        = &AppError{Kind: KindConflict}
	ErrBrokenChain     = &AppError{Kind: KindBrokenChain}
	ErrCycleDetected   = &AppError{Kind: KindCycleDetected}
	ErrStorageIO       = &AppError{Kind: KindStorageIO}
)

type AppError struct {
	Kind     ErrorKind
	HTTPCode int
	Message  string
	Data     interface{}
	Err      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any AppError of the same kind, so the package sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind != "" && e.Kind == t.Kind
}

var kindHTTPCodes = map[ErrorKind]int{
	KindValidation:      http.StatusBadRequest,
	KindUnsupportedType: http.StatusUnsupportedMediaType,
	KindQuotaExceeded:   http.StatusRequestEntityTooLarge,
	KindNotFound:        http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindBrokenChain:     http.StatusInternalServerError,
	KindCycleDetected:   http.StatusInternalServerError,
	KindStorageIO:       http.StatusInternalServerError,
	KindInternal:        http.StatusInternalServerError,
}

func newAppError(kind ErrorKind, message string, err error) *AppError {
	code, ok := kindHTTPCodes[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &AppError{Kind: kind, HTTPCode: code, Message: message, Err: err}
}

func newAppErrorWithData(kind ErrorKind, message string, data interface{}, err error) *AppError {
	appErr := newAppError(kind, message, err)
	appErr.Data = data
	return appErr
}

// repoError maps a repository failure to not_found or internal.
func repoError(err error, notFound, failed string) *AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newAppError(KindNotFound, notFound, nil)
	}
	return newAppError(KindInternal, failed, err)
}

// asAppError passes AppErrors through and wraps anything else as internal.
func asAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return repoError(err, message, message)
}
