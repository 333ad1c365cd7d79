package perrors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/sirupsen/logrus"
)

type ErrCode struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
}

var (
	ErrCodeValidation   = ErrCode{"validation_failed", http.StatusBadRequest}
	ErrCodeUnauthorized = ErrCode{"unauthorized", http.StatusUnauthorized}
	ErrCodePermission   = ErrCode{"forbidden", http.StatusForbidden}
	ErrCodeNotFound     = ErrCode{"not_found", http.StatusNotFound}
	ErrCodeConflict     = ErrCode{"conflict", http.StatusConflict}
	ErrCodeTooMany      = ErrCode{"too_many_requests", http.StatusTooManyRequests}
	ErrCodeAuditWrite   = ErrCode{"audit_write_failed", http.StatusInternalServerError}
	ErrCodeInternal     = ErrCode{"internal_server_error", http.StatusInternalServerError}
)

// Err is the error type every layer above the store returns
type Err struct {
	Message    string   `json:"message"`
	Code       ErrCode  `json:"code"`
	Field      string   `json:"field,omitempty"`
	Stacktrace []string `json:"-"`
	cause      error
}

func (e Err) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e Err) Unwrap() error {
	return e.cause
}

// Is matches any Err carrying the same code
func (e Err) Is(target error) bool {
	var t Err
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func (e Err) HttpStatus() int {
	return e.Code.Status
}

// Print logs the error with its stacktrace
func (e Err) Print(logger logrus.FieldLogger) {
	fields := logrus.Fields{
		"code":       e.Code.Code,
		"stacktrace": e.Stacktrace,
	}
	if e.Field != "" {
		fields["field"] = e.Field
	}
	logger.WithFields(fields).Error(e.Error())
}

func New(code ErrCode, msg string, err error) error {
	pc := make([]uintptr, 20)
	count := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:count])

	var stacktrace []string
	for frame, hasMore := frames.Next(); hasMore; frame, hasMore = frames.Next() {
		stacktrace = append(stacktrace, fmt.Sprintf("%s:%d", frame.File, frame.Line))
	}

	return Err{
		Code:       code,
		Message:    msg,
		Stacktrace: stacktrace,
		cause:      err,
	}
}

// NewErrValidation reports a malformed input on one field
func NewErrValidation(field, msg string) error {
	e := New(ErrCodeValidation, msg, nil).(Err)
	e.Field = field
	return e
}

func NewErrUnauthorized(msg string) error {
	return New(ErrCodeUnauthorized, msg, nil)
}

func NewErrPermission(msg string) error {
	return New(ErrCodePermission, msg, nil)
}

func NewErrNotFound(entity string, id any) error {
	return New(ErrCodeNotFound, fmt.Sprintf("%s %v not found", entity, id), nil)
}

func NewErrConflict(msg string) error {
	return New(ErrCodeConflict, msg, nil)
}

func NewErrTooManyRequests(msg string) error {
	return New(ErrCodeTooMany, msg, nil)
}

func NewErrAuditWrite(msg string, err error) error {
	return New(ErrCodeAuditWrite, msg, err)
}

func NewErrInternal(msg string, err error) error {
	return New(ErrCodeInternal, msg, err)
}

// CodeOf returns the code of err, or ErrCodeInternal for foreign errors
func CodeOf(err error) ErrCode {
	var e Err
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

func IsValidation(err error) bool   { return err != nil && CodeOf(err) == ErrCodeValidation }
func IsUnauthorized(err error) bool { return err != nil && CodeOf(err) == ErrCodeUnauthorized }
func IsPermission(err error) bool   { return err != nil && CodeOf(err) == ErrCodePermission }
func IsNotFound(err error) bool     { return err != nil && CodeOf(err) == ErrCodeNotFound }
func IsConflict(err error) bool     { return err != nil && CodeOf(err) == ErrCodeConflict }
func IsAuditWrite(err error) bool   { return err != nil && CodeOf(err) == ErrCodeAuditWrite }
